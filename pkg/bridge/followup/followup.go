// Package followup sends the post-call SMS invite after a delivered call
// completes, at most once per call.
package followup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cupidcall/cupid-bridge/pkg/bridge/registry"
)

// SMSSender sends one text message.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// Scheduler fires the follow-up for completed calls. The provider may
// deliver the completion callback more than once; the registry's guard set
// keeps the SMS to a single send.
type Scheduler struct {
	Registry *registry.Store
	SMS      SMSSender
	Delay    time.Duration
	Logger   *slog.Logger

	// After is swappable for tests; defaults to time.AfterFunc.
	After func(d time.Duration, f func()) *time.Timer
}

func NewScheduler(reg *registry.Store, sms SMSSender, delay time.Duration, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		Registry: reg,
		SMS:      sms,
		Delay:    delay,
		Logger:   log,
		After:    time.AfterFunc,
	}
}

// OnCallCompleted schedules the follow-up SMS for callSID. It reports
// whether this invocation claimed the follow-up; duplicates and unknown
// SIDs return false.
func (s *Scheduler) OnCallCompleted(callSID string) bool {
	rec, ok := s.Registry.GetRecord(callSID)
	if !ok {
		s.Logger.Debug("completion for unknown call", "call_sid", callSID)
		return false
	}
	if !s.Registry.MarkFollowedUp(callSID) {
		s.Logger.Debug("follow-up already claimed", "call_sid", callSID)
		return false
	}
	s.Logger.Info("scheduling follow-up", "call_sid", callSID, "delay", s.Delay)
	s.After(s.Delay, func() {
		s.send(callSID, rec)
	})
	return true
}

func (s *Scheduler) send(callSID string, rec registry.CallRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	body := followUpBody(rec)
	if err := s.SMS.SendSMS(ctx, rec.To, body); err != nil {
		s.Logger.Error("follow-up sms failed", "call_sid", callSID, "error", err)
	} else {
		s.Logger.Info("follow-up sms sent", "call_sid", callSID)
	}
	s.Registry.DeleteRecord(callSID)
}

func followUpBody(rec registry.CallRecord) string {
	return fmt.Sprintf(
		"Hi %s! You just received a Cupid Call from %s. Want to send one back? "+
			"Visit cupidcall.com and use code LOVE for your first call free.",
		rec.Recipient, rec.Sender)
}
