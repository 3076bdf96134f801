// Package call bridges one Twilio media stream to one realtime voice
// session, from the stream's start frame until either side hangs up.
package call

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cupidcall/cupid-bridge/pkg/bridge/prompt"
	"github.com/cupidcall/cupid-bridge/pkg/bridge/realtime"
	"github.com/cupidcall/cupid-bridge/pkg/bridge/registry"
	"github.com/cupidcall/cupid-bridge/pkg/bridge/twilio"
)

// TelephonyLeg is the caller-facing side of the bridge. WriteMedia plays
// audio into the call; Close hangs the stream up.
type TelephonyLeg interface {
	WriteMedia(streamSID, payloadB64 string) error
	Close() error
}

// VoiceSession is the backend-facing side of the bridge.
type VoiceSession interface {
	SpeakText(text string) error
	AppendAudioB64(payload string) error
	Outcome() <-chan realtime.Outcome
	Close()
}

// SessionOpener establishes a live voice session for a call.
type SessionOpener interface {
	OpenLive(ctx context.Context, voice, instructions string, onAudio func([]byte)) (VoiceSession, error)
}

// KickoffDelay is how long after the stream starts before the assistant is
// prompted to begin speaking, giving the callee a beat to say hello.
const KickoffDelay = 500 * time.Millisecond

type state int

const (
	stateAwaitingStart state = iota
	stateActive
	stateDegraded
	stateClosed
)

// Bridge drives one media-stream connection. Construct with New, feed every
// inbound frame through HandleMessage, and call Close when the connection
// ends. All methods are safe for concurrent use.
type Bridge struct {
	registry *registry.Store
	opener   SessionOpener
	leg      TelephonyLeg
	log      *slog.Logger

	kickoffDelay time.Duration

	mu        sync.Mutex
	state     state
	token     string
	streamSID string
	session   VoiceSession
	kickoff   *time.Timer

	closeOnce sync.Once
}

func New(reg *registry.Store, opener SessionOpener, leg TelephonyLeg, log *slog.Logger) *Bridge {
	if log == nil {
		log = slog.Default()
	}
	return &Bridge{
		registry:     reg,
		opener:       opener,
		leg:          leg,
		log:          log,
		kickoffDelay: KickoffDelay,
	}
}

// HandleMessage processes one inbound media-stream frame.
func (b *Bridge) HandleMessage(ctx context.Context, raw []byte) error {
	msg, err := twilio.DecodeStreamMessage(raw)
	if err != nil {
		return err
	}
	switch msg.Event {
	case "start":
		return b.handleStart(ctx, msg)
	case "media":
		return b.handleMedia(msg)
	case "stop":
		b.log.Info("stream stopped by caller", "stream_sid", b.currentStreamSID())
		b.Close()
		return nil
	default:
		return nil
	}
}

func (b *Bridge) handleStart(ctx context.Context, msg *twilio.StreamMessage) error {
	if msg.Start == nil {
		return fmt.Errorf("start frame without start payload")
	}
	b.mu.Lock()
	if b.state != stateAwaitingStart {
		b.mu.Unlock()
		return fmt.Errorf("duplicate start frame")
	}
	token := msg.Start.CustomParameters["callId"]
	streamSID := msg.Start.StreamSID
	if streamSID == "" {
		streamSID = msg.StreamSID
	}
	b.token = token
	b.streamSID = streamSID

	cfg, ok := b.registry.GetConfig(token)
	if !ok {
		// Unknown token: stay connected but route nothing, matching a
		// stream that raced past its configuration's expiry.
		b.state = stateDegraded
		b.mu.Unlock()
		b.log.Error("no call configuration for stream", "token", token, "stream_sid", streamSID)
		return nil
	}
	b.mu.Unlock()

	session, err := b.opener.OpenLive(ctx, cfg.VoiceID, prompt.ForCall(prompt.CallInfo{
		Sender:    cfg.Sender,
		Recipient: cfg.Recipient,
		Script:    cfg.Script,
		Style:     cfg.Style,
		Explicit:  cfg.Explicit,
	}), func(chunk []byte) {
		if err := b.leg.WriteMedia(streamSID, realtime.EncodeAudioB64(chunk)); err != nil {
			b.log.Warn("write to telephony leg failed", "error", err)
		}
	})
	if err != nil {
		b.log.Error("voice session open failed", "token", token, "error", err)
		b.Close()
		return err
	}

	b.mu.Lock()
	if b.state == stateClosed {
		b.mu.Unlock()
		session.Close()
		return nil
	}
	b.state = stateActive
	b.session = session
	b.kickoff = time.AfterFunc(b.kickoffDelay, func() {
		if err := session.SpeakText(prompt.Kickoff); err != nil {
			b.log.Warn("kickoff prompt failed", "error", err)
		}
	})
	b.mu.Unlock()

	b.log.Info("bridge active", "stream_sid", streamSID, "voice", cfg.VoiceID)

	// When the voice session ends for any reason, hang up the call too.
	go func() {
		out := <-session.Outcome()
		if out.Err != nil {
			b.log.Warn("voice session ended", "error", out.Err)
		}
		b.Close()
	}()
	return nil
}

func (b *Bridge) handleMedia(msg *twilio.StreamMessage) error {
	if msg.Media == nil {
		return nil
	}
	b.mu.Lock()
	session := b.session
	active := b.state == stateActive
	b.mu.Unlock()
	if !active || session == nil {
		return nil
	}
	return session.AppendAudioB64(msg.Media.Payload)
}

func (b *Bridge) currentStreamSID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.streamSID
}

// Close tears the bridge down: the kickoff timer is stopped, both legs are
// closed, and the call's configuration is released. Idempotent.
func (b *Bridge) Close() {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.state = stateClosed
		session := b.session
		kickoff := b.kickoff
		token := b.token
		b.mu.Unlock()

		if kickoff != nil {
			kickoff.Stop()
		}
		if session != nil {
			session.Close()
		}
		if err := b.leg.Close(); err != nil {
			b.log.Debug("telephony leg close", "error", err)
		}
		if token != "" {
			b.registry.DeleteConfig(token)
		}
	})
}
