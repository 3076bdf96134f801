package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cupidcall/cupid-bridge/pkg/bridge/apierror"
	"github.com/cupidcall/cupid-bridge/pkg/bridge/config"
	"github.com/cupidcall/cupid-bridge/pkg/bridge/followup"
	"github.com/cupidcall/cupid-bridge/pkg/bridge/metrics"
	"github.com/cupidcall/cupid-bridge/pkg/bridge/prompt"
	"github.com/cupidcall/cupid-bridge/pkg/bridge/registry"
	"github.com/cupidcall/cupid-bridge/pkg/bridge/store"
	"github.com/cupidcall/cupid-bridge/pkg/bridge/twilio"
)

// CallPlacer places outbound voice calls.
type CallPlacer interface {
	CreateCall(ctx context.Context, p twilio.CreateCallParams) (*twilio.Call, error)
}

// OutboundCallHandler accepts a telegram order, registers its configuration,
// and places the call. With a pre-call delay configured the call is placed
// later and the response reports it as scheduled.
type OutboundCallHandler struct {
	Config   config.Config
	Registry *registry.Store
	Calls    CallPlacer
	SMS      followup.SMSSender
	Store    *store.Store
	Metrics  *metrics.Metrics
	Logger   *slog.Logger

	// after is swappable for tests; defaults to time.AfterFunc.
	After func(d time.Duration, f func()) *time.Timer
}

type outboundCallRequest struct {
	Token         string `json:"token"`
	To            string `json:"to"`
	Script        string `json:"script"`
	SenderName    string `json:"senderName"`
	RecipientName string `json:"recipientName"`
	VoiceID       string `json:"voiceId"`
	Style         string `json:"style"`
	Explicit      bool   `json:"explicit"`
}

type outboundCallResponse struct {
	Token   string `json:"token"`
	CallSID string `json:"callSid,omitempty"`
	Status  string `json:"status"`
}

func (h *OutboundCallHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req outboundCallRequest
	if apiErr := decodeJSONBody(w, r, &req); apiErr != nil {
		writeError(w, r, apiErr)
		return
	}
	if apiErr := h.validate(req); apiErr != nil {
		writeError(w, r, apiErr)
		return
	}
	if !h.Config.TwilioConfigured() {
		writeError(w, r, apierror.NewConfigurationError("telephony credentials are not configured"))
		return
	}
	if !h.Config.VoiceConfigured() {
		writeError(w, r, apierror.NewConfigurationError("voice backend credential is not configured"))
		return
	}

	token := strings.TrimSpace(req.Token)
	if token == "" {
		token = "cupid-" + uuid.NewString()
	}
	h.Registry.PutConfig(token, registry.CallConfig{
		Sender:    req.SenderName,
		Recipient: req.RecipientName,
		Script:    req.Script,
		Style:     req.Style,
		VoiceID:   prompt.NormalizeVoice(req.VoiceID),
		Explicit:  req.Explicit,
	})

	if h.Config.PreCallDelay > 0 {
		after := h.After
		if after == nil {
			after = time.AfterFunc
		}
		h.sendHeadsUp(r.Context(), req)
		h.Logger.Info("call scheduled", "token", token, "delay", h.Config.PreCallDelay)
		after(h.Config.PreCallDelay, func() {
			if _, err := h.placeCall(context.Background(), token, req); err != nil {
				h.Logger.Error("scheduled call failed", "token", token, "error", err)
			}
		})
		writeJSON(w, http.StatusAccepted, outboundCallResponse{Token: token, Status: "scheduled"})
		return
	}

	call, err := h.placeCall(r.Context(), token, req)
	if err != nil {
		writeError(w, r, apierror.NewUpstreamError("placing the call failed: "+err.Error()))
		return
	}
	writeJSON(w, http.StatusCreated, outboundCallResponse{
		Token:   token,
		CallSID: call.SID,
		Status:  call.Status,
	})
}

// sendHeadsUp texts the recipient that a call is on its way. Best effort; a
// failed heads-up never blocks the call itself.
func (h *OutboundCallHandler) sendHeadsUp(ctx context.Context, req outboundCallRequest) {
	if h.SMS == nil {
		return
	}
	recipient := req.RecipientName
	if recipient == "" {
		recipient = "there"
	}
	body := fmt.Sprintf("Hi %s! Keep your phone close: a Cupid Call from %s will ring you in about %d minutes.",
		recipient, req.SenderName, int(h.Config.PreCallDelay.Minutes()))
	if err := h.SMS.SendSMS(ctx, req.To, body); err != nil {
		h.Logger.Warn("heads-up sms failed", "to", req.To, "error", err)
	}
}

func (h *OutboundCallHandler) validate(req outboundCallRequest) *apierror.Error {
	if req.To == "" {
		return apierror.NewInvalidRequestErrorWithParam("to is required", "to")
	}
	if !strings.HasPrefix(req.To, "+") {
		return apierror.NewInvalidRequestErrorWithParam("to must be in E.164 format", "to")
	}
	if strings.TrimSpace(req.Script) == "" {
		return apierror.NewInvalidRequestErrorWithParam("script is required", "script")
	}
	if req.VoiceID != "" && !prompt.ValidVoice(req.VoiceID) {
		return apierror.NewInvalidRequestErrorWithParam("unknown voice", "voiceId")
	}
	return nil
}

func (h *OutboundCallHandler) placeCall(ctx context.Context, token string, req outboundCallRequest) (*twilio.Call, error) {
	twiml := twilio.StreamTwiML(h.Config.StreamURL(), token)
	call, err := h.Calls.CreateCall(ctx, twilio.CreateCallParams{
		To:             req.To,
		From:           h.Config.TwilioPhoneNumber,
		TwiML:          twiml,
		StatusCallback: h.Config.StatusCallbackURL(),
		StatusEvents:   []string{"completed"},
	})
	if err != nil {
		h.Registry.DeleteConfig(token)
		if h.Metrics != nil {
			h.Metrics.CallsPlaced.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	h.Registry.PutRecord(call.SID, registry.CallRecord{
		Token:     token,
		To:        req.To,
		Sender:    req.SenderName,
		Recipient: req.RecipientName,
	})
	if err := h.Store.RecordPlaced(ctx, store.PlacedCall{
		Token:     token,
		CallSID:   call.SID,
		ToNumber:  req.To,
		Sender:    req.SenderName,
		Recipient: req.RecipientName,
		VoiceID:   prompt.NormalizeVoice(req.VoiceID),
	}); err != nil {
		h.Logger.Warn("call log insert failed", "call_sid", call.SID, "error", err)
	}
	if h.Metrics != nil {
		h.Metrics.CallsPlaced.WithLabelValues("ok").Inc()
		configs, records := h.Registry.Counts()
		h.Metrics.RegistryEntries.WithLabelValues("configs").Set(float64(configs))
		h.Metrics.RegistryEntries.WithLabelValues("records").Set(float64(records))
	}
	h.Logger.Info("call placed", "call_sid", call.SID, "token", token)
	return call, nil
}
