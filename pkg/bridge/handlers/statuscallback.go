package handlers

import (
	"log/slog"
	"net/http"

	"github.com/cupidcall/cupid-bridge/pkg/bridge/followup"
	"github.com/cupidcall/cupid-bridge/pkg/bridge/metrics"
	"github.com/cupidcall/cupid-bridge/pkg/bridge/store"
)

// StatusCallbackHandler receives Twilio's call status webhooks. Completed
// calls trigger the follow-up scheduler; every terminal status is persisted
// when a call log is configured.
type StatusCallbackHandler struct {
	Followups *followup.Scheduler
	Store     *store.Store
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

func (h *StatusCallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	callSID := r.PostFormValue("CallSid")
	status := r.PostFormValue("CallStatus")
	if callSID == "" {
		http.Error(w, "CallSid is required", http.StatusBadRequest)
		return
	}
	h.Logger.Info("call status", "call_sid", callSID, "status", status)

	if isTerminalStatus(status) {
		if err := h.Store.UpdateStatus(r.Context(), callSID, status); err != nil {
			h.Logger.Warn("call log update failed", "call_sid", callSID, "error", err)
		}
	}
	if status == "completed" && h.Followups != nil {
		if h.Followups.OnCallCompleted(callSID) && h.Metrics != nil {
			h.Metrics.FollowUpsScheduled.Inc()
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func isTerminalStatus(status string) bool {
	switch status {
	case "completed", "busy", "no-answer", "failed", "canceled":
		return true
	}
	return false
}
