package handlers

import (
	"net/http"

	"github.com/cupidcall/cupid-bridge/pkg/bridge/config"
	"github.com/cupidcall/cupid-bridge/pkg/bridge/prompt"
)

type HealthHandler struct{}

func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

// RootHandler reports service identity and which integrations are live.
type RootHandler struct {
	Config config.Config
}

func (h RootHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	type rootResp struct {
		Service          string   `json:"service"`
		Status           string   `json:"status"`
		Voices           []string `json:"voices"`
		TwilioConfigured bool     `json:"twilio_configured"`
		VoiceConfigured  bool     `json:"voice_configured"`
	}
	writeJSON(w, http.StatusOK, rootResp{
		Service:          "cupid-bridge",
		Status:           "ok",
		Voices:           prompt.Voices(),
		TwilioConfigured: h.Config.TwilioConfigured(),
		VoiceConfigured:  h.Config.VoiceConfigured(),
	})
}
