package handlers

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cupidcall/cupid-bridge/pkg/bridge/apierror"
	"github.com/cupidcall/cupid-bridge/pkg/bridge/audio"
	"github.com/cupidcall/cupid-bridge/pkg/bridge/config"
	"github.com/cupidcall/cupid-bridge/pkg/bridge/metrics"
	"github.com/cupidcall/cupid-bridge/pkg/bridge/prompt"
	"github.com/cupidcall/cupid-bridge/pkg/bridge/realtime"
)

// Synthesizer renders a script to PCM16 audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, req realtime.SynthesisRequest) ([]byte, error)
}

// PreviewHandler synthesizes a short voice preview of a script and returns
// it as a base64 WAV payload.
type PreviewHandler struct {
	Config  config.Config
	Synth   Synthesizer
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

type previewRequest struct {
	Script  string `json:"script"`
	VoiceID string `json:"voiceId"`
}

type previewResponse struct {
	AudioBase64 string `json:"audioBase64"`
	MimeType    string `json:"mimeType"`
	VoiceID     string `json:"voiceId"`
}

func (h *PreviewHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if apiErr := decodeJSONBody(w, r, &req); apiErr != nil {
		writeError(w, r, apiErr)
		return
	}
	if strings.TrimSpace(req.Script) == "" {
		writeError(w, r, apierror.NewInvalidRequestErrorWithParam("script is required", "script"))
		return
	}
	if req.VoiceID != "" && !prompt.ValidVoice(req.VoiceID) {
		writeError(w, r, apierror.NewInvalidRequestErrorWithParam("unknown voice", "voiceId"))
		return
	}
	if !h.Config.VoiceConfigured() {
		writeError(w, r, apierror.NewConfigurationError("voice backend credential is not configured"))
		return
	}
	voice := prompt.NormalizeVoice(req.VoiceID)

	ctx, cancel := context.WithTimeout(r.Context(), h.Config.PreviewTimeout+2*time.Second)
	defer cancel()

	start := time.Now()
	pcm, err := h.Synth.Synthesize(ctx, realtime.SynthesisRequest{
		Script:       req.Script,
		Voice:        voice,
		Instructions: prompt.ForPreview(),
		IdleFinalize: 900 * time.Millisecond,
		HardTimeout:  h.Config.PreviewTimeout,
	})
	if h.Metrics != nil {
		h.Metrics.PreviewDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		if h.Metrics != nil {
			h.Metrics.PreviewRequests.WithLabelValues("error").Inc()
		}
		h.Logger.Error("preview synthesis failed", "voice", voice, "error", err)
		writeError(w, r, apierror.NewSynthesisError("voice preview failed: "+err.Error()))
		return
	}
	if h.Metrics != nil {
		h.Metrics.PreviewRequests.WithLabelValues("ok").Inc()
	}

	wav := audio.Encode(pcm, h.Config.PreviewSampleRate)
	writeJSON(w, http.StatusOK, previewResponse{
		AudioBase64: base64.StdEncoding.EncodeToString(wav),
		MimeType:    "audio/wav",
		VoiceID:     voice,
	})
}
