package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cupidcall/cupid-bridge/pkg/bridge/config"
	"github.com/cupidcall/cupid-bridge/pkg/bridge/registry"
	"github.com/cupidcall/cupid-bridge/pkg/bridge/twilio"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() config.Config {
	return config.Config{
		Addr:              ":8081",
		PublicDomain:      "https://bridge.example.com",
		XAIAPIKey:         "xai-key",
		RealtimeURL:       "wss://api.x.ai/v1/realtime",
		PrimaryModel:      "grok-4-realtime",
		TwilioAccountSID:  "AC999",
		TwilioAuthToken:   "secret",
		TwilioPhoneNumber: "+15550002222",
		PreviewSampleRate: 24000,
		PreviewTimeout:    time.Second,
	}
}

type fakePlacer struct {
	lastParams twilio.CreateCallParams
	err        error
}

func (f *fakePlacer) CreateCall(ctx context.Context, p twilio.CreateCallParams) (*twilio.Call, error) {
	f.lastParams = p
	if f.err != nil {
		return nil, f.err
	}
	return &twilio.Call{SID: "CA123", Status: "queued", To: p.To, From: p.From}, nil
}

func newOutboundHandler(t *testing.T, cfg config.Config, placer CallPlacer) (*OutboundCallHandler, *registry.Store) {
	t.Helper()
	reg := registry.New(10 * time.Minute)
	t.Cleanup(reg.Shutdown)
	return &OutboundCallHandler{
		Config:   cfg,
		Registry: reg,
		Calls:    placer,
		Logger:   discardLogger(),
	}, reg
}

const validOrder = `{
	"to": "+15550001111",
	"script": "roses are red",
	"senderName": "Jordan",
	"recipientName": "Casey",
	"voiceId": "Eve",
	"style": "cowboy",
	"explicit": false
}`

func TestOutboundCallPlacesCall(t *testing.T) {
	t.Parallel()
	placer := &fakePlacer{}
	h, reg := newOutboundHandler(t, testConfig(), placer)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/outbound-call", strings.NewReader(validOrder)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp outboundCallResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Token == "" || resp.CallSID != "CA123" {
		t.Errorf("resp = %+v", resp)
	}

	cfg, ok := reg.GetConfig(resp.Token)
	if !ok {
		t.Fatal("configuration not registered")
	}
	if cfg.VoiceID != "Eve" || cfg.Script != "roses are red" || cfg.Style != "cowboy" {
		t.Errorf("config = %+v", cfg)
	}
	if _, ok := reg.GetRecord("CA123"); !ok {
		t.Error("record not registered for the call SID")
	}

	if !strings.Contains(placer.lastParams.TwiML, resp.Token) {
		t.Error("TwiML does not carry the call token")
	}
	if !strings.Contains(placer.lastParams.TwiML, "wss://bridge.example.com/media-stream") {
		t.Errorf("TwiML stream URL wrong: %s", placer.lastParams.TwiML)
	}
	if placer.lastParams.StatusCallback != "https://bridge.example.com/call-status" {
		t.Errorf("status callback = %q", placer.lastParams.StatusCallback)
	}
}

func TestOutboundCallValidation(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		body  string
		param string
	}{
		{"missing to", `{"script":"hi"}`, "to"},
		{"bad number", `{"to":"5550001111","script":"hi"}`, "to"},
		{"missing script", `{"to":"+15550001111"}`, "script"},
		{"unknown voice", `{"to":"+15550001111","script":"hi","voiceId":"HAL"}`, "voiceId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h, _ := newOutboundHandler(t, testConfig(), &fakePlacer{})
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/outbound-call", strings.NewReader(tt.body)))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}
			var resp struct {
				Error struct {
					Type  string `json:"type"`
					Param string `json:"param"`
				} `json:"error"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal error envelope: %v", err)
			}
			if resp.Error.Type != "invalid_request_error" || resp.Error.Param != tt.param {
				t.Errorf("error = %+v", resp.Error)
			}
		})
	}
}

func TestOutboundCallUnconfiguredTelephony(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.TwilioAuthToken = ""
	h, _ := newOutboundHandler(t, cfg, &fakePlacer{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/outbound-call", strings.NewReader(validOrder)))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "configuration_error") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestOutboundCallUpstreamFailureReleasesConfig(t *testing.T) {
	t.Parallel()
	placer := &fakePlacer{err: errors.New("twilio down")}
	h, reg := newOutboundHandler(t, testConfig(), placer)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/outbound-call", strings.NewReader(validOrder)))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if configs, _ := reg.Counts(); configs != 0 {
		t.Error("configuration left behind for a failed placement")
	}
}

func TestOutboundCallScheduledWithPreCallDelay(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.PreCallDelay = 5 * time.Minute
	placer := &fakePlacer{}
	h, reg := newOutboundHandler(t, cfg, placer)
	sms := &countingSMS{}
	h.SMS = sms
	fired := false
	h.After = func(d time.Duration, f func()) *time.Timer {
		if d != 5*time.Minute {
			t.Errorf("delay = %v, want 5m", d)
		}
		fired = true
		f()
		return time.NewTimer(0)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/outbound-call", strings.NewReader(validOrder)))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp outboundCallResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Status != "scheduled" || resp.CallSID != "" {
		t.Errorf("resp = %+v", resp)
	}
	if !fired {
		t.Fatal("placement timer never registered")
	}
	if placer.lastParams.To != "+15550001111" {
		t.Error("scheduled call was not placed")
	}
	if _, ok := reg.GetRecord("CA123"); !ok {
		t.Error("record missing after scheduled placement")
	}
	if sms.sent() != 1 {
		t.Errorf("heads-up sms sent %d times, want 1", sms.sent())
	}
}

func TestOutboundCallHonorsCallerToken(t *testing.T) {
	t.Parallel()
	placer := &fakePlacer{}
	h, reg := newOutboundHandler(t, testConfig(), placer)

	body := `{"token":"cupid-fixed","to":"+15550001111","script":"hi","senderName":"J","recipientName":"C"}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/outbound-call", strings.NewReader(body)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if _, ok := reg.GetConfig("cupid-fixed"); !ok {
		t.Error("caller-provided token not used")
	}
}
