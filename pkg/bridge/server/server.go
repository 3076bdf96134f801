// Package server assembles the bridge's HTTP surface: routes, middleware,
// and the shared dependencies behind them.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cupidcall/cupid-bridge/pkg/bridge/call"
	"github.com/cupidcall/cupid-bridge/pkg/bridge/config"
	"github.com/cupidcall/cupid-bridge/pkg/bridge/followup"
	"github.com/cupidcall/cupid-bridge/pkg/bridge/handlers"
	"github.com/cupidcall/cupid-bridge/pkg/bridge/metrics"
	"github.com/cupidcall/cupid-bridge/pkg/bridge/mw"
	"github.com/cupidcall/cupid-bridge/pkg/bridge/realtime"
	"github.com/cupidcall/cupid-bridge/pkg/bridge/registry"
	"github.com/cupidcall/cupid-bridge/pkg/bridge/store"
	"github.com/cupidcall/cupid-bridge/pkg/bridge/twilio"
)

type Server struct {
	cfg    config.Config
	logger *slog.Logger
	mux    *http.ServeMux

	registry  *registry.Store
	policy    *realtime.Policy
	twilio    *twilio.Client
	sms       *smsAdapter
	followups *followup.Scheduler
	store     *store.Store
	metrics   *metrics.Metrics
	promReg   *prometheus.Registry
}

func New(cfg config.Config, logger *slog.Logger, callLog *store.Store) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	reg := registry.New(cfg.RegistryTTL())
	promReg := prometheus.NewRegistry()
	m := metrics.New(promReg)

	tw := twilio.NewClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken)
	sms := &smsAdapter{client: tw, from: cfg.TwilioPhoneNumber}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		mux:      http.NewServeMux(),
		registry: reg,
		policy: &realtime.Policy{
			Dialer: &realtime.BackendDialer{URL: cfg.RealtimeURL, APIKey: cfg.XAIAPIKey},
			Models: cfg.Models(),
			Logger: logger,
			OnAttempt: func(model string, err error) {
				result := "ok"
				if err != nil {
					result = "error"
				}
				m.SessionOpens.WithLabelValues(model, result).Inc()
			},
			OnFallback: m.ModelFallbacks.Inc,
		},
		twilio:    tw,
		sms:       sms,
		followups: followup.NewScheduler(reg, sms, cfg.PostCallDelay, logger),
		store:     callLog,
		metrics:   m,
		promReg:   promReg,
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.Handle("GET /{$}", handlers.RootHandler{Config: s.cfg})
	s.mux.Handle("GET /healthz", handlers.HealthHandler{})
	s.mux.Handle("POST /outbound-call", &handlers.OutboundCallHandler{
		Config:   s.cfg,
		Registry: s.registry,
		Calls:    s.twilio,
		SMS:      s.sms,
		Store:    s.store,
		Metrics:  s.metrics,
		Logger:   s.logger,
	})
	s.mux.Handle("POST /preview-audio", &handlers.PreviewHandler{
		Config:  s.cfg,
		Synth:   s.policy,
		Metrics: s.metrics,
		Logger:  s.logger,
	})
	s.mux.Handle("GET /media-stream", &handlers.MediaStreamHandler{
		Registry: s.registry,
		Opener:   &liveOpener{policy: s.policy, logger: s.logger},
		Metrics:  s.metrics,
		Logger:   s.logger,
	})
	s.mux.Handle("POST /call-status", &handlers.StatusCallbackHandler{
		Followups: s.followups,
		Store:     s.store,
		Metrics:   s.metrics,
		Logger:    s.logger,
	})
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.promReg, promhttp.HandlerOpts{}))
	s.mux.Handle("/", handlers.NotFoundHandler{})
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = mw.Recover(s.logger, h)
	h = mw.AccessLog(s.logger, h)
	h = mw.RequestID(h)
	return h
}

// Shutdown stops background work owned by the server.
func (s *Server) Shutdown() {
	s.registry.Shutdown()
}

// smsAdapter narrows the Twilio client to the follow-up scheduler's needs,
// pinning the configured sending number.
type smsAdapter struct {
	client *twilio.Client
	from   string
}

func (a *smsAdapter) SendSMS(ctx context.Context, to, body string) error {
	_, err := a.client.SendSMS(ctx, a.from, to, body)
	return err
}

// liveOpener binds the fallback policy to the bridge's session interface,
// applying the phone-call audio formats and turn detection.
type liveOpener struct {
	policy *realtime.Policy
	logger *slog.Logger
}

func (o *liveOpener) OpenLive(ctx context.Context, voice, instructions string, onAudio func([]byte)) (call.VoiceSession, error) {
	return o.policy.OpenLive(ctx, realtime.SessionConfig{
		Voice:         voice,
		Instructions:  instructions,
		InputFormat:   "g711_ulaw",
		OutputFormat:  "g711_ulaw",
		TurnDetection: realtime.ServerVAD(),
		OnAudio:       onAudio,
		Logger:        o.logger,
	})
}
