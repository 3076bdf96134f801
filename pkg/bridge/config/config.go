// Package config loads the bridge configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full configuration surface of the bridge server.
type Config struct {
	Addr string

	// PublicDomain is the externally reachable base URL of this server,
	// used to build the TwiML media-stream URL and the status callback URL.
	PublicDomain string

	// Realtime voice backend.
	XAIAPIKey     string
	RealtimeURL   string
	PrimaryModel  string
	FallbackModel string

	// Twilio REST credentials.
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioPhoneNumber string

	// Preview synthesis tuning.
	PreviewSampleRate int
	PreviewTimeout    time.Duration

	// Delay windows driving SMS scheduling and registry TTL.
	PreCallDelay  time.Duration
	PostCallDelay time.Duration

	// Optional Postgres call log. Empty disables it.
	DatabaseURL string

	ReadHeaderTimeout   time.Duration
	ShutdownGracePeriod time.Duration
}

// RegistryTTL returns how long registry entries must outlive their creation:
// both delay windows plus a safety margin, so an entry survives any scheduled
// action that still needs it.
func (c Config) RegistryTTL() time.Duration {
	return c.PreCallDelay + c.PostCallDelay + 10*time.Minute
}

// Models returns the ordered, de-duplicated fallback candidate list.
func (c Config) Models() []string {
	models := []string{c.PrimaryModel}
	if c.FallbackModel != "" && c.FallbackModel != c.PrimaryModel {
		models = append(models, c.FallbackModel)
	}
	return models
}

// TwilioConfigured reports whether outbound calls and SMS can be placed.
func (c Config) TwilioConfigured() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioPhoneNumber != ""
}

// VoiceConfigured reports whether the realtime backend credential is present.
func (c Config) VoiceConfigured() bool {
	return c.XAIAPIKey != ""
}

// LoadFromEnv builds a Config from environment variables, validating every
// field it can validate without external calls.
func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:                envOr("BRIDGE_ADDR", ":8081"),
		PublicDomain:        strings.TrimRight(envOr("BRIDGE_DOMAIN", ""), "/"),
		XAIAPIKey:           os.Getenv("XAI_API_KEY"),
		RealtimeURL:         envOr("XAI_REALTIME_URL", "wss://api.x.ai/v1/realtime"),
		PrimaryModel:        envOr("XAI_REALTIME_MODEL", "grok-4-realtime"),
		FallbackModel:       envOr("XAI_REALTIME_FALLBACK_MODEL", ""),
		TwilioAccountSID:    os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:     os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioPhoneNumber:   os.Getenv("TWILIO_PHONE_NUMBER"),
		PreviewSampleRate:   envIntOr("BRIDGE_PREVIEW_SAMPLE_RATE", 24000),
		PreviewTimeout:      envDurationOr("BRIDGE_PREVIEW_TIMEOUT", 22*time.Second),
		PreCallDelay:        time.Duration(envIntOr("BRIDGE_PRECALL_DELAY_MINUTES", 0)) * time.Minute,
		PostCallDelay:       time.Duration(envIntOr("BRIDGE_POSTCALL_DELAY_MINUTES", 2)) * time.Minute,
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		ReadHeaderTimeout:   envDurationOr("BRIDGE_READ_HEADER_TIMEOUT", 10*time.Second),
		ShutdownGracePeriod: envDurationOr("BRIDGE_SHUTDOWN_GRACE_PERIOD", 30*time.Second),
	}

	if cfg.Addr == "" {
		return Config{}, fmt.Errorf("BRIDGE_ADDR must not be empty")
	}
	if cfg.PublicDomain != "" {
		u, err := url.Parse(cfg.PublicDomain)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return Config{}, fmt.Errorf("BRIDGE_DOMAIN must be an absolute URL")
		}
	}
	if cfg.RealtimeURL == "" {
		return Config{}, fmt.Errorf("XAI_REALTIME_URL must not be empty")
	}
	if u, err := url.Parse(cfg.RealtimeURL); err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		return Config{}, fmt.Errorf("XAI_REALTIME_URL must be a ws(s) URL")
	}
	if cfg.PrimaryModel == "" {
		return Config{}, fmt.Errorf("XAI_REALTIME_MODEL must not be empty")
	}
	if cfg.PreviewSampleRate <= 0 {
		return Config{}, fmt.Errorf("BRIDGE_PREVIEW_SAMPLE_RATE must be > 0")
	}
	if cfg.PreviewTimeout <= 0 {
		return Config{}, fmt.Errorf("BRIDGE_PREVIEW_TIMEOUT must be > 0")
	}
	if cfg.PreCallDelay < 0 {
		return Config{}, fmt.Errorf("BRIDGE_PRECALL_DELAY_MINUTES must be >= 0")
	}
	if cfg.PostCallDelay < 0 {
		return Config{}, fmt.Errorf("BRIDGE_POSTCALL_DELAY_MINUTES must be >= 0")
	}
	if cfg.ReadHeaderTimeout <= 0 {
		return Config{}, fmt.Errorf("BRIDGE_READ_HEADER_TIMEOUT must be > 0")
	}
	if cfg.ShutdownGracePeriod <= 0 {
		return Config{}, fmt.Errorf("BRIDGE_SHUTDOWN_GRACE_PERIOD must be > 0")
	}

	return cfg, nil
}

// StreamURL returns the websocket URL Twilio should connect its media stream
// to, or an empty string when no public domain is configured.
func (c Config) StreamURL() string {
	if c.PublicDomain == "" {
		return ""
	}
	u := c.PublicDomain
	u = strings.Replace(u, "https://", "wss://", 1)
	u = strings.Replace(u, "http://", "ws://", 1)
	return u + "/media-stream"
}

// StatusCallbackURL returns the URL Twilio posts call status updates to.
func (c Config) StatusCallbackURL() string {
	if c.PublicDomain == "" {
		return ""
	}
	return c.PublicDomain + "/call-status"
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}
