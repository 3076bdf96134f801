package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Policy runs sessions against an ordered list of candidate models, falling
// back to the next model only when the previous one failed before producing
// any output.
type Policy struct {
	Dialer Dialer
	Models []string
	Logger *slog.Logger

	// OnAttempt and OnFallback are optional instrumentation hooks. OnAttempt
	// fires once per candidate model; OnFallback fires each time a failure
	// moves the request to the next candidate.
	OnAttempt  func(model string, err error)
	OnFallback func()
}

func (p *Policy) noteAttempt(model string, err error) {
	if p.OnAttempt != nil {
		p.OnAttempt(model, err)
	}
}

func (p *Policy) noteFallback() {
	if p.OnFallback != nil {
		p.OnFallback()
	}
}

func (p *Policy) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// SynthesisRequest asks for a one-shot spoken rendition of a script.
type SynthesisRequest struct {
	Script       string
	Voice        string
	Instructions string
	IdleFinalize time.Duration
	HardTimeout  time.Duration
}

// Synthesize renders the request's script to PCM16 audio, trying each
// candidate model in order. Fallback happens on any failure, since a failed
// one-shot synthesis produced nothing a client could have consumed.
func (p *Policy) Synthesize(ctx context.Context, req SynthesisRequest) ([]byte, error) {
	if len(p.Models) == 0 {
		return nil, errors.New("no candidate models configured")
	}
	var lastErr error
	for i, model := range p.Models {
		if i > 0 {
			p.noteFallback()
		}
		audio, err := p.synthesizeOnce(ctx, model, req)
		p.noteAttempt(model, err)
		if err == nil {
			return audio, nil
		}
		lastErr = err
		p.logger().Warn("synthesis attempt failed", "model", model, "error", err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("all models failed: %w", lastErr)
}

func (p *Policy) synthesizeOnce(ctx context.Context, model string, req SynthesisRequest) ([]byte, error) {
	instructions := req.Instructions
	if instructions == "" {
		instructions = "Read the provided text aloud exactly as written."
	}
	s, err := Open(ctx, p.Dialer, SessionConfig{
		Model:        model,
		Voice:        req.Voice,
		Instructions: instructions,
		OutputFormat: "pcm16",
		IdleFinalize: req.IdleFinalize,
		HardTimeout:  req.HardTimeout,
		Logger:       p.logger(),
	})
	if err != nil {
		return nil, err
	}
	defer s.Close()
	if err := s.SpeakText(req.Script); err != nil {
		// A failed write usually means the backend already tore the
		// connection down; the settled outcome names the real cause.
		select {
		case out := <-s.Outcome():
			if out.Err != nil {
				return nil, out.Err
			}
		case <-time.After(time.Second):
		}
		return nil, fmt.Errorf("submit script: %w", err)
	}
	select {
	case out := <-s.Outcome():
		if out.Err != nil {
			return nil, out.Err
		}
		if len(out.Audio) == 0 {
			return nil, errors.New("session produced no audio")
		}
		return out.Audio, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// OpenLive opens a conversational session, trying fallback models only when
// the open itself fails. Once a live session is established, mid-call
// failures are not retried; the call ends instead.
func (p *Policy) OpenLive(ctx context.Context, cfg SessionConfig) (*Session, error) {
	if len(p.Models) == 0 {
		return nil, errors.New("no candidate models configured")
	}
	cfg.Live = true
	if cfg.Logger == nil {
		cfg.Logger = p.logger()
	}
	var lastErr error
	for i, model := range p.Models {
		if i > 0 {
			p.noteFallback()
		}
		cfg.Model = model
		s, err := Open(ctx, p.Dialer, cfg)
		p.noteAttempt(model, err)
		if err == nil {
			return s, nil
		}
		lastErr = err
		p.logger().Warn("live session open failed", "model", model, "error", err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("all models failed: %w", lastErr)
}
