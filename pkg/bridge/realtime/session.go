package realtime

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Dialer opens a websocket to the voice backend for a given model.
type Dialer interface {
	Dial(ctx context.Context, model string) (*websocket.Conn, error)
}

// BackendDialer dials the xAI realtime endpoint with bearer auth, selecting
// the model via query parameter.
type BackendDialer struct {
	URL    string
	APIKey string
}

func (d *BackendDialer) Dial(ctx context.Context, model string) (*websocket.Conn, error) {
	u, err := url.Parse(d.URL)
	if err != nil {
		return nil, fmt.Errorf("parse realtime url: %w", err)
	}
	q := u.Query()
	q.Set("model", model)
	u.RawQuery = q.Encode()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+d.APIKey)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial realtime backend: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial realtime backend: %w", err)
	}
	return conn, nil
}

// SessionConfig describes one realtime session. Live sessions forward every
// audio chunk through OnAudio and never finalize on turn completion; preview
// sessions collect chunks and settle when the response ends or goes idle.
type SessionConfig struct {
	Model         string
	Voice         string
	Instructions  string
	InputFormat   string
	OutputFormat  string
	TurnDetection *TurnDetection

	Live    bool
	OnAudio func(chunk []byte)

	// Preview-only timers. IdleFinalize settles with the audio collected so
	// far once the delta stream pauses; HardTimeout fails the session if no
	// audio arrives at all.
	IdleFinalize time.Duration
	HardTimeout  time.Duration

	Logger *slog.Logger
}

// Outcome is the terminal result of a session, delivered exactly once.
type Outcome struct {
	Audio []byte
	Err   error
}

// Session is one live websocket session with the voice backend.
type Session struct {
	conn *websocket.Conn
	cfg  SessionConfig
	log  *slog.Logger

	writeMu sync.Mutex

	mu        sync.Mutex
	chunks    [][]byte
	gotAudio  bool
	idleTimer *time.Timer
	hardTimer *time.Timer

	settleOnce sync.Once
	closeOnce  sync.Once
	outcome    chan Outcome
}

// Open dials the backend and sends the session configuration. A dial or
// configuration-write failure is returned here, before any output could have
// been produced, which makes it safe to retry on a fallback model.
func Open(ctx context.Context, d Dialer, cfg SessionConfig) (*Session, error) {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	conn, err := d.Dial(ctx, cfg.Model)
	if err != nil {
		return nil, err
	}
	s := &Session{
		conn:    conn,
		cfg:     cfg,
		log:     log.With("model", cfg.Model),
		outcome: make(chan Outcome, 1),
	}
	if err := s.writeJSON(newSessionUpdate(cfg)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send session config: %w", err)
	}
	if !cfg.Live && cfg.HardTimeout > 0 {
		s.hardTimer = time.AfterFunc(cfg.HardTimeout, func() {
			s.settle(Outcome{Err: errors.New("no audio before deadline")})
		})
	}
	go s.readLoop()
	return s, nil
}

// Outcome returns the channel on which the session's single terminal result
// is delivered.
func (s *Session) Outcome() <-chan Outcome { return s.outcome }

// SpeakText submits text as a user turn and asks the backend to respond.
func (s *Session) SpeakText(text string) error {
	if err := s.writeJSON(newUserText(text)); err != nil {
		return err
	}
	return s.writeJSON(responseCreate{Type: "response.create"})
}

// AppendAudioB64 forwards one chunk of caller audio, already base64 encoded
// as it arrives from the telephony stream.
func (s *Session) AppendAudioB64(payload string) error {
	return s.writeJSON(audioAppend{Type: "input_audio_buffer.append", Audio: payload})
}

// Close tears the session down. If no audio was ever produced the outcome is
// a failure; otherwise whatever was collected stands. Idempotent.
func (s *Session) Close() {
	s.settle(Outcome{Err: errors.New("session closed before audio response")})
	s.closeConn()
}

func (s *Session) writeJSON(v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(v)
}

func (s *Session) closeConn() {
	s.closeOnce.Do(func() {
		s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		s.conn.Close()
	})
}

// settle delivers the terminal outcome exactly once. A success recorded
// earlier cannot be downgraded: if audio was collected, any later failure
// settles as success with that audio.
func (s *Session) settle(out Outcome) {
	s.settleOnce.Do(func() {
		s.mu.Lock()
		if s.idleTimer != nil {
			s.idleTimer.Stop()
		}
		if s.hardTimer != nil {
			s.hardTimer.Stop()
		}
		if out.Err != nil && s.gotAudio {
			out = Outcome{Audio: s.joinLocked()}
		} else if out.Err == nil && out.Audio == nil {
			out.Audio = s.joinLocked()
		}
		s.mu.Unlock()
		s.outcome <- out
		s.closeConn()
	})
}

func (s *Session) joinLocked() []byte {
	var n int
	for _, c := range s.chunks {
		n += len(c)
	}
	joined := make([]byte, 0, n)
	for _, c := range s.chunks {
		joined = append(joined, c...)
	}
	return joined
}

func (s *Session) readLoop() {
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			s.settle(Outcome{Err: fmt.Errorf("backend connection lost: %w", err)})
			return
		}
		msg, err := DecodeServerMessage(raw)
		if err != nil {
			s.log.Warn("undecodable backend frame", "error", err)
			continue
		}
		switch m := msg.(type) {
		case AudioDelta:
			s.onAudio(m.Audio)
		case Completed:
			if !s.cfg.Live {
				s.settle(Outcome{})
				return
			}
		case SessionReady:
			s.log.Debug("session ready")
		case BackendError:
			s.log.Error("backend reported error", "code", m.Code, "message", m.Message)
			s.settle(Outcome{Err: m})
			return
		case Unknown:
			s.log.Debug("ignoring backend frame", "type", m.Type)
		}
	}
}

func (s *Session) onAudio(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	s.mu.Lock()
	s.gotAudio = true
	if s.hardTimer != nil {
		s.hardTimer.Stop()
		s.hardTimer = nil
	}
	if s.cfg.Live {
		s.mu.Unlock()
		if s.cfg.OnAudio != nil {
			s.cfg.OnAudio(chunk)
		}
		return
	}
	s.chunks = append(s.chunks, chunk)
	if s.cfg.IdleFinalize > 0 {
		if s.idleTimer != nil {
			s.idleTimer.Stop()
		}
		s.idleTimer = time.AfterFunc(s.cfg.IdleFinalize, func() {
			s.settle(Outcome{})
		})
	}
	s.mu.Unlock()
}

// EncodeAudioB64 is the inverse of the media-stream payload decode, used
// when forwarding backend audio to the telephony leg.
func EncodeAudioB64(chunk []byte) string {
	return base64.StdEncoding.EncodeToString(chunk)
}
