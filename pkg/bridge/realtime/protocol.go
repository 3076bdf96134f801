// Package realtime speaks the xAI realtime voice protocol over a websocket:
// session configuration, text and audio input, and streamed audio output,
// with ordered model fallback for synthesis.
package realtime

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// TurnDetection configures server-side voice activity detection for live
// conversational sessions. A nil TurnDetection leaves VAD off.
type TurnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold"`
	PrefixPaddingMs   int     `json:"prefix_padding_ms"`
	SilenceDurationMs int     `json:"silence_duration_ms"`
}

// ServerVAD is the turn detection used for phone-call sessions.
func ServerVAD() *TurnDetection {
	return &TurnDetection{
		Type:              "server_vad",
		Threshold:         0.5,
		PrefixPaddingMs:   300,
		SilenceDurationMs: 500,
	}
}

type sessionPayload struct {
	Voice             string         `json:"voice"`
	Instructions      string         `json:"instructions"`
	InputAudioFormat  string         `json:"input_audio_format,omitempty"`
	OutputAudioFormat string         `json:"output_audio_format"`
	TurnDetection     *TurnDetection `json:"turn_detection,omitempty"`
}

type sessionUpdate struct {
	Type    string         `json:"type"`
	Session sessionPayload `json:"session"`
}

type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type conversationItem struct {
	Type    string        `json:"type"`
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type itemCreate struct {
	Type string           `json:"type"`
	Item conversationItem `json:"item"`
}

type responseCreate struct {
	Type string `json:"type"`
}

type audioAppend struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

func newSessionUpdate(cfg SessionConfig) sessionUpdate {
	return sessionUpdate{
		Type: "session.update",
		Session: sessionPayload{
			Voice:             cfg.Voice,
			Instructions:      cfg.Instructions,
			InputAudioFormat:  cfg.InputFormat,
			OutputAudioFormat: cfg.OutputFormat,
			TurnDetection:     cfg.TurnDetection,
		},
	}
}

func newUserText(text string) itemCreate {
	return itemCreate{
		Type: "conversation.item.create",
		Item: conversationItem{
			Type:    "message",
			Role:    "user",
			Content: []contentPart{{Type: "input_text", Text: text}},
		},
	}
}

// ServerMessage is a decoded backend frame. Exactly one of the variant
// methods applies; use the type switch over the concrete types below.
type ServerMessage interface {
	serverMessage()
}

// AudioDelta carries one chunk of decoded output audio.
type AudioDelta struct {
	Audio []byte
}

// Completed marks the end of a response turn.
type Completed struct{}

// SessionReady is the session.created / session.updated acknowledgement.
type SessionReady struct{}

// BackendError is a protocol-level error reported by the backend.
type BackendError struct {
	Code    string
	Message string
}

// Unknown is any frame type this client does not act on.
type Unknown struct {
	Type string
}

func (AudioDelta) serverMessage()   {}
func (Completed) serverMessage()    {}
func (SessionReady) serverMessage() {}
func (BackendError) serverMessage() {}
func (Unknown) serverMessage()      {}

func (e BackendError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend error %s: %s", e.Code, e.Message)
	}
	return "backend error: " + e.Message
}

type serverFrame struct {
	Type  string `json:"type"`
	Delta string `json:"delta"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// DecodeServerMessage maps one raw backend frame to its variant. Deltas and
// terminal events arrive under several spellings across backend versions;
// all are accepted.
func DecodeServerMessage(raw []byte) (ServerMessage, error) {
	var frame serverFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, fmt.Errorf("decode server frame: %w", err)
	}
	switch frame.Type {
	case "response.audio.delta", "response.output_audio.delta":
		audio, err := base64.StdEncoding.DecodeString(frame.Delta)
		if err != nil {
			return nil, fmt.Errorf("decode audio delta: %w", err)
		}
		return AudioDelta{Audio: audio}, nil
	case "response.done", "response.completed", "response.complete", "response.finished":
		return Completed{}, nil
	case "session.created", "session.updated":
		return SessionReady{}, nil
	case "error":
		be := BackendError{}
		if frame.Error != nil {
			be.Code = frame.Error.Code
			be.Message = frame.Error.Message
		}
		if be.Message == "" {
			be.Message = "unspecified backend error"
		}
		return be, nil
	default:
		return Unknown{Type: frame.Type}, nil
	}
}
