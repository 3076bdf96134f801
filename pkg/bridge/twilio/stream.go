package twilio

import (
	"encoding/json"
	"fmt"
)

// StreamMessage is one frame of the Media Streams websocket protocol, in
// either direction. Fields are populated according to Event.
type StreamMessage struct {
	Event     string          `json:"event"`
	StreamSID string          `json:"streamSid,omitempty"`
	Start     *StreamStart    `json:"start,omitempty"`
	Media     *StreamMedia    `json:"media,omitempty"`
	Mark      *StreamMark     `json:"mark,omitempty"`
	Stop      *struct{}       `json:"stop,omitempty"`
	Sequence  json.RawMessage `json:"sequenceNumber,omitempty"`
}

// StreamStart is the metadata frame sent once when the stream opens.
type StreamStart struct {
	StreamSID        string            `json:"streamSid"`
	CallSID          string            `json:"callSid"`
	CustomParameters map[string]string `json:"customParameters"`
}

// StreamMedia carries one base64-encoded audio payload.
type StreamMedia struct {
	Payload string `json:"payload"`
}

// StreamMark is an acknowledgement marker frame.
type StreamMark struct {
	Name string `json:"name"`
}

// DecodeStreamMessage parses one inbound Media Streams frame.
func DecodeStreamMessage(raw []byte) (*StreamMessage, error) {
	var msg StreamMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("decode stream frame: %w", err)
	}
	return &msg, nil
}

// OutboundMedia builds the frame that plays audio into the call identified
// by streamSID. The payload must already be base64-encoded audio in the
// stream's negotiated codec.
func OutboundMedia(streamSID, payloadB64 string) StreamMessage {
	return StreamMessage{
		Event:     "media",
		StreamSID: streamSID,
		Media:     &StreamMedia{Payload: payloadB64},
	}
}
