package audio

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	pcm := make([]byte, 4800)
	for i := range pcm {
		pcm[i] = byte(i % 251)
	}

	artifact := Encode(pcm, 24000)
	if len(artifact) != HeaderSize+len(pcm) {
		t.Fatalf("artifact length = %d, want %d", len(artifact), HeaderSize+len(pcm))
	}

	h, body, err := Decode(artifact)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if h.Format != 1 {
		t.Errorf("Format = %d, want 1 (PCM)", h.Format)
	}
	if h.Channels != 1 {
		t.Errorf("Channels = %d, want 1", h.Channels)
	}
	if h.SampleRate != 24000 {
		t.Errorf("SampleRate = %d, want 24000", h.SampleRate)
	}
	if h.ByteRate != 48000 {
		t.Errorf("ByteRate = %d, want 48000", h.ByteRate)
	}
	if h.BlockAlign != 2 {
		t.Errorf("BlockAlign = %d, want 2", h.BlockAlign)
	}
	if h.BitDepth != 16 {
		t.Errorf("BitDepth = %d, want 16", h.BitDepth)
	}
	if h.DataLen != len(pcm) {
		t.Errorf("DataLen = %d, want %d", h.DataLen, len(pcm))
	}
	if !bytes.Equal(body, pcm) {
		t.Error("body does not round-trip")
	}
}

func TestEncodeEmptyInput(t *testing.T) {
	t.Parallel()

	artifact := Encode(nil, 8000)
	if len(artifact) != HeaderSize {
		t.Fatalf("artifact length = %d, want %d", len(artifact), HeaderSize)
	}
	h, body, err := Decode(artifact)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if h.DataLen != 0 || len(body) != 0 {
		t.Errorf("empty input produced DataLen=%d body=%d", h.DataLen, len(body))
	}
	if h.SampleRate != 8000 {
		t.Errorf("SampleRate = %d, want 8000", h.SampleRate)
	}
}

func TestDecodeRejectsTruncatedOrForeignData(t *testing.T) {
	t.Parallel()

	if _, _, err := Decode([]byte("short")); err == nil {
		t.Error("expected error for truncated artifact")
	}

	junk := make([]byte, HeaderSize)
	copy(junk, "JUNKJUNKJUNK")
	if _, _, err := Decode(junk); err == nil {
		t.Error("expected error for non-RIFF artifact")
	}
}
