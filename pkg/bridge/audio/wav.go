// Package audio packages raw PCM samples into a playable WAV container.
package audio

import (
	"encoding/binary"
	"fmt"
)

// HeaderSize is the fixed size of the RIFF/WAVE descriptor this package emits.
const HeaderSize = 44

const (
	formatPCM     = 1
	bitsPerSample = 16
	channels      = 1
)

// Encode wraps raw 16-bit little-endian mono PCM data with a WAV header.
// The input is not copied until the single output allocation; a zero-length
// input yields a valid header-only artifact.
func Encode(pcm []byte, sampleRate int) []byte {
	dataLen := len(pcm)
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	out := make([]byte, HeaderSize, HeaderSize+dataLen)

	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+dataLen))
	copy(out[8:12], "WAVE")

	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16)
	binary.LittleEndian.PutUint16(out[20:22], formatPCM)
	binary.LittleEndian.PutUint16(out[22:24], channels)
	binary.LittleEndian.PutUint32(out[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:36], bitsPerSample)

	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(dataLen))

	return append(out, pcm...)
}

// Header is the decoded fixed-format WAV descriptor.
type Header struct {
	Format     uint16
	Channels   uint16
	SampleRate int
	ByteRate   int
	BlockAlign uint16
	BitDepth   uint16
	DataLen    int
}

// Decode splits a WAV artifact produced by Encode into its header fields and
// PCM body. It exists to validate artifacts; the bridge itself only encodes.
func Decode(artifact []byte) (Header, []byte, error) {
	if len(artifact) < HeaderSize {
		return Header{}, nil, fmt.Errorf("artifact too short: %d bytes", len(artifact))
	}
	if string(artifact[0:4]) != "RIFF" || string(artifact[8:12]) != "WAVE" {
		return Header{}, nil, fmt.Errorf("not a RIFF/WAVE artifact")
	}
	if string(artifact[36:40]) != "data" {
		return Header{}, nil, fmt.Errorf("missing data chunk")
	}

	h := Header{
		Format:     binary.LittleEndian.Uint16(artifact[20:22]),
		Channels:   binary.LittleEndian.Uint16(artifact[22:24]),
		SampleRate: int(binary.LittleEndian.Uint32(artifact[24:28])),
		ByteRate:   int(binary.LittleEndian.Uint32(artifact[28:32])),
		BlockAlign: binary.LittleEndian.Uint16(artifact[32:34]),
		BitDepth:   binary.LittleEndian.Uint16(artifact[34:36]),
		DataLen:    int(binary.LittleEndian.Uint32(artifact[40:44])),
	}
	body := artifact[HeaderSize:]
	if h.DataLen != len(body) {
		return Header{}, nil, fmt.Errorf("data length %d does not match body %d", h.DataLen, len(body))
	}
	return h, body, nil
}
