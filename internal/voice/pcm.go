// Package voice runs a live audio conversation with Buddy: captured
// microphone frames stream out as PCM16, reply audio is scheduled for
// gapless playback.
package voice

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

const (
	// InputRate is the capture sample rate in Hz.
	InputRate = 16000
	// OutputRate is the playback sample rate in Hz.
	OutputRate = 24000
	// FrameSamples is the number of samples per captured frame.
	FrameSamples = 4096
	// InputMIME labels outbound audio.
	InputMIME = "audio/pcm;rate=16000"
)

// EncodePCM16 converts float samples in [-1, 1] to signed 16-bit
// little-endian PCM. Out-of-range samples are clipped.
func EncodePCM16(samples []float32) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		binary.LittleEndian.PutUint16(out[2*i:], uint16(int16(s*math.MaxInt16)))
	}
	return out
}

// DecodePCM16 converts signed 16-bit little-endian PCM to float samples.
func DecodePCM16(data []byte) ([]float32, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("pcm16 payload has odd length %d", len(data))
	}
	out := make([]float32, len(data)/2)
	for i := range out {
		v := int16(binary.LittleEndian.Uint16(data[2*i:]))
		out[i] = float32(v) / 32768
	}
	return out, nil
}

// DecodeFloat32 converts little-endian float32 samples, the format clients
// send captured audio in.
func DecodeFloat32(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("float32 payload has length %d, not a multiple of 4", len(data))
	}
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return out, nil
}

// PCM16Duration is the playback length of a PCM16 mono payload at rate.
func PCM16Duration(data []byte, rate int) time.Duration {
	if rate <= 0 {
		return 0
	}
	samples := len(data) / 2
	return time.Duration(samples) * time.Second / time.Duration(rate)
}
