// Package device holds the adapters between the audio engine and the host's
// audio output. A device owns the consumer side: it calls Sink.Fill from its
// own callback thread whenever the output needs more samples.
package device

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// ErrUnavailable means the output could not be opened: missing hardware,
// missing build support, or a busy device.
var ErrUnavailable = errors.New("device: audio output unavailable")

// Sink is the single capability a device needs from the engine. Fill must
// write exactly len(buf) samples and must not block.
type Sink interface {
	Fill(buf []int16)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(buf []int16)

func (f SinkFunc) Fill(buf []int16) { f(buf) }

// Spec describes the stream a device is opened with. Samples are signed
// 16-bit, interleaved.
type Spec struct {
	SampleRate         int
	Channels           int
	SamplesPerCallback int // one callback period, in samples
}

func (s Spec) Validate() error {
	switch {
	case s.SampleRate <= 0:
		return fmt.Errorf("device: sample rate %d", s.SampleRate)
	case s.Channels <= 0:
		return fmt.Errorf("device: %d channels", s.Channels)
	case s.SamplesPerCallback < s.Channels:
		return fmt.Errorf("device: callback period of %d samples", s.SamplesPerCallback)
	}
	return nil
}

// FramesPerCallback returns the callback period in frames.
func (s Spec) FramesPerCallback() int {
	return s.SamplesPerCallback / s.Channels
}

// Period returns the wall-clock length of one callback.
func (s Spec) Period() time.Duration {
	return time.Duration(s.FramesPerCallback()) * time.Second / time.Duration(s.SampleRate)
}

// Device is a host audio output.
type Device interface {
	// Open starts the output, pulling samples from sink. Errors wrap
	// ErrUnavailable when the output cannot be used at all.
	Open(sink Sink, spec Spec) error

	// Close stops the callback thread. Fill is never called after Close
	// returns.
	Close() error

	Name() string
}

// EncodePCM16LE writes src as little-endian bytes into dst, which must hold
// 2*len(src) bytes, and returns the bytes written.
func EncodePCM16LE(dst []byte, src []int16) int {
	for i, s := range src {
		binary.LittleEndian.PutUint16(dst[i*2:], uint16(s))
	}
	return len(src) * 2
}
