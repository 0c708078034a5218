// Package core defines the emulation core as seen by the frame loop and the
// audio engine: something that runs one frame at a time and leaves behind a
// block of interleaved samples.
package core

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidAudioInfo = errors.New("core: invalid audio info")

// AudioInfo describes a core's audio output.
type AudioInfo struct {
	SampleRate      int     // native output rate in Hz
	Channels        int     // interleaved channel count
	SamplesPerFrame int     // nominal frames of audio per emulated frame
	FPS             float64 // nominal emulation rate in Hz
}

// Validate checks that the info can drive the engine.
func (i AudioInfo) Validate() error {
	switch {
	case i.SampleRate <= 0:
		return fmt.Errorf("%w: sample rate %d", ErrInvalidAudioInfo, i.SampleRate)
	case i.Channels <= 0:
		return fmt.Errorf("%w: %d channels", ErrInvalidAudioInfo, i.Channels)
	case i.FPS <= 0 || math.IsNaN(i.FPS) || math.IsInf(i.FPS, 0):
		return fmt.Errorf("%w: fps %v", ErrInvalidAudioInfo, i.FPS)
	}
	return nil
}

// FrameSamples returns the nominal interleaved sample count of one frame.
func (i AudioInfo) FrameSamples() int {
	if i.SamplesPerFrame > 0 {
		return i.SamplesPerFrame * i.Channels
	}
	return int(math.Round(float64(i.SampleRate)/i.FPS)) * i.Channels
}

// Core is an emulation core driven one frame at a time.
type Core interface {
	AudioInfo() AudioInfo

	// RunFrame emulates one frame and refreshes the sample block.
	RunFrame() error

	// Samples returns the block produced by the last RunFrame. The slice is
	// owned by the core and valid until the next call.
	Samples() []int16
}

// FrameSplitter spreads a sample rate over frames at a fractional FPS,
// carrying the remainder so no audio is gained or lost over time. It is the
// audio-side twin of timing.Pacer.
type FrameSplitter struct {
	rate      int64 // samples per second, scaled by 1000
	fps       int64 // frames per second, scaled by 1000
	remainder int64
}

// NewFrameSplitter returns a splitter for sampleRate at fps frames per second.
func NewFrameSplitter(sampleRate int, fps float64) *FrameSplitter {
	return &FrameSplitter{
		rate: int64(sampleRate) * 1000,
		fps:  max(int64(math.Round(fps*1000)), 1),
	}
}

// Next returns the number of audio frames the next emulated frame produces.
func (s *FrameSplitter) Next() int {
	n := s.rate / s.fps
	s.remainder += s.rate % s.fps
	if s.remainder >= s.fps {
		n++
		s.remainder -= s.fps
	}
	return int(n)
}
