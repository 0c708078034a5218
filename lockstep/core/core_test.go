package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAudioInfo_Validate(t *testing.T) {
	tests := []struct {
		name string
		info AudioInfo
		ok   bool
	}{
		{"stereo 44.1k", AudioInfo{SampleRate: 44100, Channels: 2, FPS: 60}, true},
		{"zero rate", AudioInfo{Channels: 2, FPS: 60}, false},
		{"zero channels", AudioInfo{SampleRate: 44100, FPS: 60}, false},
		{"zero fps", AudioInfo{SampleRate: 44100, Channels: 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.info.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidAudioInfo)
			}
		})
	}
}

func TestAudioInfo_FrameSamples(t *testing.T) {
	assert.Equal(t, 1470, AudioInfo{SampleRate: 44100, Channels: 2, FPS: 60}.FrameSamples())
	assert.Equal(t, 1600, AudioInfo{SampleRate: 48000, Channels: 2, FPS: 60, SamplesPerFrame: 800}.FrameSamples())
}

func TestFrameSplitter_Conserves(t *testing.T) {
	tests := []struct {
		name string
		rate int
		fps  float64
	}{
		{"even", 48000, 60},
		{"uneven", 44100, 60},
		{"fractional fps", 44100, 59.7275},
		{"pal", 32000, 50.007},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewFrameSplitter(tt.rate, tt.fps)
			const frames = 6000
			total := 0
			for i := 0; i < frames; i++ {
				total += s.Next()
			}
			fps := math.Round(tt.fps*1000) / 1000
			expected := float64(frames) * float64(tt.rate) / fps
			assert.InDelta(t, expected, float64(total), 1.5)
		})
	}
}
