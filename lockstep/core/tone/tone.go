// Package tone is a small synthetic core: a pulse channel with selectable
// duty cycle and a volume envelope, stepped one emulated frame at a time.
// It produces real audio at an arbitrary FPS, which makes it useful for
// exercising the pacing and resampling pipeline without a full emulator.
package tone

import (
	"fmt"
	"sync"

	"github.com/valerio/go-lockstep/lockstep/core"
)

const (
	fpShift         = 16
	dutyPhases      = 8
	sampleAmplitude = 2048 // per volume step, 15 steps fit in int16
	maxVolume       = 15
	envelopeHz      = 64
)

// Duty cycle waveforms, one bit per eighth of a period.
var dutyPatterns = [4]uint8{
	0b00000001, // 12.5%
	0b00000011, // 25%
	0b00001111, // 50%
	0b11111100, // 75%
}

// Config describes the generated tone.
type Config struct {
	SampleRate int
	Channels   int
	FPS        float64

	Frequency float64 // Hz
	Duty      uint8   // index into the duty patterns, 0-3
	Volume    uint8   // 0-15

	// EnvelopeUp and EnvelopePace mimic the classic volume envelope: every
	// pace/64 seconds the volume steps once. Zero pace holds the volume.
	EnvelopeUp   bool
	EnvelopePace uint8
}

// DefaultConfig is a 440Hz square wave on a stereo 44.1kHz, 60.0988Hz core.
func DefaultConfig() Config {
	return Config{
		SampleRate: 44100,
		Channels:   2,
		FPS:        60.0988,
		Frequency:  440,
		Duty:       2,
		Volume:     10,
	}
}

// Core generates a pulse wave block per RunFrame.
type Core struct {
	mu sync.Mutex

	cfg      Config
	splitter *core.FrameSplitter

	counter   uint32 // 16.16 fixed-point position within the period
	period    uint32 // samples per period, 16.16 fixed-point
	volume    uint8
	envTimer  int
	envPeriod int // samples between envelope steps

	frames  uint64
	samples []int16
}

var _ core.Core = (*Core)(nil)

// New validates cfg and returns a core ready to run.
func New(cfg Config) (*Core, error) {
	info := core.AudioInfo{SampleRate: cfg.SampleRate, Channels: cfg.Channels, FPS: cfg.FPS}
	if err := info.Validate(); err != nil {
		return nil, err
	}
	if cfg.Duty > 3 {
		return nil, fmt.Errorf("tone: duty %d out of range", cfg.Duty)
	}
	if cfg.Volume > maxVolume {
		return nil, fmt.Errorf("tone: volume %d out of range", cfg.Volume)
	}

	c := &Core{
		cfg:      cfg,
		splitter: core.NewFrameSplitter(cfg.SampleRate, cfg.FPS),
		volume:   cfg.Volume,
	}
	c.setFrequency(cfg.Frequency)
	if cfg.EnvelopePace > 0 {
		c.envPeriod = cfg.SampleRate * int(cfg.EnvelopePace) / envelopeHz
	}
	return c, nil
}

func (c *Core) setFrequency(hz float64) {
	if hz <= 0 || hz*2 > float64(c.cfg.SampleRate) {
		c.period = 0
		return
	}
	c.period = uint32(float64(c.cfg.SampleRate) / hz * (1 << fpShift))
}

// SetFrequency retunes the pulse channel; zero silences it.
func (c *Core) SetFrequency(hz float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.Frequency = hz
	c.setFrequency(hz)
}

func (c *Core) AudioInfo() core.AudioInfo {
	return core.AudioInfo{
		SampleRate:      c.cfg.SampleRate,
		Channels:        c.cfg.Channels,
		SamplesPerFrame: int(float64(c.cfg.SampleRate)/c.cfg.FPS + 0.5),
		FPS:             c.cfg.FPS,
	}
}

// RunFrame produces one frame of samples. Frame lengths vary by one sample
// so that the long-run rate matches SampleRate exactly.
func (c *Core) RunFrame() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.splitter.Next()
	ch := c.cfg.Channels
	if cap(c.samples) < n*ch {
		c.samples = make([]int16, n*ch)
	}
	c.samples = c.samples[:n*ch]

	for i := 0; i < n; i++ {
		s := c.generate()
		for j := 0; j < ch; j++ {
			c.samples[i*ch+j] = s
		}
	}
	c.frames++
	return nil
}

// generate follows the duty pattern at the current phase and steps the
// envelope.
func (c *Core) generate() int16 {
	if c.envPeriod > 0 {
		c.envTimer++
		if c.envTimer >= c.envPeriod {
			c.envTimer = 0
			if c.cfg.EnvelopeUp && c.volume < maxVolume {
				c.volume++
			} else if !c.cfg.EnvelopeUp && c.volume > 0 {
				c.volume--
			}
		}
	}

	if c.volume == 0 || c.period == 0 {
		return 0
	}

	c.counter += 1 << fpShift
	if c.counter >= c.period {
		c.counter %= c.period
	}

	pattern := dutyPatterns[c.cfg.Duty&3]
	phase := uint64(c.counter) * dutyPhases / uint64(c.period)
	if (pattern>>(7-phase))&1 == 1 {
		return int16(c.volume) * sampleAmplitude
	}
	return -int16(c.volume) * sampleAmplitude
}

func (c *Core) Samples() []int16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.samples
}

// Frames returns how many frames have run.
func (c *Core) Frames() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames
}

// Volume returns the current envelope volume.
func (c *Core) Volume() uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.volume
}
