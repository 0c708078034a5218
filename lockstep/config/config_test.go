package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valerio/go-lockstep/lockstep/resample"
)

func TestDefault(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, 16384, c.RingCapacity)
	assert.Equal(t, 6, c.CallbackPeriods)
	assert.Equal(t, 3, c.TargetLow)
	assert.Equal(t, 0.02, c.MaxCorrection)
	assert.Equal(t, 1, c.Speed)
	assert.Equal(t, 6144, c.HighWater())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		ok     bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"explicit device rate", func(c *Config) { c.SampleRate = 48000 }, true},
		{"negative rate", func(c *Config) { c.SampleRate = -1 }, false},
		{"too many channels", func(c *Config) { c.Channels = 9 }, false},
		{"zero period", func(c *Config) { c.SamplesPerCallback = 0 }, false},
		{"zero periods", func(c *Config) { c.CallbackPeriods = 0 }, false},
		{"ring too small", func(c *Config) { c.RingCapacity = 4096 }, false},
		{"target at periods", func(c *Config) { c.TargetLow = 6 }, false},
		{"target just below periods", func(c *Config) { c.TargetLow = 5 }, true},
		{"zero target", func(c *Config) { c.TargetLow = 0 }, true},
		{"negative scale", func(c *Config) { c.ScaleFactor = -1 }, false},
		{"zero correction", func(c *Config) { c.MaxCorrection = 0 }, false},
		{"full correction", func(c *Config) { c.MaxCorrection = 1 }, false},
		{"sinc", func(c *Config) { c.Quality = resample.QualitySinc }, true},
		{"bad quality", func(c *Config) { c.Quality = resample.Quality(-1) }, false},
		{"speed zero", func(c *Config) { c.Speed = 0 }, false},
		{"speed max", func(c *Config) { c.Speed = 16 }, true},
		{"speed over", func(c *Config) { c.Speed = 17 }, false},
		{"negative refresh", func(c *Config) { c.HostRefreshHz = -60 }, false},
		{"zero refresh falls back later", func(c *Config) { c.HostRefreshHz = 0 }, true},
		{"negative frametime", func(c *Config) { c.FrametimeHz = -1 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(&c)
			err := c.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalid)
			}
		})
	}
}
