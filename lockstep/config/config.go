package config

import (
	"errors"
	"fmt"

	"github.com/valerio/go-lockstep/lockstep/resample"
	"github.com/valerio/go-lockstep/lockstep/speed"
	"github.com/valerio/go-lockstep/lockstep/timing"
)

var ErrInvalid = errors.New("config: invalid value")

// Config holds the audio engine and frontend settings. Values reach the
// engine already validated; the CLI is the only place that parses them.
type Config struct {
	// Device side
	SampleRate         int // device sample rate; zero means the core's rate
	Channels           int // zero means the core's channel count
	SamplesPerCallback int // device period in samples
	CallbackPeriods    int // max ring occupancy in device periods
	Device             string
	WAVPath            string // capture file for the wav device

	// Ring buffer and correction
	RingCapacity  int
	TargetLow     int
	ScaleFactor   int
	MaxCorrection float64
	Quality       resample.Quality

	// Frontend
	Speed         int
	Mute          bool
	HostRefreshHz float64
	FrametimeHz   float64 // nominal core rate; zero means the core's FPS
}

// Default returns the stock settings: a 16384-sample ring, at most six
// callback periods queued with correction below three, and a 2% bound.
func Default() Config {
	return Config{
		SampleRate:         0,
		Channels:           0,
		SamplesPerCallback: 1024,
		CallbackPeriods:    6,
		Device:             "oto",
		RingCapacity:       16384,
		TargetLow:          resample.DefaultTargetLow,
		ScaleFactor:        resample.DefaultScaleFactor,
		MaxCorrection:      resample.DefaultMaxCorrection,
		Quality:            resample.QualityLinear,
		Speed:              1,
		HostRefreshHz:      timing.FallbackRefreshRate,
	}
}

// Validate reports the first setting that cannot be used.
func (c Config) Validate() error {
	switch {
	case c.SampleRate < 0:
		return fmt.Errorf("%w: sample rate %d", ErrInvalid, c.SampleRate)
	case c.Channels < 0 || c.Channels > 8:
		return fmt.Errorf("%w: %d channels", ErrInvalid, c.Channels)
	case c.SamplesPerCallback <= 0:
		return fmt.Errorf("%w: samples per callback %d", ErrInvalid, c.SamplesPerCallback)
	case c.CallbackPeriods <= 0:
		return fmt.Errorf("%w: callback periods %d", ErrInvalid, c.CallbackPeriods)
	case c.RingCapacity < c.SamplesPerCallback*c.CallbackPeriods:
		return fmt.Errorf("%w: ring capacity %d below %d callback periods of %d samples",
			ErrInvalid, c.RingCapacity, c.CallbackPeriods, c.SamplesPerCallback)
	case c.TargetLow < 0 || c.TargetLow >= c.CallbackPeriods:
		return fmt.Errorf("%w: target window %d outside [0, %d)", ErrInvalid, c.TargetLow, c.CallbackPeriods)
	case c.ScaleFactor < 0:
		return fmt.Errorf("%w: scale factor %d", ErrInvalid, c.ScaleFactor)
	case c.MaxCorrection <= 0 || c.MaxCorrection >= 1:
		return fmt.Errorf("%w: max correction %v", ErrInvalid, c.MaxCorrection)
	case !c.Quality.Valid():
		return fmt.Errorf("%w: resample quality %d", ErrInvalid, int(c.Quality))
	case c.Speed < speed.MinMultiplier || c.Speed > speed.MaxMultiplier:
		return fmt.Errorf("%w: speed %d outside [%d, %d]", ErrInvalid, c.Speed, speed.MinMultiplier, speed.MaxMultiplier)
	case c.HostRefreshHz < 0:
		return fmt.Errorf("%w: host refresh %vHz", ErrInvalid, c.HostRefreshHz)
	case c.FrametimeHz < 0:
		return fmt.Errorf("%w: frametime %vHz", ErrInvalid, c.FrametimeHz)
	}
	return nil
}

// HighWater is the occupancy at which the producer starts waiting.
func (c Config) HighWater() int {
	return c.SamplesPerCallback * c.CallbackPeriods
}
