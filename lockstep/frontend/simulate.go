package frontend

import (
	"log/slog"

	"github.com/valerio/go-lockstep/lockstep/audio"
	"github.com/valerio/go-lockstep/lockstep/input"
)

// Simulated wraps a display and drains a manually driven device at a fixed
// rate, standing in for a sound card clock. A non-zero skew makes that
// clock run fast or slow relative to the host tick, which is what the
// adaptive resampler has to absorb.
type Simulated struct {
	Display

	pull    func() error
	period  float64 // samples per device callback
	perTick float64 // samples consumed per host tick
	owed    float64
	pulls   uint64
}

// NewSimulated drains samplesPerCallback samples through pull whenever a
// period's worth of device time has elapsed. rate and channels describe the
// device stream, hostHz the tick rate and skewPPM the clock error in parts
// per million.
func NewSimulated(inner Display, pull func() error, samplesPerCallback, rate, channels int, hostHz, skewPPM float64) *Simulated {
	if hostHz <= 0 {
		hostHz = 60
	}
	return &Simulated{
		Display: inner,
		pull:    pull,
		period:  float64(samplesPerCallback),
		perTick: float64(rate*channels) * (1 + skewPPM/1e6) / hostHz,
	}
}

// Update runs the callbacks that came due during the last tick, then
// updates the wrapped display.
func (s *Simulated) Update(stats audio.Stats) ([]input.Event, error) {
	s.owed += s.perTick
	for s.owed >= s.period {
		s.owed -= s.period
		s.pulls++
		if err := s.pull(); err != nil {
			slog.Warn("Simulated device callback failed", "error", err, "pulls", s.pulls)
		}
	}
	return s.Display.Update(stats)
}

// Pulls returns how many device callbacks have run.
func (s *Simulated) Pulls() uint64 { return s.pulls }
