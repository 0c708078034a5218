// Package timing decides how many emulated frames run per host display tick
// and provides the limiters that produce those ticks.
package timing

import (
	"log/slog"
	"math"
)

const (
	// FallbackRefreshRate substitutes for a zero or implausible host rate, in Hz.
	FallbackRefreshRate = 60
	// MaxRefreshRate is the highest host rate taken at face value, in Hz.
	MaxRefreshRate = 1000
	// Scale converts Hz to the integer units used by NewScaledPacer.
	Scale = 1000
)

// Pacer spreads a nominal emulation rate over host ticks with bounded error.
//
// Frametime and refresh rate share one unit (emulated frames and host ticks
// per unit of time). Every tick runs frametime/refresh frames, and the
// leftover fraction accumulates until it amounts to a whole frame, so after
// T ticks the frame total is within one frame of T*frametime/refresh.
type Pacer struct {
	frametime   int
	refreshRate int
	remainder   int
	unit        int

	ticks  uint64
	frames uint64
}

// NewPacer returns a pacer using raw integer units, where the fallback
// refresh rate is FallbackRefreshRate.
func NewPacer(frametime, hostRefreshRate int) *Pacer {
	p := &Pacer{unit: 1}
	p.frametime = max(frametime, 0)
	p.SetRefreshRate(hostRefreshRate)
	return p
}

// NewScaledPacer builds a pacer from rates in Hz, scaled by Scale so
// fractional rates such as 60.0988 pace exactly.
func NewScaledPacer(coreHz, hostHz float64) *Pacer {
	p := &Pacer{unit: Scale}
	p.frametime = Scaled(coreHz)
	p.SetRefreshRate(Scaled(hostHz))
	return p
}

// Scaled converts a rate in Hz to Scale units.
func Scaled(hz float64) int {
	if hz <= 0 || math.IsNaN(hz) || math.IsInf(hz, 0) {
		return 0
	}
	return int(math.Round(hz * Scale))
}

// Tick advances the pacer by one host tick and returns the number of frames
// to emulate during it.
func (p *Pacer) Tick() int {
	frames := p.frametime / p.refreshRate
	p.remainder += p.frametime % p.refreshRate
	if p.remainder >= p.refreshRate {
		frames++
		p.remainder -= p.refreshRate
	}

	p.ticks++
	p.frames += uint64(frames)
	return frames
}

// SetFrametime changes the nominal emulation rate. The accumulated
// remainder is cleared on a change so the switch doesn't burst frames.
func (p *Pacer) SetFrametime(frametime int) {
	frametime = max(frametime, 0)
	if frametime == p.frametime {
		return
	}
	p.frametime = frametime
	p.remainder = 0
}

// SetRefreshRate changes the host rate, substituting the fallback for zero
// or implausible values.
func (p *Pacer) SetRefreshRate(rate int) {
	if rate <= 0 || rate > MaxRefreshRate*p.unit {
		slog.Warn("Implausible host refresh rate, using fallback",
			"rate", rate, "fallback", FallbackRefreshRate*p.unit)
		rate = FallbackRefreshRate * p.unit
	}
	p.refreshRate = rate
	if p.remainder >= rate {
		p.remainder %= rate
	}
}

// Frametime returns the nominal emulation rate in pacer units.
func (p *Pacer) Frametime() int { return p.frametime }

// RefreshRate returns the host rate in pacer units.
func (p *Pacer) RefreshRate() int { return p.refreshRate }

// Remainder returns the accumulated fractional frame, always below the
// refresh rate.
func (p *Pacer) Remainder() int { return p.remainder }

// Ticks returns the number of ticks taken.
func (p *Pacer) Ticks() uint64 { return p.ticks }

// TotalFrames returns the number of frames scheduled so far.
func (p *Pacer) TotalFrames() uint64 { return p.frames }

// TickMs returns the host tick length in milliseconds.
func (p *Pacer) TickMs() float64 {
	return 1000 * float64(p.unit) / float64(p.refreshRate)
}
