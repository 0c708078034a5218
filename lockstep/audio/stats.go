package audio

import (
	"github.com/valerio/go-lockstep/lockstep/resample"
	"github.com/valerio/go-lockstep/lockstep/ring"
)

// Stats is a point-in-time view of the engine for diagnostics.
type Stats struct {
	ring.Stats

	ID string

	Occupancy int
	Capacity  int

	Ratio     float64
	Requested int // output frames asked of the resampler for the last block
	Generated int // output frames it produced
	LastInput int // input frames of the last block, after decimation
	Blocks    uint64

	Ticks  uint64
	Frames uint64

	Speed    int
	Paused   bool
	Muted    bool
	NullSink bool
	Quality  resample.Quality
}

// Stats collects counters from every stage. Producer-owned values are only
// consistent when read from the producer goroutine.
func (e *Engine) Stats() Stats {
	requested, generated := e.resampler.Last()
	return Stats{
		Stats:     e.ring.Stats(),
		ID:        e.id,
		Occupancy: e.ring.Len(),
		Capacity:  e.ring.Cap(),
		Ratio:     e.resampler.Ratio(),
		Requested: requested,
		Generated: generated,
		LastInput: int(e.lastFrames.Load()),
		Blocks:    e.blocks.Load(),
		Ticks:     e.pacer.Ticks(),
		Frames:    e.pacer.TotalFrames(),
		Speed:     e.speed.Multiplier(),
		Paused:    e.speed.Paused(),
		Muted:     e.speed.Muted(),
		NullSink:  e.nullSink.Load(),
		Quality:   e.resampler.Params().Quality,
	}
}

// Periods returns the fill level in callback periods, the unit the
// resampler corrects against.
func (s Stats) Periods(samplesPerCallback int) float64 {
	if samplesPerCallback <= 0 {
		return 0
	}
	return float64(s.Occupancy) / float64(samplesPerCallback)
}
