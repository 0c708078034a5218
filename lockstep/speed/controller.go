// Package speed scales frame execution and audio throughput together so
// video and audio stay in lockstep under fast-forward, pause and mute.
package speed

import (
	"log/slog"
	"math"
)

const (
	MinMultiplier = 1
	MaxMultiplier = 16
)

// Controller holds the frames-per-tick multiplier and the sample
// decimation divisor as separate parameters. SetSpeed moves both together;
// SetDivisor exists so the audio side can be tested on its own.
//
// Controller is touched only by the producer and is not safe for
// concurrent use.
type Controller struct {
	multiplier int
	divisor    int
	paused     bool
	muted      bool
}

// New returns a controller running at normal speed.
func New() *Controller {
	return &Controller{multiplier: 1, divisor: 1}
}

// SetSpeed sets the fast-forward multiplier, clamped to
// [MinMultiplier, MaxMultiplier], and returns the value applied.
func (c *Controller) SetSpeed(m int) int {
	clamped := min(max(m, MinMultiplier), MaxMultiplier)
	if clamped != m {
		slog.Debug("Speed multiplier clamped", "requested", m, "applied", clamped)
	}
	c.multiplier = clamped
	c.divisor = clamped
	return clamped
}

// SetDivisor overrides only the decimation divisor.
func (c *Controller) SetDivisor(d int) {
	c.divisor = min(max(d, MinMultiplier), MaxMultiplier)
}

// Multiplier returns the frames-per-tick multiplier.
func (c *Controller) Multiplier() int { return c.multiplier }

// Divisor returns the per-frame sample decimation divisor.
func (c *Controller) Divisor() int { return c.divisor }

// Frames scales the pacer's frame count for this tick. Paused controllers
// always return zero.
func (c *Controller) Frames(base int) int {
	if c.paused || base <= 0 {
		return 0
	}
	return base * c.multiplier
}

// DecimatedFrames returns how many frames survive decimation of inFrames.
func (c *Controller) DecimatedFrames(inFrames int) int {
	if inFrames <= 0 {
		return 0
	}
	return int(math.Round(float64(inFrames) / float64(c.divisor)))
}

// Decimate reduces an interleaved block by the divisor, writing into dst
// (grown if needed) and returning the filled slice. Output frames are
// spread evenly across the input so the block keeps its duration shape.
func (c *Controller) Decimate(dst, src []int16, channels int) []int16 {
	if channels < 1 {
		return dst[:0]
	}
	inFrames := len(src) / channels
	if c.divisor == 1 {
		return append(dst[:0], src[:inFrames*channels]...)
	}

	outFrames := c.DecimatedFrames(inFrames)
	if cap(dst) < outFrames*channels {
		dst = make([]int16, outFrames*channels)
	}
	dst = dst[:outFrames*channels]

	for i := 0; i < outFrames; i++ {
		from := i * inFrames / outFrames
		copy(dst[i*channels:(i+1)*channels], src[from*channels:(from+1)*channels])
	}
	return dst
}

func (c *Controller) Pause()       { c.paused = true }
func (c *Controller) Unpause()     { c.paused = false }
func (c *Controller) Paused() bool { return c.paused }

// SetMute suppresses audible output without affecting pacing.
func (c *Controller) SetMute(muted bool) { c.muted = muted }
func (c *Controller) Muted() bool        { return c.muted }
