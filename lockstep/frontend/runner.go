// Package frontend drives a core and an audio engine in lockstep with the
// host display tick.
package frontend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/valerio/go-lockstep/lockstep/audio"
	"github.com/valerio/go-lockstep/lockstep/core"
	"github.com/valerio/go-lockstep/lockstep/input"
	"github.com/valerio/go-lockstep/lockstep/input/action"
	"github.com/valerio/go-lockstep/lockstep/input/event"
	"github.com/valerio/go-lockstep/lockstep/resample"
	"github.com/valerio/go-lockstep/lockstep/speed"
	"github.com/valerio/go-lockstep/lockstep/timing"
)

// DefaultFastForward is the multiplier applied while fast-forward is held.
const DefaultFastForward = 4

// Options tunes a Runner.
type Options struct {
	FastForward int // multiplier while FastForwardHold is held, DefaultFastForward when zero
}

// Runner is the producer loop. Each host tick it asks the engine how many
// frames are due, runs them on the core, queues every frame's block and
// waits on the limiter.
type Runner struct {
	core    core.Core
	engine  *audio.Engine
	display Display
	limiter timing.Limiter
	input   *input.Manager

	fastForward int
	savedSpeed  int
	holding     bool

	quit  atomic.Bool
	ticks uint64
}

// NewRunner wires the loop and registers the frontend actions on a fresh
// input manager.
func NewRunner(c core.Core, engine *audio.Engine, display Display, limiter timing.Limiter, opts Options) *Runner {
	if opts.FastForward == 0 {
		opts.FastForward = DefaultFastForward
	}
	r := &Runner{
		core:        c,
		engine:      engine,
		display:     display,
		limiter:     limiter,
		input:       input.NewManager(),
		fastForward: opts.FastForward,
	}
	r.registerActions()
	return r
}

// Input returns the manager the runner dispatches display events through.
func (r *Runner) Input() *input.Manager { return r.input }

// Quit asks the loop to stop after the current tick.
func (r *Runner) Quit() { r.quit.Store(true) }

// Ticks returns how many host ticks have run.
func (r *Runner) Ticks() uint64 { return r.ticks }

func (r *Runner) registerActions() {
	r.input.On(action.SpeedUp, event.Press, func() {
		r.engine.SetSpeed(r.engine.Speed() + 1)
	})
	r.input.On(action.SpeedDown, event.Press, func() {
		r.engine.SetSpeed(r.engine.Speed() - 1)
	})
	r.input.On(action.SpeedReset, event.Press, func() {
		r.engine.SetSpeed(speed.MinMultiplier)
	})

	r.input.On(action.FastForwardHold, event.Press, func() {
		if r.holding {
			return
		}
		r.holding = true
		r.savedSpeed = r.engine.Speed()
		r.engine.SetSpeed(r.fastForward)
	})
	r.input.On(action.FastForwardHold, event.Release, func() {
		if !r.holding {
			return
		}
		r.holding = false
		r.engine.SetSpeed(r.savedSpeed)
	})

	r.input.On(action.PauseToggle, event.Press, func() {
		if r.engine.Paused() {
			r.engine.Unpause()
			r.limiter.Reset()
			slog.Info("Resumed")
		} else {
			r.engine.Pause()
			slog.Info("Paused")
		}
	})
	r.input.On(action.MuteToggle, event.Press, func() {
		r.engine.SetMute(!r.engine.Muted())
		slog.Info("Mute toggled", "muted", r.engine.Muted())
	})
	r.input.On(action.QualityCycle, event.Press, func() {
		next := (r.engine.Quality() + 1) % (resample.QualitySinc + 1)
		// a rejected rehash is logged by the engine and keeps the old quality
		_ = r.engine.Rehash(next)
	})
	r.input.On(action.StatsDump, event.Press, r.logStats)
	r.input.On(action.Quit, event.Press, r.Quit)
}

func (r *Runner) logStats() {
	s := r.engine.Stats()
	slog.Info("Audio stats",
		"occupancy", s.Occupancy, "capacity", s.Capacity, "ratio", s.Ratio,
		"requested", s.Requested, "generated", s.Generated,
		"enqueued", s.Enqueued, "dequeued", s.Dequeued, "dropped", s.Dropped,
		"underruns", s.Underruns, "padded", s.SilencePadded,
		"ticks", s.Ticks, "frames", s.Frames, "speed", s.Speed,
		"paused", s.Paused, "muted", s.Muted, "null_sink", s.NullSink, "quality", s.Quality.String())
}

// Step runs one host tick without waiting on the limiter.
func (r *Runner) Step() error {
	r.ticks++
	for n := r.engine.FramesThisTick(); n > 0; n-- {
		if err := r.core.RunFrame(); err != nil {
			return fmt.Errorf("core frame failed: %w", err)
		}
		r.engine.Queue(r.core.Samples())
	}

	if r.display == nil {
		return nil
	}
	events, err := r.display.Update(r.engine.Stats())
	if err != nil {
		return fmt.Errorf("display update failed: %w", err)
	}
	r.input.Dispatch(events)
	for _, e := range events {
		if e.Type == event.Press {
			r.display.HandleAction(e.Action)
		}
	}
	return nil
}

// Run loops until Quit, a quit action, or ctx is done. On the way out the
// engine is closed, which stops its device before the producer side, and
// then the display is released.
func (r *Runner) Run(ctx context.Context) (err error) {
	if r.display != nil {
		if err := r.display.Init(); err != nil {
			return errors.Join(err, r.engine.Close())
		}
	}
	defer func() {
		err = errors.Join(err, r.shutdown())
	}()

	r.limiter.Reset()
	for !r.quit.Load() {
		if ctx.Err() != nil {
			slog.Info("Runner cancelled", "ticks", r.ticks)
			return nil
		}
		if err := r.Step(); err != nil {
			return err
		}
		r.limiter.WaitForNextFrame()
	}
	slog.Info("Runner stopped", "ticks", r.ticks)
	return nil
}

func (r *Runner) shutdown() error {
	if err := r.engine.Close(); err != nil {
		// a device that fails to close doesn't fail the run
		slog.Warn("Audio device close failed", "error", err)
	}
	if r.display == nil {
		return nil
	}
	return r.display.Cleanup()
}
