// Package audio owns the producer and consumer halves of the lockstep audio
// pipeline. The frontend loop asks the engine how many frames to run each
// host tick and hands it every frame's sample block; the device pulls the
// resampled stream back out through Fill.
package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/valerio/go-lockstep/lockstep/config"
	"github.com/valerio/go-lockstep/lockstep/core"
	"github.com/valerio/go-lockstep/lockstep/device"
	"github.com/valerio/go-lockstep/lockstep/resample"
	"github.com/valerio/go-lockstep/lockstep/ring"
	"github.com/valerio/go-lockstep/lockstep/speed"
	"github.com/valerio/go-lockstep/lockstep/timing"
)

// ErrDeviceOpen reports that no output could be opened. The engine keeps
// running without sound when it happens.
var ErrDeviceOpen = errors.New("audio: device open failed")

// dropLogEvery rate-limits overflow logging.
const dropLogEvery = 64

// Engine is one instance of the pipeline. Producer methods (FramesThisTick,
// Queue and the setters) must be called from a single goroutine; Fill is
// called by the device and may run concurrently with them.
type Engine struct {
	id   string
	cfg  config.Config
	info core.AudioInfo
	spec device.Spec

	ring      *ring.Buffer
	resampler *resample.Adaptive
	pacer     *timing.Pacer
	speed     *speed.Controller

	decimated []int16

	devMu sync.Mutex
	dev   device.Device

	paused   atomic.Bool
	nullSink atomic.Bool
	closed   atomic.Bool

	blocks     atomic.Uint64
	lastFrames atomic.Int64
	dropEvents uint64
}

// Option tweaks engine construction.
type Option func(*options)

type options struct {
	ring []ring.Option
}

// WithRingWait overrides the producer's backpressure wait. A zero limit
// never waits, which suits tests driving the consumer by hand.
func WithRingWait(step, limit time.Duration) Option {
	return func(o *options) {
		o.ring = append(o.ring, ring.WithWait(step, limit))
	}
}

// New builds an engine for a core with the given audio info. The config is
// expected to be validated already; New re-checks it and returns
// config.ErrInvalid or resample.ErrInvalidParameters on failure.
func New(cfg config.Config, info core.AudioInfo, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := info.Validate(); err != nil {
		return nil, err
	}

	channels := cfg.Channels
	if channels == 0 {
		channels = info.Channels
	}
	if channels != info.Channels {
		return nil, fmt.Errorf("%w: %d channels requested for a %d channel core",
			config.ErrInvalid, channels, info.Channels)
	}
	rate := cfg.SampleRate
	if rate == 0 {
		rate = info.SampleRate
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	frametime := cfg.FrametimeHz
	if frametime == 0 {
		frametime = info.FPS
	}
	pacer := timing.NewScaledPacer(frametime, cfg.HostRefreshHz)

	params := resample.Params{
		NativeRate:         info.SampleRate,
		DeviceRate:         rate,
		Channels:           channels,
		SamplesPerCallback: cfg.SamplesPerCallback,
		TargetLow:          cfg.TargetLow,
		ScaleFactor:        cfg.ScaleFactor,
		HostTickMs:         pacer.TickMs(),
		MaxCorrection:      cfg.MaxCorrection,
		Quality:            cfg.Quality,
		MaxBlockFrames:     info.FrameSamples()/channels + 1,
	}
	resampler, err := resample.NewAdaptive(params)
	if err != nil {
		return nil, err
	}

	ringOpts := append([]ring.Option{ring.WithHighWater(cfg.HighWater())}, o.ring...)
	e := &Engine{
		id:        uuid.NewString(),
		cfg:       cfg,
		info:      info,
		spec:      device.Spec{SampleRate: rate, Channels: channels, SamplesPerCallback: cfg.SamplesPerCallback},
		ring:      ring.New(cfg.RingCapacity, ringOpts...),
		resampler: resampler,
		pacer:     pacer,
		speed:     speed.New(),
		decimated: make([]int16, info.FrameSamples()),
	}
	e.speed.SetSpeed(cfg.Speed)
	e.speed.SetMute(cfg.Mute)

	slog.Info("Audio engine created", "engine", e.id,
		"core_rate", info.SampleRate, "device_rate", rate, "channels", channels,
		"capacity", cfg.RingCapacity, "high_water", cfg.HighWater(),
		"quality", cfg.Quality.String(), "frametime", pacer.Frametime(), "refresh", pacer.RefreshRate())
	return e, nil
}

// ID identifies this engine instance in logs and diagnostics.
func (e *Engine) ID() string { return e.id }

// Spec returns the stream format devices are opened with.
func (e *Engine) Spec() device.Spec { return e.spec }

// Open starts dev pulling from the engine. On failure the engine switches
// to null-sink mode: Queue and Fill become no-ops while pacing continues,
// and the returned error wraps ErrDeviceOpen for the caller to report.
func (e *Engine) Open(dev device.Device) error {
	e.devMu.Lock()
	defer e.devMu.Unlock()

	if e.dev != nil {
		return fmt.Errorf("%w: engine already has device %s", ErrDeviceOpen, e.dev.Name())
	}

	if err := dev.Open(e, e.spec); err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrDeviceOpen, dev.Name(), err)
		slog.Error("Audio unavailable, continuing without sound", "error", err)
		e.nullSink.Store(true)
		return err
	}

	e.dev = dev
	e.nullSink.Store(false)
	slog.Info("Audio output started", "device", dev.Name())
	return nil
}

// NullSink reports whether the engine is running without an output.
func (e *Engine) NullSink() bool { return e.nullSink.Load() }

// FramesThisTick advances the pacer one host tick and returns how many
// frames to emulate, already scaled by the speed multiplier. Paused
// engines return zero without advancing the pacer.
func (e *Engine) FramesThisTick() int {
	if e.speed.Paused() {
		return 0
	}
	return e.speed.Frames(e.pacer.Tick())
}

// Queue resamples one frame's block and stores it for the device. Excess
// that doesn't fit is dropped and logged at debug level.
func (e *Engine) Queue(block []int16) {
	if e.nullSink.Load() || e.closed.Load() || len(block) == 0 {
		return
	}

	ch := e.spec.Channels
	e.decimated = e.speed.Decimate(e.decimated, block, ch)
	e.lastFrames.Store(int64(len(e.decimated) / ch))

	out := e.resampler.Process(e.decimated, e.ring.Len())
	if e.speed.Muted() {
		clear(out)
	}

	written := e.ring.Enqueue(out)
	e.blocks.Add(1)
	if written < len(out) {
		e.dropEvents++
		if e.dropEvents == 1 || e.dropEvents%dropLogEvery == 0 {
			slog.Debug("Audio ring overflow, samples dropped",
				"dropped", len(out)-written, "events", e.dropEvents, "occupancy", e.ring.Len())
		}
	}
}

// Fill implements device.Sink. It always writes len(buf) samples and never
// blocks: silence while paused, closed or without a device, otherwise the
// ring's contents padded with silence on underrun.
func (e *Engine) Fill(buf []int16) {
	if e.paused.Load() || e.nullSink.Load() || e.closed.Load() {
		clear(buf)
		return
	}
	e.ring.Dequeue(buf)
}

var _ device.Sink = (*Engine)(nil)

// SetSpeed sets the fast-forward multiplier, returning the clamped value.
func (e *Engine) SetSpeed(m int) int {
	applied := e.speed.SetSpeed(m)
	slog.Info("Speed changed", "multiplier", applied)
	return applied
}

// Speed returns the current multiplier.
func (e *Engine) Speed() int { return e.speed.Multiplier() }

// Pause stops frame scheduling and silences the output. The ring keeps its
// contents so resuming doesn't need a refill.
func (e *Engine) Pause() {
	e.speed.Pause()
	e.paused.Store(true)
}

func (e *Engine) Unpause() {
	e.speed.Unpause()
	e.paused.Store(false)
}

func (e *Engine) Paused() bool { return e.speed.Paused() }

// SetMute zeroes queued blocks without changing how much is queued.
func (e *Engine) SetMute(muted bool) { e.speed.SetMute(muted) }

func (e *Engine) Muted() bool { return e.speed.Muted() }

// Rehash switches the resampler quality. Invalid levels are rejected and
// the current resampler is kept.
func (e *Engine) Rehash(q resample.Quality) error {
	p := e.resampler.Params()
	p.Quality = q
	return e.RehashParams(p)
}

// RehashParams replaces the full resampler configuration.
func (e *Engine) RehashParams(p resample.Params) error {
	if err := e.resampler.Rehash(p); err != nil {
		if !errors.Is(err, resample.ErrInvalidParameters) {
			err = fmt.Errorf("%w: %w", resample.ErrInvalidParameters, err)
		}
		slog.Warn("Resampler rehash rejected, keeping previous settings", "error", err)
		return err
	}
	slog.Info("Resampler rehashed", "quality", p.Quality.String())
	return nil
}

// ResamplerParams returns the active resampler configuration.
func (e *Engine) ResamplerParams() resample.Params { return e.resampler.Params() }

// Quality returns the active resampler quality.
func (e *Engine) Quality() resample.Quality { return e.resampler.Params().Quality }

// SetRefreshRate updates the host display rate in Hz. The resampler's
// correction follows the new tick length.
func (e *Engine) SetRefreshRate(hz float64) {
	e.pacer.SetRefreshRate(timing.Scaled(hz))
	e.resampler.SetHostTickMs(e.pacer.TickMs())
}

// SetFrametime updates the nominal emulation rate in Hz.
func (e *Engine) SetFrametime(hz float64) {
	e.pacer.SetFrametime(timing.Scaled(hz))
}

// Close stops the device first so the consumer is gone before the engine
// is marked closed. Safe to call more than once.
func (e *Engine) Close() error {
	e.devMu.Lock()
	dev := e.dev
	e.dev = nil
	e.devMu.Unlock()

	var err error
	if dev != nil {
		err = dev.Close()
	}
	if e.closed.Swap(true) {
		return err
	}

	s := e.ring.Stats()
	slog.Info("Audio engine closed", "engine", e.id,
		"enqueued", s.Enqueued, "dequeued", s.Dequeued, "dropped", s.Dropped,
		"underruns", s.Underruns, "frames", e.pacer.TotalFrames())
	return err
}
