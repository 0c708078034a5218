// Package headless is an audio output with no hardware behind it. Callbacks
// are driven either by hand with Tick (tests, batch runs) or in real time by
// a pump goroutine, and everything pulled is counted for inspection.
package headless

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/valerio/go-lockstep/lockstep/device"
)

// Config selects how the device behaves.
type Config struct {
	// Realtime starts a goroutine calling the sink once per period.
	Realtime bool

	// FailOpen makes Open fail, simulating missing hardware.
	FailOpen bool
}

// Device records every callback it makes.
type Device struct {
	config Config

	mu     sync.Mutex
	sink   device.Sink
	spec   device.Spec
	pump   *device.Pump
	opened bool

	pulled  uint64
	silent  uint64
	last    []int16
	history [][]int16
	keep    int
}

var _ device.Device = (*Device)(nil)

func New(config Config) *Device {
	return &Device{config: config}
}

// KeepHistory retains copies of the last n callback buffers.
func (d *Device) KeepHistory(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.keep = n
}

func (d *Device) Name() string { return "headless" }

func (d *Device) Open(sink device.Sink, spec device.Spec) error {
	if d.config.FailOpen {
		return fmt.Errorf("%w: headless device configured to fail", device.ErrUnavailable)
	}
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("%w: %v", device.ErrUnavailable, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.opened {
		return fmt.Errorf("%w: already open", device.ErrUnavailable)
	}
	d.sink = sink
	d.spec = spec
	d.last = make([]int16, spec.SamplesPerCallback)
	d.pump = device.NewPump(sink, spec, d.record, nil)
	d.opened = true

	slog.Debug("Headless audio device opened",
		"rate", spec.SampleRate, "channels", spec.Channels,
		"period", spec.Period(), "realtime", d.config.Realtime)

	if d.config.Realtime {
		d.pump.Start()
	}
	return nil
}

// record runs on the callback goroutine, outside d.mu.
func (d *Device) record(buf []int16) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	copy(d.last, buf)
	d.pulled += uint64(len(buf))
	for _, s := range buf {
		if s == 0 {
			d.silent++
		}
	}
	if d.keep > 0 {
		d.history = append(d.history, append([]int16(nil), buf...))
		if len(d.history) > d.keep {
			d.history = d.history[len(d.history)-d.keep:]
		}
	}
	return nil
}

// Tick performs one callback synchronously and returns a copy of the
// buffer. It returns nil when the device is not open.
func (d *Device) Tick() []int16 {
	d.mu.Lock()
	pump := d.pump
	d.mu.Unlock()
	if pump == nil {
		return nil
	}

	_ = pump.Step()

	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int16(nil), d.last...)
}

func (d *Device) Close() error {
	d.mu.Lock()
	pump := d.pump
	d.mu.Unlock()

	if pump != nil {
		pump.Stop()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.pump = nil
	d.sink = nil
	d.opened = false
	return nil
}

// Pulled returns the total samples requested from the sink.
func (d *Device) Pulled() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pulled
}

// Silent returns how many pulled samples were zero.
func (d *Device) Silent() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.silent
}

// History returns the retained callback buffers, oldest first.
func (d *Device) History() [][]int16 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([][]int16(nil), d.history...)
}

// Spec returns the spec the device was opened with.
func (d *Device) Spec() device.Spec {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.spec
}
