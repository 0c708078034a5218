// Package oto plays the engine's output through ebitengine/oto. Oto pulls
// from an io.Reader on its own goroutine; the reader here forwards each pull
// to the engine's Fill, which is exactly the callback model the engine wants.
package oto

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/valerio/go-lockstep/lockstep/device"
)

// Oto allows a single context per process, so it is shared across devices
// and fixed to the first spec it was created with.
var (
	contextMu   sync.Mutex
	context     *oto.Context
	contextSpec device.Spec
)

func sharedContext(spec device.Spec) (*oto.Context, error) {
	contextMu.Lock()
	defer contextMu.Unlock()

	if context != nil {
		if spec.SampleRate != contextSpec.SampleRate || spec.Channels != contextSpec.Channels {
			return nil, fmt.Errorf("oto context already running at %dHz/%dch",
				contextSpec.SampleRate, contextSpec.Channels)
		}
		return context, nil
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   spec.SampleRate,
		ChannelCount: spec.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   spec.Period(),
	})
	if err != nil {
		return nil, err
	}
	<-ready

	context = ctx
	contextSpec = spec
	return ctx, nil
}

// Device is an oto-backed output.
type Device struct {
	mu     sync.Mutex
	player *oto.Player
	reader *reader
}

var _ device.Device = (*Device)(nil)

func New() *Device {
	return &Device{}
}

func (d *Device) Name() string { return "oto" }

func (d *Device) Open(sink device.Sink, spec device.Spec) error {
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("%w: %v", device.ErrUnavailable, err)
	}

	ctx, err := sharedContext(spec)
	if err != nil {
		return fmt.Errorf("%w: %v", device.ErrUnavailable, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.player != nil {
		return fmt.Errorf("%w: already open", device.ErrUnavailable)
	}

	d.reader = newReader(sink, spec.SamplesPerCallback)
	d.player = ctx.NewPlayer(d.reader)
	d.player.SetBufferSize(spec.SamplesPerCallback * 2)
	d.player.Play()

	slog.Info("Audio device opened", "device", "oto",
		"rate", spec.SampleRate, "channels", spec.Channels,
		"period_ms", float64(spec.Period())/float64(time.Millisecond))
	return nil
}

// Close detaches the sink before closing the player so a late pull from
// oto's goroutine only ever sees silence.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.player == nil {
		return nil
	}

	d.reader.detach()
	err := d.player.Close()
	d.player = nil
	d.reader = nil
	if err != nil {
		return fmt.Errorf("oto: %w", err)
	}
	return nil
}

// reader converts oto's byte pulls into Fill calls.
type reader struct {
	sink    atomic.Pointer[sinkRef]
	samples []int16
	pulls   atomic.Uint64
}

type sinkRef struct{ device.Sink }

func newReader(sink device.Sink, samplesPerCallback int) *reader {
	r := &reader{samples: make([]int16, max(samplesPerCallback, 1))}
	r.sink.Store(&sinkRef{sink})
	return r
}

func (r *reader) detach() {
	r.sink.Store(nil)
}

// Read fills p with whole 16-bit samples without blocking or allocating.
// Pulls larger than one period are filled a period at a time. Without a
// sink it produces silence.
func (r *reader) Read(p []byte) (int, error) {
	n := len(p) / 2
	if n == 0 {
		return 0, nil
	}

	ref := r.sink.Load()
	written := 0
	for written < n {
		chunk := r.samples[:min(len(r.samples), n-written)]
		if ref != nil {
			ref.Fill(chunk)
		} else {
			clear(chunk)
		}
		device.EncodePCM16LE(p[written*2:], chunk)
		written += len(chunk)
	}
	r.pulls.Add(1)
	return written * 2, nil
}
