// Package wav captures the engine's output to a WAV file at the pace a real
// sound card would consume it, so a run can be listened to afterwards.
package wav

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/valerio/go-lockstep/lockstep/device"
)

const bitDepth = 16

// Device writes every callback buffer to a 16-bit PCM WAV file.
type Device struct {
	path   string
	manual bool

	mu      sync.Mutex
	file    *os.File
	enc     *wav.Encoder
	pump    *device.Pump
	intBuf  *audio.IntBuffer
	written int
}

var _ device.Device = (*Device)(nil)

// New returns a device writing to path once opened.
func New(path string) *Device {
	return &Device{path: path}
}

// NewManual returns a device that only pulls samples when Step is called.
func NewManual(path string) *Device {
	return &Device{path: path, manual: true}
}

func (d *Device) Name() string { return "wav" }

func (d *Device) Open(sink device.Sink, spec device.Spec) error {
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("%w: %v", device.ErrUnavailable, err)
	}

	f, err := os.Create(d.path)
	if err != nil {
		return fmt.Errorf("%w: %v", device.ErrUnavailable, err)
	}

	d.mu.Lock()
	d.file = f
	d.enc = wav.NewEncoder(f, spec.SampleRate, bitDepth, spec.Channels, 1)
	d.intBuf = &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: spec.Channels, SampleRate: spec.SampleRate},
		Data:           make([]int, spec.SamplesPerCallback),
		SourceBitDepth: bitDepth,
	}
	d.written = 0
	d.pump = device.NewPump(sink, spec, d.write, nil)
	pump := d.pump
	d.mu.Unlock()

	slog.Info("Capturing audio to wav", "path", d.path, "rate", spec.SampleRate, "channels", spec.Channels)
	if !d.manual {
		pump.Start()
	}
	return nil
}

func (d *Device) write(buf []int16) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.enc == nil {
		return nil
	}
	for i, s := range buf {
		d.intBuf.Data[i] = int(s)
	}
	if err := d.enc.Write(d.intBuf); err != nil {
		return fmt.Errorf("wav: %w", err)
	}
	d.written += len(buf)
	return nil
}

// Step performs one callback synchronously.
func (d *Device) Step() error {
	d.mu.Lock()
	pump := d.pump
	d.mu.Unlock()
	if pump == nil {
		return device.ErrUnavailable
	}
	return pump.Step()
}

// Written returns the number of samples captured so far.
func (d *Device) Written() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.written
}

// Close stops the callbacks, then finalizes the WAV header and the file.
func (d *Device) Close() error {
	d.mu.Lock()
	pump := d.pump
	d.mu.Unlock()
	if pump != nil {
		pump.Stop()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.enc == nil {
		return nil
	}

	err := d.enc.Close()
	if cerr := d.file.Close(); err == nil {
		err = cerr
	}
	slog.Info("Audio capture finished", "path", d.path, "samples", d.written)

	d.enc = nil
	d.file = nil
	d.pump = nil
	if err != nil {
		return fmt.Errorf("wav: %w", err)
	}
	return nil
}
