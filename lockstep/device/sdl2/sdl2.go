//go:build sdl2

package sdl2

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/valerio/go-lockstep/lockstep/device"
)

// Device feeds SDL's audio queue from a pump goroutine, topping it up to
// queuedPeriods callback periods.
// Note: building this requires SDL2 development libraries installed.
// Default builds use a stub, see build tags (sdl2)
type Device struct {
	mu     sync.Mutex
	id     sdl.AudioDeviceID
	pump   *device.Pump
	bytes  []byte
	target uint32
}

const queuedPeriods = 2

var _ device.Device = (*Device)(nil)

func New() *Device {
	return &Device{}
}

func (d *Device) Name() string { return "sdl2" }

func (d *Device) Open(sink device.Sink, spec device.Spec) error {
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("%w: %v", device.ErrUnavailable, err)
	}
	if err := sdl.InitSubSystem(sdl.INIT_AUDIO); err != nil {
		return fmt.Errorf("%w: failed to initialize SDL2 audio: %v", device.ErrUnavailable, err)
	}

	want := &sdl.AudioSpec{
		Freq:     int32(spec.SampleRate),
		Format:   sdl.AUDIO_S16LSB,
		Channels: uint8(spec.Channels),
		Samples:  uint16(spec.FramesPerCallback()),
	}
	var have sdl.AudioSpec
	id, err := sdl.OpenAudioDevice("", false, want, &have, 0)
	if err != nil {
		sdl.QuitSubSystem(sdl.INIT_AUDIO)
		return fmt.Errorf("%w: %v", device.ErrUnavailable, err)
	}

	d.mu.Lock()
	d.id = id
	d.bytes = make([]byte, spec.SamplesPerCallback*2)
	d.target = uint32(len(d.bytes) * queuedPeriods)
	d.pump = device.NewPump(sink, spec, d.queue, d.ready)
	pump := d.pump
	d.mu.Unlock()

	slog.Info("Audio device opened", "device", "sdl2",
		"rate", have.Freq, "channels", have.Channels, "samples", have.Samples)

	sdl.PauseAudioDevice(id, false)
	pump.Start()
	return nil
}

func (d *Device) ready() bool {
	return sdl.GetQueuedAudioSize(d.id) < d.target
}

func (d *Device) queue(buf []int16) error {
	n := device.EncodePCM16LE(d.bytes, buf)
	return sdl.QueueAudio(d.id, d.bytes[:n])
}

// Close stops the pump first so nothing is queued to a closed device.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pump == nil {
		return nil
	}

	d.pump.Stop()
	d.pump = nil
	sdl.PauseAudioDevice(d.id, true)
	sdl.ClearQueuedAudio(d.id)
	sdl.CloseAudioDevice(d.id)
	sdl.QuitSubSystem(sdl.INIT_AUDIO)
	return nil
}
