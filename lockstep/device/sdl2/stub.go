//go:build !sdl2

package sdl2

import (
	"fmt"

	"github.com/valerio/go-lockstep/lockstep/device"
)

// Device stub for when SDL2 is not available
type Device struct{}

var _ device.Device = (*Device)(nil)

// New creates a stub SDL2 device that fails to open
func New() *Device {
	return &Device{}
}

func (d *Device) Name() string { return "sdl2" }

// Open returns an error indicating SDL2 is not available
func (d *Device) Open(sink device.Sink, spec device.Spec) error {
	return fmt.Errorf("%w: SDL2 audio not available - build with -tags sdl2 to enable", device.ErrUnavailable)
}

// Close does nothing
func (d *Device) Close() error {
	return nil
}
