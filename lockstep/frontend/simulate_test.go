package frontend_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valerio/go-lockstep/lockstep/frontend"
	"github.com/valerio/go-lockstep/lockstep/timing"
)

func TestSimulated_PullCadence(t *testing.T) {
	fast, slow := 1.01, 0.99
	tests := []struct {
		name    string
		skewPPM float64
		ticks   int
		want    uint64
	}{
		// 44100*2/60 = 1470 samples a tick, 1024 per callback
		{"nominal", 0, 600, 600 * 1470 / 1024},
		{"fast clock", 10000, 600, uint64(600 * 1470 * fast / 1024)},
		{"slow clock", -10000, 600, uint64(600 * 1470 * slow / 1024)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var pulls uint64
			s := frontend.NewSimulated(frontend.NewHeadless(0), func() error {
				pulls++
				return nil
			}, 1024, 44100, 2, 60, tt.skewPPM)

			for i := 0; i < tt.ticks; i++ {
				_, err := s.Update(statsZero)
				require.NoError(t, err)
			}
			assert.InDelta(t, tt.want, pulls, 1)
			assert.Equal(t, pulls, s.Pulls())
		})
	}
}

func TestSimulated_RunKeepsRingNearTarget(t *testing.T) {
	c, e, dev := setup(t)
	display := frontend.NewSimulated(frontend.NewHeadless(3000), func() error {
		dev.Tick()
		return nil
	}, 1024, 44100, 2, 60, 500)

	r := frontend.NewRunner(c, e, display, timing.NewNoOpLimiter(), frontend.Options{})
	require.NoError(t, r.Run(context.Background()))

	s := e.Stats()
	assert.NotZero(t, display.Pulls())
	assert.Equal(t, s.Enqueued-s.Dropped-uint64(s.Occupancy), s.Dequeued)
	assert.InDelta(t, 1.0, s.Ratio, 0.02+1e-9)
}

func TestSimulated_PullErrorsAreAbsorbed(t *testing.T) {
	s := frontend.NewSimulated(frontend.NewHeadless(0), func() error {
		return errors.New("write failed")
	}, 1024, 44100, 2, 60, 0)

	for i := 0; i < 10; i++ {
		_, err := s.Update(statsZero)
		assert.NoError(t, err)
	}
	assert.NotZero(t, s.Pulls())
}
