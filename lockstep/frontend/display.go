package frontend

import (
	"log/slog"

	"github.com/valerio/go-lockstep/lockstep/audio"
	"github.com/valerio/go-lockstep/lockstep/input"
	"github.com/valerio/go-lockstep/lockstep/input/action"
	"github.com/valerio/go-lockstep/lockstep/input/event"
)

// Display is what the runner shows the pipeline on and reads keys from.
// Displays are responsible for:
// - Drawing the engine stats for the current host tick
// - Translating platform key events to input events
// - Handling display-specific actions such as log level changes
type Display interface {
	// Init prepares the display. It is called once before the first Update.
	Init() error

	// Update draws stats and returns the input events since the last call.
	Update(stats audio.Stats) ([]input.Event, error)

	// HandleAction receives every pressed action after the runner handled it.
	HandleAction(act action.Action)

	// Cleanup releases the display when the runner stops.
	Cleanup() error
}

// progressEvery is how often the headless display logs progress, in ticks.
const progressEvery = 600

// Headless is a display for batch runs. It quits after a fixed number of
// host ticks and reports progress through the logger.
type Headless struct {
	tickCount int
	maxTicks  int
}

// NewHeadless returns a display that requests a quit after maxTicks host
// ticks. Zero runs until the runner is stopped another way.
func NewHeadless(maxTicks int) *Headless {
	return &Headless{maxTicks: maxTicks}
}

func (h *Headless) Init() error {
	slog.Info("Running headless mode", "ticks", h.maxTicks)
	return nil
}

// Update counts ticks and asks to quit once the target is reached.
func (h *Headless) Update(stats audio.Stats) ([]input.Event, error) {
	h.tickCount++

	if h.tickCount%progressEvery == 0 {
		slog.Info("Tick progress", "completed", h.tickCount, "total", h.maxTicks,
			"occupancy", stats.Occupancy, "ratio", stats.Ratio, "underruns", stats.Underruns)
	}

	if h.maxTicks > 0 && h.tickCount >= h.maxTicks {
		slog.Info("Headless execution completed", "ticks", h.tickCount, "frames", stats.Frames)
		return []input.Event{{Action: action.Quit, Type: event.Press}}, nil
	}
	return nil, nil
}

func (h *Headless) HandleAction(action.Action) {}

func (h *Headless) Cleanup() error { return nil }

// Ticks returns how many updates the display has seen.
func (h *Headless) Ticks() int { return h.tickCount }

var _ Display = (*Headless)(nil)
