// Package input turns key presses into frontend actions.
package input

import (
	"sync"
	"time"

	"github.com/valerio/go-lockstep/lockstep/input/action"
	"github.com/valerio/go-lockstep/lockstep/input/event"
)

const (
	// debounceDuration is the minimum time between debounced events
	debounceDuration = 300 * time.Millisecond
)

// Event is a single action trigger, as produced by a key source.
type Event struct {
	Action action.Action
	Type   event.Type
}

// Manager handles input actions and their associated callbacks.
// Trigger may be called from a key-reading goroutine while callbacks are
// registered elsewhere.
type Manager struct {
	mu            sync.Mutex
	handlers      map[action.Action]map[event.Type][]func()
	lastTriggered map[action.Action]map[event.Type]time.Time
	debounce      time.Duration
	now           func() time.Time
}

func NewManager() *Manager {
	return &Manager{
		handlers:      make(map[action.Action]map[event.Type][]func()),
		lastTriggered: make(map[action.Action]map[event.Type]time.Time),
		debounce:      debounceDuration,
		now:           time.Now,
	}
}

// SetDebounce changes the minimum gap between repeated Press or Release
// events of the same action. Zero disables debouncing.
func (m *Manager) SetDebounce(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.debounce = d
}

// On registers a callback for a specific action and event type
func (m *Manager) On(act action.Action, evt event.Type, callback func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handlers[act] == nil {
		m.handlers[act] = make(map[event.Type][]func())
	}
	m.handlers[act][evt] = append(m.handlers[act][evt], callback)
}

// Trigger handles the given action and event type. It reports whether any
// callback ran.
func (m *Manager) Trigger(act action.Action, evt event.Type) bool {
	m.mu.Lock()
	// Debounce Press and Release events
	if (evt == event.Press || evt == event.Release) && m.debounce > 0 {
		now := m.now()
		if m.lastTriggered[act] == nil {
			m.lastTriggered[act] = make(map[event.Type]time.Time)
		}
		lastTime, seen := m.lastTriggered[act][evt]
		if seen && now.Sub(lastTime) < m.debounce {
			m.mu.Unlock()
			return false
		}
		m.lastTriggered[act][evt] = now
	}
	callbacks := append([]func(){}, m.handlers[act][evt]...)
	m.mu.Unlock()

	// callbacks run unlocked so they may register more handlers
	for _, callback := range callbacks {
		callback()
	}
	return len(callbacks) > 0
}

// Dispatch triggers a batch of events in order.
func (m *Manager) Dispatch(events []Event) {
	for _, e := range events {
		m.Trigger(e.Action, e.Type)
	}
}
