package input

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/valerio/go-lockstep/lockstep/input/action"
	"github.com/valerio/go-lockstep/lockstep/input/event"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestManager_Debouncing(t *testing.T) {
	tests := []struct {
		name           string
		eventType      event.Type
		timeBetween    time.Duration
		expectDebounce bool
	}{
		{
			name:           "rapid press - should debounce",
			eventType:      event.Press,
			timeBetween:    100 * time.Millisecond,
			expectDebounce: true,
		},
		{
			name:           "slow press - should not debounce",
			eventType:      event.Press,
			timeBetween:    400 * time.Millisecond,
			expectDebounce: false,
		},
		{
			name:           "rapid release - should debounce",
			eventType:      event.Release,
			timeBetween:    10 * time.Millisecond,
			expectDebounce: true,
		},
		{
			name:           "hold event type - should not debounce",
			eventType:      event.Hold,
			timeBetween:    10 * time.Millisecond,
			expectDebounce: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := &fakeClock{t: time.Unix(1000, 0)}
			m := NewManager()
			m.now = clock.now

			calls := 0
			m.On(action.PauseToggle, tt.eventType, func() { calls++ })

			assert.True(t, m.Trigger(action.PauseToggle, tt.eventType), "First event should always pass")
			clock.t = clock.t.Add(tt.timeBetween)
			result := m.Trigger(action.PauseToggle, tt.eventType)

			if tt.expectDebounce {
				assert.False(t, result, "Second event should be debounced")
				assert.Equal(t, 1, calls)
			} else {
				assert.True(t, result, "Second event should pass")
				assert.Equal(t, 2, calls)
			}
		})
	}
}

func TestManager_DebounceIsPerAction(t *testing.T) {
	m := NewManager()
	var got []action.Action
	for _, a := range []action.Action{action.SpeedUp, action.MuteToggle} {
		m.On(a, event.Press, func() { got = append(got, a) })
	}

	m.Trigger(action.SpeedUp, event.Press)
	m.Trigger(action.MuteToggle, event.Press)
	m.Trigger(action.SpeedUp, event.Press)
	assert.Equal(t, []action.Action{action.SpeedUp, action.MuteToggle}, got)
}

func TestManager_DisabledDebounce(t *testing.T) {
	m := NewManager()
	m.SetDebounce(0)
	calls := 0
	m.On(action.SpeedUp, event.Press, func() { calls++ })
	for i := 0; i < 5; i++ {
		m.Trigger(action.SpeedUp, event.Press)
	}
	assert.Equal(t, 5, calls)
}

func TestManager_MultipleCallbacksAndDispatch(t *testing.T) {
	m := NewManager()
	m.SetDebounce(0)
	var order []string
	m.On(action.Quit, event.Press, func() { order = append(order, "first") })
	m.On(action.Quit, event.Press, func() { order = append(order, "second") })
	m.On(action.MuteToggle, event.Press, func() { order = append(order, "mute") })

	m.Dispatch([]Event{
		{Action: action.MuteToggle, Type: event.Press},
		{Action: action.Quit, Type: event.Press},
		{Action: action.SpeedUp, Type: event.Press}, // no handler
	})
	assert.Equal(t, []string{"mute", "first", "second"}, order)
	assert.False(t, m.Trigger(action.StatsDump, event.Press))
}

func TestManager_CallbackCanRegister(t *testing.T) {
	m := NewManager()
	m.SetDebounce(0)
	m.On(action.StatsDump, event.Press, func() {
		m.On(action.StatsDump, event.Release, func() {})
	})
	assert.NotPanics(t, func() { m.Trigger(action.StatsDump, event.Press) })
	assert.True(t, m.Trigger(action.StatsDump, event.Release))
}

func TestDefaultKeyMap(t *testing.T) {
	tests := []struct {
		key  string
		want action.Action
	}{
		{"+", action.SpeedUp},
		{"-", action.SpeedDown},
		{"Space", action.PauseToggle},
		{"m", action.MuteToggle},
		{"r", action.QualityCycle},
		{"q", action.Quit},
		{"Escape", action.Quit},
	}
	for _, tt := range tests {
		act, ok := GetDefaultMapping(tt.key)
		assert.True(t, ok, tt.key)
		assert.Equal(t, tt.want, act, tt.key)
	}

	_, ok := GetDefaultMapping("F24")
	assert.False(t, ok)
	assert.Equal(t, "mute", action.MuteToggle.String())
	assert.Equal(t, "unknown", action.Action(99).String())
}
