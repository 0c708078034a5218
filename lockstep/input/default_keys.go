package input

import "github.com/valerio/go-lockstep/lockstep/input/action"

// DefaultKeyMap provides default key mappings shared by key sources.
var DefaultKeyMap = map[string]action.Action{
	// Speed controls
	"+":   action.SpeedUp,
	"=":   action.SpeedUp, // Alternative without shift
	"-":   action.SpeedDown,
	"_":   action.SpeedDown, // Alternative with shift
	"0":   action.SpeedReset,
	"Tab": action.FastForwardHold,

	// Playback
	"Space": action.PauseToggle,
	"p":     action.PauseToggle, // Alternative key
	"m":     action.MuteToggle,
	"r":     action.QualityCycle,

	// Diagnostics
	"s":   action.StatsDump,
	"F5":  action.StatsDump,
	"F11": action.LogLevelDecrease,
	"F12": action.LogLevelIncrease,

	"Escape": action.Quit,
	"q":      action.Quit,
}

// GetDefaultMapping returns the default action for a key, if one exists
func GetDefaultMapping(key string) (action.Action, bool) {
	act, ok := DefaultKeyMap[key]
	return act, ok
}
