package action

// Action represents input actions the frontend can perform
type Action int

const (
	// Speed controls
	SpeedUp Action = iota
	SpeedDown
	SpeedReset
	FastForwardHold // held: run at the fast-forward multiplier

	// Playback
	PauseToggle
	MuteToggle
	QualityCycle

	// Diagnostics
	StatsDump
	LogLevelIncrease
	LogLevelDecrease

	Quit
)

var names = map[Action]string{
	SpeedUp:          "speed-up",
	SpeedDown:        "speed-down",
	SpeedReset:       "speed-reset",
	FastForwardHold:  "fast-forward",
	PauseToggle:      "pause",
	MuteToggle:       "mute",
	QualityCycle:     "quality",
	StatsDump:        "stats",
	LogLevelIncrease: "log-level-up",
	LogLevelDecrease: "log-level-down",
	Quit:             "quit",
}

func (a Action) String() string {
	if n, ok := names[a]; ok {
		return n
	}
	return "unknown"
}
