// Package monitor draws a live terminal dashboard of the audio pipeline and
// turns key presses into frontend actions.
package monitor

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/valerio/go-lockstep/lockstep/audio"
	"github.com/valerio/go-lockstep/lockstep/input"
	"github.com/valerio/go-lockstep/lockstep/input/action"
	"github.com/valerio/go-lockstep/lockstep/input/event"
	"github.com/valerio/go-lockstep/lockstep/monitor/render"
)

const (
	minTermWidth  = 60
	minTermHeight = 16
	labelWidth    = 11
	statsRows     = 9

	// holdTimeout outlives a terminal's initial key-repeat delay, so a held
	// key keeps producing Hold events instead of release/press pairs.
	holdTimeout = 500 * time.Millisecond
)

// Config describes the pipeline being monitored.
type Config struct {
	SamplesPerCallback int
	CallbackPeriods    int
	TargetLow          int
	LogLines           int  // log buffer capacity, 100 when zero
	HandleSignals      bool // turn SIGINT/SIGTERM into a Quit event
}

// Monitor is a tcell dashboard. Update is called once per host tick from the
// frontend loop.
type Monitor struct {
	screen tcell.Screen
	config Config

	logBuffer *render.LogBuffer
	logLevel  *slog.LevelVar

	mu         sync.Mutex
	eventQueue []input.Event
	running    bool

	keyStates  map[action.Action]time.Time
	activeKeys map[action.Action]bool
	now        func() time.Time

	signals chan os.Signal
}

// New wraps screen; pass tcell.NewScreen's result for a real terminal or a
// simulation screen in tests.
func New(screen tcell.Screen, config Config) *Monitor {
	if config.LogLines <= 0 {
		config.LogLines = 100
	}
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)
	return &Monitor{
		screen:     screen,
		config:     config,
		logBuffer:  render.NewLogBuffer(config.LogLines),
		logLevel:   level,
		keyStates:  make(map[action.Action]time.Time),
		activeKeys: make(map[action.Action]bool),
		now:        time.Now,
	}
}

// NewTerminal opens the process terminal.
func NewTerminal(config Config) (*Monitor, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize terminal: %w", err)
	}
	return New(screen, config), nil
}

// LogHandler returns a slog handler feeding the on-screen log panel. Its
// level follows LogLevelIncrease/LogLevelDecrease actions.
func (m *Monitor) LogHandler() slog.Handler {
	return render.NewLogBufferHandler(m.logBuffer, m.logLevel)
}

// Logs exposes the captured log buffer.
func (m *Monitor) Logs() *render.LogBuffer { return m.logBuffer }

// LogLevel returns the current log panel level.
func (m *Monitor) LogLevel() slog.Level { return m.logLevel.Level() }

// Init takes over the terminal.
func (m *Monitor) Init() error {
	if err := m.screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize terminal: %w", err)
	}
	m.screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	m.screen.Clear()

	m.mu.Lock()
	m.running = true
	m.mu.Unlock()

	if m.config.HandleSignals {
		m.signals = make(chan os.Signal, 1)
		signal.Notify(m.signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT)
		go m.handleSignals(m.signals)
	}

	slog.Info("Terminal monitor initialized")
	return nil
}

// Update drains pending key events, redraws the dashboard and returns the
// actions triggered since the last call.
func (m *Monitor) Update(stats audio.Stats) ([]input.Event, error) {
	now := m.now()

	for m.screen.HasPendingEvent() {
		switch ev := m.screen.PollEvent().(type) {
		case *tcell.EventKey:
			m.processKeyEvent(ev, now)
		case *tcell.EventResize:
			m.screen.Sync()
		}
	}

	var events []input.Event
	currentlyActive := make(map[action.Action]bool)
	for act, lastPressed := range m.keyStates {
		if now.Sub(lastPressed) >= holdTimeout {
			delete(m.keyStates, act)
			continue
		}
		currentlyActive[act] = true
		if m.activeKeys[act] {
			events = append(events, input.Event{Action: act, Type: event.Hold})
		} else {
			slog.Debug("Key press", "action", act)
			events = append(events, input.Event{Action: act, Type: event.Press})
		}
	}
	for act := range m.activeKeys {
		if !currentlyActive[act] {
			slog.Debug("Key release", "action", act)
			events = append(events, input.Event{Action: act, Type: event.Release})
		}
	}
	m.activeKeys = currentlyActive

	m.mu.Lock()
	events = append(events, m.eventQueue...)
	m.eventQueue = nil
	running := m.running
	m.mu.Unlock()

	if !running {
		return events, nil
	}

	m.draw(stats)
	m.screen.Show()
	return events, nil
}

// HandleAction applies the actions the monitor owns.
func (m *Monitor) HandleAction(act action.Action) {
	switch act {
	case action.LogLevelIncrease:
		m.changeLogLevel(1)
	case action.LogLevelDecrease:
		m.changeLogLevel(-1)
	case action.StatsDump:
		m.screen.Sync()
	}
}

// Cleanup restores the terminal.
func (m *Monitor) Cleanup() error {
	if m.signals != nil {
		signal.Stop(m.signals)
		close(m.signals)
		m.signals = nil
	}
	slog.Info("Cleaning up terminal monitor")
	m.screen.Fini()
	return nil
}

func (m *Monitor) handleSignals(signals <-chan os.Signal) {
	if _, ok := <-signals; !ok {
		return
	}
	m.mu.Lock()
	m.running = false
	m.eventQueue = append(m.eventQueue, input.Event{Action: action.Quit, Type: event.Press})
	m.mu.Unlock()
}

// keyNameMap converts tcell keys to the names used in the default mappings
var keyNameMap = map[tcell.Key]string{
	tcell.KeyTab:    "Tab",
	tcell.KeyEscape: "Escape",
	tcell.KeyF5:     "F5",
	tcell.KeyF11:    "F11",
	tcell.KeyF12:    "F12",
}

func buildKeyMapping() map[tcell.Key]action.Action {
	mapping := make(map[tcell.Key]action.Action)
	for key, name := range keyNameMap {
		if act, ok := input.GetDefaultMapping(name); ok {
			mapping[key] = act
		}
	}
	mapping[tcell.KeyCtrlC] = action.Quit
	return mapping
}

var keyMapping = buildKeyMapping()

func runeName(r rune) string {
	if r == ' ' {
		return "Space"
	}
	return string(r)
}

func (m *Monitor) processKeyEvent(ev *tcell.EventKey, now time.Time) {
	act, ok := keyMapping[ev.Key()]
	if !ok && ev.Key() == tcell.KeyRune {
		act, ok = input.GetDefaultMapping(runeName(ev.Rune()))
	}
	if !ok {
		return
	}

	// fast-forward is the only held action; the rest fire once per press
	if act == action.FastForwardHold {
		m.keyStates[act] = now
		return
	}

	m.mu.Lock()
	if act == action.Quit {
		m.running = false
	}
	m.eventQueue = append(m.eventQueue, input.Event{Action: act, Type: event.Press})
	m.mu.Unlock()
}

func (m *Monitor) changeLogLevel(delta int) {
	levels := []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError}
	current := 0
	for i, level := range levels {
		if level == m.logLevel.Level() {
			current = i
			break
		}
	}
	next := min(max(current+delta, 0), len(levels)-1)
	m.logLevel.Set(levels[next])
	slog.Warn("Log level changed", "level", levels[next])
}

var (
	styleDefault = tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite)
	styleTitle   = styleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleLabel   = styleDefault.Foreground(tcell.ColorGray)
	styleGood    = styleDefault.Foreground(tcell.ColorGreen)
	styleBad     = styleDefault.Foreground(tcell.ColorRed)
)

func (m *Monitor) draw(s audio.Stats) {
	m.screen.Clear()
	w, h := m.screen.Size()
	if w < minTermWidth || h < minTermHeight {
		m.drawText(0, 0, w, styleBad, "Terminal too small")
		m.drawText(0, 1, w, styleDefault, fmt.Sprintf("Need %dx%d, have %dx%d", minTermWidth, minTermHeight, w, h))
		return
	}

	title := "lockstep audio monitor"
	if len(s.ID) >= 8 {
		title += "  engine " + s.ID[:8]
	}
	m.drawText(0, 0, w, styleTitle, title)

	spc := m.config.SamplesPerCallback
	highWater := spc * m.config.CallbackPeriods
	barWidth := w - labelWidth - 32
	var mark float64
	if highWater > 0 {
		mark = float64(m.config.TargetLow*spc) / float64(highWater)
	}
	occupancyStyle := styleGood
	if s.Occupancy < m.config.TargetLow*spc/2 {
		occupancyStyle = styleBad
	}
	m.row(2, "Ring", occupancyStyle, fmt.Sprintf("%s %d/%d (%.1f periods)",
		render.Meter(s.Occupancy, highWater, barWidth, mark), s.Occupancy, s.Capacity, s.Periods(spc)))
	m.row(3, "Ratio", styleDefault, fmt.Sprintf("%s  requested %d  generated %d  input %d",
		render.Ratio(s.Ratio), s.Requested, s.Generated, s.LastInput))
	m.row(4, "Speed", styleDefault, fmt.Sprintf("x%d  paused %s  muted %s  quality %s",
		s.Speed, yesNo(s.Paused), yesNo(s.Muted), s.Quality))
	m.row(5, "Frames", styleDefault, fmt.Sprintf("%d  ticks %d  blocks %d", s.Frames, s.Ticks, s.Blocks))

	countStyle := styleDefault
	if s.Underruns > 0 || s.Dropped > 0 {
		countStyle = styleBad
	}
	m.row(6, "Underruns", countStyle, fmt.Sprintf("%d  padded %d  dropped %d", s.Underruns, s.SilencePadded, s.Dropped))
	m.row(7, "Samples", styleDefault, fmt.Sprintf("in %d  out %d", s.Enqueued, s.Dequeued))
	if s.NullSink {
		m.row(8, "Output", styleBad, "none (null sink)")
	} else {
		m.row(8, "Output", styleGood, "active")
	}

	m.drawLogs(statsRows+1, w, h-statsRows-3)
	m.drawText(0, h-1, w, styleLabel, "+/- speed  tab ff  space pause  m mute  r quality  s stats  F11/F12 log  q quit")
}

func (m *Monitor) row(y int, label string, style tcell.Style, value string) {
	w, _ := m.screen.Size()
	m.drawText(0, y, labelWidth, styleLabel, label)
	m.drawText(labelWidth, y, w-labelWidth, style, value)
}

func (m *Monitor) drawLogs(top, w, lines int) {
	if lines <= 0 {
		return
	}
	m.drawText(0, top, w, styleTitle, fmt.Sprintf("Logs (%s)", m.logLevel.Level()))
	for i, entry := range m.logBuffer.GetRecent(lines - 1) {
		style := styleDefault
		switch {
		case entry.Level >= slog.LevelError:
			style = styleBad
		case entry.Level >= slog.LevelWarn:
			style = styleDefault.Foreground(tcell.ColorYellow)
		case entry.Level < slog.LevelInfo:
			style = styleLabel
		}
		m.drawText(0, top+1+i, w, style, render.FormatLogEntry(entry))
	}
}

func (m *Monitor) drawText(x, y, width int, style tcell.Style, text string) {
	for i, r := range []rune(render.Truncate(text, width)) {
		m.screen.SetContent(x+i, y, r, nil, style)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
