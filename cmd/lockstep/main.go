package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"
	"golang.org/x/term"

	"github.com/valerio/go-lockstep/lockstep/audio"
	"github.com/valerio/go-lockstep/lockstep/config"
	"github.com/valerio/go-lockstep/lockstep/core"
	"github.com/valerio/go-lockstep/lockstep/core/tone"
	"github.com/valerio/go-lockstep/lockstep/core/wavcore"
	"github.com/valerio/go-lockstep/lockstep/device"
	"github.com/valerio/go-lockstep/lockstep/device/headless"
	"github.com/valerio/go-lockstep/lockstep/device/oto"
	"github.com/valerio/go-lockstep/lockstep/device/sdl2"
	"github.com/valerio/go-lockstep/lockstep/device/wav"
	"github.com/valerio/go-lockstep/lockstep/frontend"
	"github.com/valerio/go-lockstep/lockstep/input"
	"github.com/valerio/go-lockstep/lockstep/input/action"
	"github.com/valerio/go-lockstep/lockstep/input/event"
	"github.com/valerio/go-lockstep/lockstep/monitor"
	"github.com/valerio/go-lockstep/lockstep/resample"
	"github.com/valerio/go-lockstep/lockstep/timing"
)

func main() {
	app := cli.NewApp()
	app.Name = "lockstep"
	app.Description = "Frame pacing and adaptive audio for emulator frontends"
	app.Usage = "lockstep <command> [options]"
	app.Version = "1.0.0"
	app.Commands = []cli.Command{
		{
			Name:   "run",
			Usage:  "Play a core in real time through an audio device",
			Flags:  append(append(engineFlags(), coreFlags()...), runFlags()...),
			Action: runCommand,
		},
		{
			Name:   "simulate",
			Usage:  "Run a core against a simulated device clock as fast as possible",
			Flags:  append(append(engineFlags(), coreFlags()...), simulateFlags()...),
			Action: simulateCommand,
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		slog.Error("Error running lockstep", "error", err)
		os.Exit(1)
	}
}

func engineFlags() []cli.Flag {
	d := config.Default()
	return []cli.Flag{
		cli.IntFlag{Name: "rate", Usage: "Device sample rate in Hz (0 = core rate)", Value: d.SampleRate},
		cli.IntFlag{Name: "period", Usage: "Device callback size in samples", Value: d.SamplesPerCallback},
		cli.IntFlag{Name: "periods", Usage: "Callback periods queued before the producer waits", Value: d.CallbackPeriods},
		cli.IntFlag{Name: "ring", Usage: "Ring buffer capacity in samples", Value: d.RingCapacity},
		cli.IntFlag{Name: "target", Usage: "Occupancy in periods below which playback is stretched", Value: d.TargetLow},
		cli.IntFlag{Name: "scale", Usage: "Scale factor for the correction window", Value: d.ScaleFactor},
		cli.Float64Flag{Name: "max-correction", Usage: "Largest ratio deviation from nominal", Value: d.MaxCorrection},
		cli.StringFlag{Name: "quality", Usage: "Resampler quality: fastest, linear, cubic, sinc", Value: d.Quality.String()},
		cli.IntFlag{Name: "speed", Usage: "Fast-forward multiplier", Value: d.Speed},
		cli.BoolFlag{Name: "mute", Usage: "Start muted"},
		cli.Float64Flag{Name: "refresh", Usage: "Host display refresh in Hz", Value: d.HostRefreshHz},
		cli.Float64Flag{Name: "frametime", Usage: "Nominal core frame rate in Hz (0 = core FPS)"},
	}
}

func coreFlags() []cli.Flag {
	d := tone.DefaultConfig()
	return []cli.Flag{
		cli.StringFlag{Name: "wav", Usage: "Play a WAV or MP3 file as the core's audio instead of a tone"},
		cli.Float64Flag{Name: "fps", Usage: "Core frame rate", Value: d.FPS},
		cli.Float64Flag{Name: "freq", Usage: "Tone frequency in Hz", Value: d.Frequency},
		cli.IntFlag{Name: "duty", Usage: "Tone duty pattern 0-3 (12.5%, 25%, 50%, 75%)", Value: int(d.Duty)},
	}
}

func runFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{Name: "device", Usage: "Audio output: oto, sdl2, wav, headless", Value: config.Default().Device},
		cli.StringFlag{Name: "out", Usage: "Output file for the wav device", Value: "lockstep.wav"},
		cli.BoolFlag{Name: "headless", Usage: "Log to stderr instead of drawing the terminal monitor"},
		cli.IntFlag{Name: "ticks", Usage: "Stop after N host ticks (0 = run until quit)"},
		cli.StringFlag{Name: "limiter", Usage: "Host tick source: adaptive, ticker", Value: "adaptive"},
	}
}

func simulateFlags() []cli.Flag {
	return []cli.Flag{
		cli.IntFlag{Name: "ticks", Usage: "Number of host ticks to simulate", Value: 3600},
		cli.Float64Flag{Name: "skew", Usage: "Device clock error in parts per million"},
		cli.StringFlag{Name: "out", Usage: "Also capture the output to this WAV file"},
	}
}

func configFromFlags(c *cli.Context) (config.Config, error) {
	cfg := config.Default()
	quality, err := resample.ParseQuality(c.String("quality"))
	if err != nil {
		return cfg, err
	}

	cfg.SampleRate = c.Int("rate")
	cfg.SamplesPerCallback = c.Int("period")
	cfg.CallbackPeriods = c.Int("periods")
	cfg.RingCapacity = c.Int("ring")
	cfg.TargetLow = c.Int("target")
	cfg.ScaleFactor = c.Int("scale")
	cfg.MaxCorrection = c.Float64("max-correction")
	cfg.Quality = quality
	cfg.Speed = c.Int("speed")
	cfg.Mute = c.Bool("mute")
	cfg.HostRefreshHz = c.Float64("refresh")
	cfg.FrametimeHz = c.Float64("frametime")
	if c.IsSet("device") {
		cfg.Device = c.String("device")
	}
	cfg.WAVPath = c.String("out")
	return cfg, cfg.Validate()
}

func newCore(c *cli.Context) (core.Core, error) {
	if path := c.String("wav"); path != "" {
		return wavcore.Open(path, c.Float64("fps"))
	}
	if c.Int("duty") < 0 {
		return nil, fmt.Errorf("tone: duty %d out of range", c.Int("duty"))
	}

	cfg := tone.DefaultConfig()
	cfg.FPS = c.Float64("fps")
	cfg.Frequency = c.Float64("freq")
	cfg.Duty = uint8(c.Int("duty"))
	return tone.New(cfg)
}

func newDevice(cfg config.Config) (device.Device, error) {
	switch cfg.Device {
	case "oto":
		return oto.New(), nil
	case "sdl2":
		return sdl2.New(), nil
	case "wav":
		if cfg.WAVPath == "" {
			return nil, errors.New("wav device requires --out")
		}
		return wav.New(cfg.WAVPath), nil
	case "headless":
		return headless.New(headless.Config{Realtime: true}), nil
	default:
		return nil, fmt.Errorf("%w: unknown device %q", config.ErrInvalid, cfg.Device)
	}
}

// newLimiter returns the host tick source and a function releasing it.
func newLimiter(name string, refreshHz float64) (timing.Limiter, func(), error) {
	switch name {
	case "adaptive":
		return timing.NewAdaptiveLimiter(refreshHz), func() {}, nil
	case "ticker":
		t := timing.NewTickerLimiter(refreshHz)
		return t, t.Stop, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown limiter %q", config.ErrInvalid, name)
	}
}

func useStderrLogging() {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	slog.SetDefault(slog.New(handler))
}

func runCommand(c *cli.Context) error {
	cfg, err := configFromFlags(c)
	if err != nil {
		return err
	}

	limiter, stopLimiter, err := newLimiter(c.String("limiter"), cfg.HostRefreshHz)
	if err != nil {
		return err
	}
	defer stopLimiter()

	noTTY := !term.IsTerminal(int(os.Stdout.Fd()))

	var display frontend.Display
	if c.Bool("headless") || noTTY {
		useStderrLogging()
		if noTTY {
			slog.Info("Standard output is not a terminal, monitor disabled")
		}
		display = frontend.NewHeadless(c.Int("ticks"))
	} else {
		mon, err := monitor.NewTerminal(monitor.Config{
			SamplesPerCallback: cfg.SamplesPerCallback,
			CallbackPeriods:    cfg.CallbackPeriods,
			TargetLow:          cfg.TargetLow,
			HandleSignals:      true,
		})
		if err != nil {
			return err
		}
		slog.SetDefault(slog.New(mon.LogHandler()))
		display = mon
		if ticks := c.Int("ticks"); ticks > 0 {
			display = &tickLimit{Display: mon, left: ticks}
		}
	}

	emu, err := newCore(c)
	if err != nil {
		return err
	}
	engine, err := audio.New(cfg, emu.AudioInfo())
	if err != nil {
		return err
	}

	dev, err := newDevice(cfg)
	if err != nil {
		engine.Close()
		return err
	}
	// a failed device leaves the engine in null-sink mode; keep running
	_ = engine.Open(dev)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := frontend.NewRunner(emu, engine, display, limiter, frontend.Options{})
	return runner.Run(ctx)
}

func simulateCommand(c *cli.Context) error {
	useStderrLogging()

	cfg, err := configFromFlags(c)
	if err != nil {
		return err
	}
	emu, err := newCore(c)
	if err != nil {
		return err
	}
	// the simulated consumer never blocks, so the producer shouldn't either
	engine, err := audio.New(cfg, emu.AudioInfo(), audio.WithRingWait(0, 0))
	if err != nil {
		return err
	}

	var pull func() error
	if out := c.String("out"); out != "" {
		dev := wav.NewManual(out)
		if err := engine.Open(dev); err != nil {
			engine.Close()
			return err
		}
		pull = dev.Step
	} else {
		dev := headless.New(headless.Config{})
		if err := engine.Open(dev); err != nil {
			engine.Close()
			return err
		}
		pull = func() error {
			dev.Tick()
			return nil
		}
	}

	spec := engine.Spec()
	display := frontend.NewSimulated(frontend.NewHeadless(c.Int("ticks")), pull,
		spec.SamplesPerCallback, spec.SampleRate, spec.Channels, cfg.HostRefreshHz, c.Float64("skew"))

	runner := frontend.NewRunner(emu, engine, display, timing.NewNoOpLimiter(), frontend.Options{})
	if err := runner.Run(context.Background()); err != nil {
		return err
	}

	s := engine.Stats()
	slog.Info("Simulation finished",
		"ticks", runner.Ticks(), "frames", s.Frames, "callbacks", display.Pulls(),
		"occupancy", s.Occupancy, "ratio", s.Ratio,
		"underruns", s.Underruns, "dropped", s.Dropped, "padded", s.SilencePadded)
	return nil
}

// tickLimit quits a display after a fixed number of updates.
type tickLimit struct {
	frontend.Display
	left int
}

func (t *tickLimit) Update(stats audio.Stats) ([]input.Event, error) {
	events, err := t.Display.Update(stats)
	t.left--
	if t.left <= 0 {
		events = append(events, input.Event{Action: action.Quit, Type: event.Press})
	}
	return events, err
}

var _ frontend.Display = (*monitor.Monitor)(nil)

