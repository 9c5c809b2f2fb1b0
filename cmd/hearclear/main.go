package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/hearclear"
	"github.com/opd-ai/hearclear/audiometry"
	"github.com/opd-ai/hearclear/internal/ui"
	"github.com/opd-ai/hearclear/playback"
)

var version = "0.1.0"

// CLI defines the command-line interface
type CLI struct {
	Version kong.VersionFlag `short:"v" help:"Show version information"`
	Debug   bool             `help:"Write debug logs to hearclear-debug.log"`
	Silent  bool             `help:"Run without an audio device (null output)"`

	Test     TestCmd     `cmd:"" help:"Run an interactive hearing threshold test"`
	Tone     ToneCmd     `cmd:"" help:"Play a calibrated test tone"`
	Preset   PresetCmd   `cmd:"" help:"Apply a correction preset and hold it"`
	Response ResponseCmd `cmd:"" help:"Measure and print a preset's frequency response"`
}

// runContext carries the global flags into the subcommand Run methods.
type runContext struct {
	silent bool
}

// open builds the HearClear instance the subcommands operate on. With
// --silent the output is a null sink, so every command works on
// machines without audio hardware.
func (rc *runContext) open() (*hearclear.HearClear, error) {
	opts := hearclear.NewOptions()
	if rc.silent {
		opts.SinkFactory = func(sampleRate int, source playback.SampleSource) (playback.Sink, error) {
			return playback.NewNullSink(source)
		}
	}
	hc, err := hearclear.New(opts)
	if err != nil {
		return nil, fmt.Errorf("open audio: %w", err)
	}
	return hc, nil
}

// TestCmd runs the interactive threshold test in a terminal UI.
type TestCmd struct{}

func (c *TestCmd) Run(rc *runContext) error {
	hc, err := rc.open()
	if err != nil {
		return err
	}
	defer hc.Close()

	p := tea.NewProgram(ui.NewTestModel(hc), tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("run test UI: %w", err)
	}
	if m, ok := finalModel.(ui.TestModel); ok && m.Err != nil {
		return m.Err
	}
	return nil
}

// ToneCmd plays one calibrated tone and exits.
type ToneCmd struct {
	Freq     int           `arg:"" help:"Tone frequency in Hz"`
	Level    float64       `default:"40" help:"Level in dB HL (0-90)"`
	Duration time.Duration `default:"2s" help:"How long to sound the tone"`
}

func (c *ToneCmd) Run(rc *runContext) error {
	hc, err := rc.open()
	if err != nil {
		return err
	}
	defer hc.Close()

	if err := hc.PlayTestTone(c.Freq, c.Level); err != nil {
		return err
	}
	fmt.Printf("Playing %d Hz at %.0f dB HL for %s\n", c.Freq, c.Level, c.Duration)
	time.Sleep(c.Duration)
	return hc.StopTestTone()
}

// PresetCmd applies a named preset to the live signal path and holds it
// until interrupted, so the listener can judge the correction by ear.
type PresetCmd struct {
	Name string `arg:"" help:"Preset name: standard, wide_spectrum, voice_isolation"`
}

func (c *PresetCmd) Run(rc *runContext) error {
	preset, err := audiometry.ParsePreset(c.Name)
	if err != nil {
		return err
	}

	hc, err := rc.open()
	if err != nil {
		return err
	}
	defer hc.Close()

	if err := hc.ApplyPreset(preset); err != nil {
		return err
	}

	fmt.Printf("Preset %s active. Press Ctrl-C to release.\n", preset)
	interrupted := make(chan os.Signal, 1)
	signal.Notify(interrupted, os.Interrupt, syscall.SIGTERM)
	<-interrupted
	return nil
}

// ResponseCmd measures a preset's frequency response by probing the
// correction chain, which doubles as a check that the signal path is
// sane.
type ResponseCmd struct {
	Preset string `default:"standard" help:"Preset to measure"`
}

func (c *ResponseCmd) Run(rc *runContext) error {
	preset, err := audiometry.ParsePreset(c.Preset)
	if err != nil {
		return err
	}

	hc, err := rc.open()
	if err != nil {
		return err
	}
	defer hc.Close()

	if err := hc.ApplyPreset(preset); err != nil {
		return err
	}

	curve, err := hc.ResponseCurve()
	if err != nil {
		return fmt.Errorf("measure response: %w", err)
	}

	fmt.Printf("Measured response for preset %s:\n", preset)
	for _, freqHz := range audiometry.TestFrequencies {
		if gain, ok := curve[freqHz]; ok {
			fmt.Printf("  %5d Hz  %+6.1f dB\n", freqHz, gain)
		}
	}
	return nil
}

// setupLogging keeps the terminal clean by default and routes debug
// output to a file when asked, since log lines would tear the TUI.
func setupLogging(debug bool) {
	if !debug {
		logrus.SetOutput(io.Discard)
		return
	}
	f, err := os.Create("hearclear-debug.log")
	if err != nil {
		logrus.SetOutput(io.Discard)
		return
	}
	logrus.SetOutput(f)
	logrus.SetLevel(logrus.DebugLevel)
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("hearclear"),
		kong.Description("Self-fitting hearing assistance from the command line"),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	setupLogging(cli.Debug)

	if err := ctx.Run(&runContext{silent: cli.Silent}); err != nil {
		fmt.Fprintf(os.Stderr, "hearclear: %v\n", err)
		os.Exit(1)
	}
}
