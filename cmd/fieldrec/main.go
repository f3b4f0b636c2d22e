// fieldrec is a demo CLI exercising the capture engine and noise
// reducer end to end: list input devices, record to a WAV file, and
// optionally run noise reduction afterward. It is integration glue over
// the core library, not part of the core's contract (see §6).
package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/fieldrec/fieldrec/capture"
	"github.com/fieldrec/fieldrec/config"
	"github.com/fieldrec/fieldrec/device"
	"github.com/fieldrec/fieldrec/pcm"
	"github.com/fieldrec/fieldrec/reduce"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fieldrec:", err)
		os.Exit(1)
	}
}

func run() error {
	flags := pflag.NewFlagSet("fieldrec", pflag.ExitOnError)
	flags.Usage = func() {
		fmt.Fprintln(flags.Output(), strings.TrimSpace(`
Usage: fieldrec [FLAGS] <command>

Commands:
  list       List enumerated input and output devices.
  record     Capture to a WAV file until interrupted (Ctrl-C).
  reduce     Run offline noise reduction on an existing WAV file.

Flags:
`))
		flags.PrintDefaults()
	}

	outOpt := flags.StringP("out", "o", "out.wav", "Output WAV path for the record command.")
	deviceOpt := flags.String("device", "", "Input device name; default device if empty.")
	rateOpt := flags.Int("rate", 44100, "Sample rate in Hz.")
	channelsOpt := flags.Int("channels", 1, "Channel count (1 or 2).")
	gainOpt := flags.String("gain", "off", "Gain boost: off, 6db, or 12db.")
	hpfOpt := flags.Int("hpf", 0, "High-pass cutoff in Hz (0, 80, or 120).")
	lpfOpt := flags.Int("lpf", 0, "Low-pass cutoff in Hz (0, 9500, or 15000).")
	gateOpt := flags.Bool("gate", false, "Enable the noise gate.")
	presetOpt := flags.String("preset", "medium", "Noise reduction preset: light, medium, or aggressive.")
	configOpt := flags.String("config", "", "Optional YAML defaults file.")

	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}
	args := flags.Args()
	if len(args) == 0 {
		flags.Usage()
		return fmt.Errorf("missing command")
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "fieldrec"})

	defaults, err := config.Load(*configOpt)
	if err != nil {
		return err
	}

	switch args[0] {
	case "list":
		if err := device.Init(); err != nil {
			return fmt.Errorf("initialize audio device library: %w", err)
		}
		defer device.Terminate()
		return runList(logger)
	case "record":
		if err := device.Init(); err != nil {
			return fmt.Errorf("initialize audio device library: %w", err)
		}
		defer device.Terminate()
		format := pcm.Format{SampleRate: pcm.SampleRate(*rateOpt), Channels: *channelsOpt, BitDepth: 16}
		return runRecord(logger, defaults, *outOpt, *deviceOpt, format, *gainOpt, *hpfOpt, *lpfOpt, *gateOpt)
	case "reduce":
		if len(args) < 2 {
			return fmt.Errorf("reduce requires a path argument")
		}
		return runReduce(defaults, args[1], *presetOpt)
	default:
		flags.Usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func runList(logger *log.Logger) error {
	reg := device.NewRegistry(logger)
	if err := reg.Refresh(); err != nil {
		return err
	}
	for _, d := range reg.List() {
		fmt.Printf("%-32s in=%d out=%d external=%v\n", d.DisplayName, d.MaxInputs, d.MaxOutputs, d.IsExternalInput())
	}
	return nil
}

func runRecord(logger *log.Logger, defaults config.Defaults, outPath, deviceID string, format pcm.Format, gain string, hpf, lpf int, gate bool) error {
	if err := os.WriteFile(outPath, nil, 0o644); err != nil {
		return fmt.Errorf("pre-create output file: %w", err)
	}

	engine := capture.NewEngine()
	lease := &device.Lease{}

	cfg := capture.EngineConfig{
		Format:        format,
		InputDeviceID: deviceID,
		OutputPath:    outPath,
		BufferFrames:  int(format.SampleRate) / 10,
		Lease:         lease,
		GateConfig:    defaults.GateConfig(format.SampleRate),
		Dispatcher: capture.Dispatcher{
			OnStartRecord: func(path string) { logger.Info("recording started", "path", path) },
			OnStopRecord:  func(path string) { logger.Info("recording stopped", "path", path) },
			OnProgress: func(durationMs int64, amplitude float64) {
				logger.Debug("progress", "duration_ms", durationMs, "amplitude", amplitude)
			},
			OnError: func(err error) { logger.Error("capture error", "err", err) },
		},
	}

	if err := engine.Start(cfg); err != nil {
		return err
	}

	engine.Effects().SetGainLevel(parseGain(gain))
	engine.Effects().SetHPFMode(pcm.HPFMode(hpf))
	engine.Effects().SetLPFMode(pcm.LPFMode(lpf))
	engine.Effects().SetGateEnabled(gate)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	fmt.Println("recording... press Ctrl-C to stop")
	<-sig

	return engine.Stop()
}

func runReduce(defaults config.Defaults, path, preset string) error {
	cfg, ok := defaults.ReductionConfig(preset)
	if !ok {
		return fmt.Errorf("unknown preset %q", preset)
	}
	start := time.Now()
	err := reduce.Process(path, cfg, func(done, total int) {
		fmt.Printf("\rreducing noise: %d/%d frames", done, total)
	})
	fmt.Println()
	if err != nil {
		return err
	}
	fmt.Printf("done in %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}

func parseGain(s string) pcm.GainLevel {
	switch strings.ToLower(s) {
	case "6db", "+6db":
		return pcm.Gain6dB
	case "12db", "+12db":
		return pcm.Gain12dB
	default:
		return pcm.GainOff
	}
}
