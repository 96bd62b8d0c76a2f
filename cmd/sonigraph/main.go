// sonigraph renders a spectrogram of a FLAC file to a PNG image.
//
// The analysis pipeline (decode, window, transform, colorize) lives in the
// library packages; this command is the presentation shell, taking the
// place of a windowed viewer. The input may be a plain path or a
// text/uri-list body as emitted by file-manager drag-and-drop.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sonigraph/sonigraph/logging"
	"github.com/sonigraph/sonigraph/pipeline"
	"github.com/sonigraph/sonigraph/render"
	"github.com/sonigraph/sonigraph/spectral"
	"github.com/sonigraph/sonigraph/spectrogram"
)

type options struct {
	configPath    string
	output        string
	windowSize    int
	hopSize       int
	windowType    string
	dynamicRange  float64
	palette       string
	freqScale     string
	interpolation string
	width         int
	height        int
	deviceScale   float64
	uriList       bool
	verbose       bool
}

func main() {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "sonigraph <audio.flac>",
		Short:         "Render a spectrogram of a lossless audio file",
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, args[0])
		},
	}

	flags := rootCmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "YAML config file; flags override its values")
	flags.StringVarP(&opts.output, "out", "o", "spectrogram.png", "Output PNG path")
	flags.IntVar(&opts.windowSize, "window-size", 0, "Samples per analysis window")
	flags.IntVar(&opts.hopSize, "hop-size", 0, "Samples between consecutive windows")
	flags.StringVar(&opts.windowType, "window", "", "Window function (hann, hamming, blackman, rectangular)")
	flags.Float64Var(&opts.dynamicRange, "dynamic-range", 0, "Dynamic range in dB mapped onto the palette")
	flags.StringVar(&opts.palette, "palette", "", "Color palette (magma, heat, gray)")
	flags.StringVar(&opts.freqScale, "freq-scale", "", "Frequency axis scale (linear, log, hybrid)")
	flags.StringVar(&opts.interpolation, "interpolation", "", "Resampling mode (nearest, bilinear)")
	flags.IntVarP(&opts.width, "width", "W", 1280, "Output width in logical pixels")
	flags.IntVarP(&opts.height, "height", "H", 720, "Output height in logical pixels")
	flags.Float64Var(&opts.deviceScale, "scale", 1.0, "Device pixel ratio (2.0 for HiDPI output)")
	flags.BoolVar(&opts.uriList, "uri-list", false, "Treat the argument as a text/uri-list drop body")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Show debug output")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "sonigraph: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts *options, input string) error {
	if opts.verbose {
		logging.SetLevel(logging.DebugLevel)
	}

	cfg, err := buildConfig(opts)
	if err != nil {
		return err
	}

	payload := pipeline.PathPayload(input)
	if opts.uriList {
		payload = pipeline.URIListPayload(input)
	}
	path, err := payload.FilePath()
	if err != nil {
		return err
	}

	runner, err := pipeline.NewRunner(cfg)
	if err != nil {
		return err
	}

	result, err := runner.Run(ctx, path)
	if err != nil {
		// Decode failures are an expected error state, reported and
		// exited cleanly; they must never take the shell down.
		return err
	}

	colorized, err := runner.Colorize(result, opts.height)
	if err != nil {
		return err
	}

	buffer, err := runner.Render(colorized, opts.width, opts.height, opts.deviceScale)
	if err != nil {
		return err
	}

	if err := render.WritePNG(opts.output, buffer); err != nil {
		return err
	}

	logging.Info("Wrote spectrogram", logging.Fields{
		"input":  path,
		"output": opts.output,
		"size":   fmt.Sprintf("%dx%d", buffer.Bounds().Dx(), buffer.Bounds().Dy()),
	})
	return nil
}

// buildConfig layers the command line over an optional config file over
// the defaults
func buildConfig(opts *options) (*pipeline.Config, error) {
	cfg := pipeline.DefaultConfig()
	if opts.configPath != "" {
		loaded, err := pipeline.LoadConfig(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if opts.windowSize > 0 {
		cfg.Window.Size = opts.windowSize
	}
	if opts.hopSize > 0 {
		cfg.HopSize = opts.hopSize
	}
	if opts.windowType != "" {
		cfg.Window.Type = spectral.WindowType(opts.windowType)
	}
	if opts.dynamicRange > 0 {
		cfg.DynamicRangeDB = opts.dynamicRange
	}
	if opts.palette != "" {
		cfg.Palette = opts.palette
	}
	if opts.freqScale != "" {
		cfg.FreqScale = spectrogram.FreqScale(opts.freqScale)
	}
	if opts.interpolation != "" {
		cfg.Interpolation = render.Interpolation(opts.interpolation)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
