// Package pipeline wires the analysis stages together: decode, frame,
// transform, assemble. It also owns the run-token bookkeeping a shell
// needs to keep only the latest file's result on screen.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/sonigraph/sonigraph/decode"
	"github.com/sonigraph/sonigraph/logging"
	"github.com/sonigraph/sonigraph/render"
	"github.com/sonigraph/sonigraph/spectral"
	"github.com/sonigraph/sonigraph/spectrogram"
)

// Result is one finished pipeline run. The spectrogram is cached for the
// lifetime of the displayed file; colorizing and rendering derive from it
// without recomputation.
type Result struct {
	Path        string
	SampleRate  int
	Channels    int
	BitDepth    int
	Duration    time.Duration
	Spectrogram *spectrogram.Spectrogram
	Elapsed     time.Duration
}

// Runner executes the batch pipeline. It holds no per-run state, so a
// single Runner may serve any number of concurrent or repeated runs.
type Runner struct {
	cfg    *Config
	logger logging.Logger
}

// NewRunner creates a runner with a validated configuration
func NewRunner(cfg *Config) (*Runner, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}

	return &Runner{
		cfg: cfg,
		logger: logging.WithFields(logging.Fields{
			"component": "pipeline",
		}),
	}, nil
}

// Config returns the runner's configuration
func (r *Runner) Config() *Config {
	return r.cfg
}

// Run decodes the file at path and computes its spectrogram. The context
// is checked between stages and inside the transform fan-out, so a
// superseded run stops early instead of burning cores on a result nobody
// will display.
func (r *Runner) Run(ctx context.Context, path string) (*Result, error) {
	started := time.Now()
	logger := r.logger.WithFields(logging.Fields{"path": path})

	stream, err := decode.Decode(path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger.Info("Decoded audio stream", logging.Fields{
		"sample_rate": stream.SampleRate,
		"channels":    stream.Channels,
		"duration":    stream.Duration(),
	})

	framer, err := spectral.NewFramer(stream, r.cfg.Window.Size, r.cfg.HopSize)
	if err != nil {
		return nil, err
	}
	transformer, err := spectral.NewTransformer(r.cfg.Window)
	if err != nil {
		return nil, err
	}

	spectra, err := spectral.ComputeSTFT(ctx, framer, transformer, r.cfg.Parallelism)
	if err != nil {
		return nil, err
	}

	spec, err := spectrogram.Build(spectra, stream.SampleRate, r.cfg.Window.Size, r.cfg.HopSize)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Path:        path,
		SampleRate:  stream.SampleRate,
		Channels:    stream.Channels,
		BitDepth:    stream.BitDepth,
		Duration:    stream.Duration(),
		Spectrogram: spec,
		Elapsed:     time.Since(started),
	}

	logger.Info("Pipeline run complete", logging.Fields{
		"time_frames": spec.TimeFrames,
		"freq_bins":   spec.FreqBins,
		"elapsed":     result.Elapsed,
	})

	return result, nil
}

// Colorize converts a result's cached spectrogram into a display raster at
// the given frequency-axis height, using the runner's palette, dynamic
// range and axis scale.
func (r *Runner) Colorize(res *Result, height int) (*image.RGBA, error) {
	palette, err := spectrogram.PaletteByName(r.cfg.Palette)
	if err != nil {
		return nil, err
	}
	return spectrogram.ColorizeScaled(res.Spectrogram, palette, r.cfg.DynamicRangeDB, height, r.cfg.FreqScale)
}

// Render resamples a colorized raster to the physical pixel size of the
// display surface.
func (r *Runner) Render(img *image.RGBA, targetW, targetH int, deviceScale float64) (*image.RGBA, error) {
	return render.Render(img, targetW, targetH, deviceScale, r.cfg.Interpolation)
}
