// Package spectrogram assembles per-frame magnitude spectra into a
// time-frequency grid and converts the grid into a color raster. The grid
// is computed once per file; colorization and display resampling are cheap
// and re-run on every resize without touching the grid.
package spectrogram

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/sonigraph/sonigraph/spectral"
)

// Spectrogram is an immutable time-frequency grid of linear magnitudes,
// one row per analysis frame, one column per frequency bin.
type Spectrogram struct {
	rows [][]float64

	FreqBins   int `json:"freq_bins"`
	TimeFrames int `json:"time_frames"`
	SampleRate int `json:"sample_rate"`
	WindowSize int `json:"window_size"`
	HopSize    int `json:"hop_size"`

	// FreqResolution is Hz per bin, TimeResolution seconds per frame.
	FreqResolution float64 `json:"freq_resolution"`
	TimeResolution float64 `json:"time_resolution"`
}

// Row returns the magnitude spectrum of time frame t. The returned slice
// is shared with the spectrogram and must not be modified.
func (s *Spectrogram) Row(t int) []float64 {
	return s.rows[t]
}

// MaxMagnitude returns the largest magnitude in the grid, the 0 dB
// reference for display scaling. Returns 0 for silence.
func (s *Spectrogram) MaxMagnitude() float64 {
	maxVal := 0.0
	for _, row := range s.rows {
		if len(row) == 0 {
			continue
		}
		if m := floats.Max(row); m > maxVal {
			maxVal = m
		}
	}
	return maxVal
}

// Normalized converts the grid to display intensities in [0, 1]. Values
// are mapped to decibels relative to the loudest cell (20*log10(mag/ref)),
// clamped to the bottom of the dynamic range, and rescaled linearly so the
// loudest cell is 1 and anything at or below -dynamicRangeDB is 0. Zero
// magnitudes (and a fully silent grid) land exactly on the floor; the
// log-of-zero edge never produces NaN or Inf.
func (s *Spectrogram) Normalized(dynamicRangeDB float64) ([][]float64, error) {
	if dynamicRangeDB <= 0 {
		return nil, fmt.Errorf("dynamic range must be positive, got %g dB", dynamicRangeDB)
	}

	out := make([][]float64, s.TimeFrames)
	ref := s.MaxMagnitude()

	if ref == 0 {
		for t := range out {
			out[t] = make([]float64, s.FreqBins)
		}
		return out, nil
	}

	invRef := 1.0 / ref
	for t, row := range s.rows {
		normRow := make([]float64, s.FreqBins)
		for f, mag := range row {
			if mag <= 0 {
				continue
			}
			db := 20 * math.Log10(mag*invRef)
			if db <= -dynamicRangeDB {
				continue
			}
			normRow[f] = 1.0 + db/dynamicRangeDB
		}
		out[t] = normRow
	}
	return out, nil
}

// Builder accumulates spectral frames into a Spectrogram. Append the frames
// in stream order, then call Finalize exactly once.
type Builder struct {
	rows       [][]float64
	freqBins   int
	sampleRate int
	windowSize int
	hopSize    int
	finalized  bool
}

// NewBuilder creates a builder for frames produced with the given analysis
// parameters
func NewBuilder(sampleRate, windowSize, hopSize int) (*Builder, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	if windowSize <= 0 {
		return nil, fmt.Errorf("window size must be positive, got %d", windowSize)
	}
	if hopSize <= 0 {
		return nil, fmt.Errorf("hop size must be positive, got %d", hopSize)
	}

	return &Builder{
		freqBins:   windowSize/2 + 1,
		sampleRate: sampleRate,
		windowSize: windowSize,
		hopSize:    hopSize,
	}, nil
}

// Append adds one spectral frame as the next row. A frame with the wrong
// bin count is an internal contract violation and fails the build.
func (b *Builder) Append(frame *spectral.SpectralFrame) error {
	if b.finalized {
		return fmt.Errorf("builder already finalized")
	}
	if frame == nil {
		return fmt.Errorf("nil spectral frame")
	}
	if len(frame.Magnitudes) != b.freqBins {
		return fmt.Errorf("spectral frame has %d bins, expected %d", len(frame.Magnitudes), b.freqBins)
	}

	b.rows = append(b.rows, frame.Magnitudes)
	return nil
}

// Finalize seals the builder and returns the immutable grid
func (b *Builder) Finalize() (*Spectrogram, error) {
	if b.finalized {
		return nil, fmt.Errorf("builder already finalized")
	}
	b.finalized = true

	return &Spectrogram{
		rows:           b.rows,
		FreqBins:       b.freqBins,
		TimeFrames:     len(b.rows),
		SampleRate:     b.sampleRate,
		WindowSize:     b.windowSize,
		HopSize:        b.hopSize,
		FreqResolution: float64(b.sampleRate) / float64(b.windowSize),
		TimeResolution: float64(b.hopSize) / float64(b.sampleRate),
	}, nil
}

// Build assembles a complete spectrogram from an ordered slice of spectral
// frames, the common case after a batch STFT.
func Build(spectra []*spectral.SpectralFrame, sampleRate, windowSize, hopSize int) (*Spectrogram, error) {
	builder, err := NewBuilder(sampleRate, windowSize, hopSize)
	if err != nil {
		return nil, err
	}
	for i, frame := range spectra {
		if err := builder.Append(frame); err != nil {
			return nil, fmt.Errorf("append frame %d: %w", i, err)
		}
	}
	return builder.Finalize()
}
