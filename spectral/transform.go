package spectral

import (
	"fmt"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"

	"github.com/sonigraph/sonigraph/logging"
)

// SpectralFrame is the magnitude spectrum of exactly one frame. It keeps
// only the non-redundant bins, DC through Nyquist (windowSize/2+1 values);
// the conjugate-symmetric upper half and all phase information are
// discarded. Immutable once produced.
type SpectralFrame struct {
	// Magnitudes holds one linear magnitude per frequency bin.
	Magnitudes []float64

	// StartOffset is carried over from the source Frame.
	StartOffset int
}

// Transformer computes magnitude spectra of windowed frames. The window is
// generated once at construction and shared across calls; Transform itself
// allocates per call and is safe for concurrent use.
type Transformer struct {
	window *Window
	logger logging.Logger
}

// NewTransformer creates a transformer for the given window configuration
func NewTransformer(config *WindowConfig) (*Transformer, error) {
	window, err := NewWindowGenerator().Generate(config)
	if err != nil {
		return nil, fmt.Errorf("failed to generate window: %w", err)
	}

	return &Transformer{
		window: window,
		logger: logging.WithFields(logging.Fields{
			"component":   "transformer",
			"window_type": window.Type,
			"window_size": window.Size,
		}),
	}, nil
}

// NumBins returns the number of frequency bins per spectral frame,
// windowSize/2 + 1
func (t *Transformer) NumBins() int {
	return t.window.Size/2 + 1
}

// WindowSize returns the transform length
func (t *Transformer) WindowSize() int {
	return t.window.Size
}

// BinFrequency returns the center frequency in Hz of a bin at the given
// sample rate
func (t *Transformer) BinFrequency(bin, sampleRate int) float64 {
	return float64(bin) * float64(sampleRate) / float64(t.window.Size)
}

// Transform computes the magnitude spectrum of one frame. A frame whose
// length differs from the window size is a contract violation by the
// caller; it aborts the current run with an error rather than panicking.
func (t *Transformer) Transform(frame *Frame) (*SpectralFrame, error) {
	if frame == nil {
		return nil, fmt.Errorf("nil frame")
	}
	if len(frame.Samples) != t.window.Size {
		return nil, fmt.Errorf("frame length (%d) doesn't match transform length (%d)", len(frame.Samples), t.window.Size)
	}

	windowed, err := t.window.Apply(frame.Samples)
	if err != nil {
		return nil, err
	}

	// go-dsp handles arbitrary lengths, so non-power-of-two window sizes
	// stay correct (Bluestein under the hood, slower but exact).
	spectrum := fft.FFTReal(windowed)

	numBins := t.NumBins()
	magnitudes := make([]float64, numBins)
	for i := 0; i < numBins; i++ {
		magnitudes[i] = cmplx.Abs(spectrum[i])
	}

	return &SpectralFrame{
		Magnitudes:  magnitudes,
		StartOffset: frame.StartOffset,
	}, nil
}
