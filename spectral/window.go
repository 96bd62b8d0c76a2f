// Package spectral turns decoded sample streams into magnitude spectra: it
// slices the stream into overlapping windowed frames and applies a real FFT
// per frame. All types in this package are stateless after construction and
// safe for concurrent use.
package spectral

import (
	"fmt"
	"math"

	"github.com/sonigraph/sonigraph/logging"
)

// WindowType represents different window function types
type WindowType string

const (
	WindowHann        WindowType = "hann"
	WindowHamming     WindowType = "hamming"
	WindowBlackman    WindowType = "blackman"
	WindowRectangular WindowType = "rectangular"
)

// WindowConfig holds window configuration parameters
type WindowConfig struct {
	Type WindowType `json:"type" yaml:"type"`
	Size int        `json:"size" yaml:"size"`

	// Symmetric selects a symmetric window (endpoints both tapered) over a
	// periodic one. Symmetric is the right choice for spectral display.
	Symmetric bool `json:"symmetric" yaml:"symmetric"`
}

// DefaultWindowConfig returns a default window configuration
func DefaultWindowConfig() *WindowConfig {
	return &WindowConfig{
		Type:      WindowHann,
		Size:      8192,
		Symmetric: true,
	}
}

// Window represents a window function with its generated coefficients
type Window struct {
	Type         WindowType `json:"type"`
	Size         int        `json:"size"`
	Coefficients []float64  `json:"coefficients"`
}

// WindowGenerator generates and caches window functions
type WindowGenerator struct {
	logger logging.Logger
	cache  map[string]*Window
}

// NewWindowGenerator creates a new window generator
func NewWindowGenerator() *WindowGenerator {
	return &WindowGenerator{
		logger: logging.WithFields(logging.Fields{
			"component": "window_generator",
		}),
		cache: make(map[string]*Window),
	}
}

// Generate creates a window with the specified configuration
func (wg *WindowGenerator) Generate(config *WindowConfig) (*Window, error) {
	if config == nil {
		config = DefaultWindowConfig()
	}
	if config.Size <= 0 {
		return nil, fmt.Errorf("window size must be positive, got %d", config.Size)
	}

	cacheKey := fmt.Sprintf("%s_%d_%t", config.Type, config.Size, config.Symmetric)
	if cached, exists := wg.cache[cacheKey]; exists {
		return cached, nil
	}

	coefficients, err := generateCoefficients(config)
	if err != nil {
		return nil, err
	}

	window := &Window{
		Type:         config.Type,
		Size:         config.Size,
		Coefficients: coefficients,
	}
	wg.cache[cacheKey] = window

	wg.logger.Debug("Generated window", logging.Fields{
		"window_type": config.Type,
		"window_size": config.Size,
	})

	return window, nil
}

func generateCoefficients(config *WindowConfig) ([]float64, error) {
	n := config.Size
	coeffs := make([]float64, n)

	denominator := float64(n)
	if config.Symmetric && n > 1 {
		denominator = float64(n - 1)
	}

	switch config.Type {
	case WindowHann:
		for i := 0; i < n; i++ {
			coeffs[i] = 0.5 * (1.0 - math.Cos(2*math.Pi*float64(i)/denominator))
		}
	case WindowHamming:
		for i := 0; i < n; i++ {
			coeffs[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/denominator)
		}
	case WindowBlackman:
		for i := 0; i < n; i++ {
			arg := 2 * math.Pi * float64(i) / denominator
			coeffs[i] = 0.42 - 0.5*math.Cos(arg) + 0.08*math.Cos(2*arg)
		}
	case WindowRectangular:
		for i := 0; i < n; i++ {
			coeffs[i] = 1.0
		}
	default:
		return nil, fmt.Errorf("unsupported window type: %s", config.Type)
	}

	return coeffs, nil
}

// Apply applies the window to a signal and returns a new slice
func (w *Window) Apply(signal []float64) ([]float64, error) {
	if len(signal) != w.Size {
		return nil, fmt.Errorf("signal length (%d) doesn't match window size (%d)", len(signal), w.Size)
	}

	windowed := make([]float64, w.Size)
	for i := 0; i < w.Size; i++ {
		windowed[i] = signal[i] * w.Coefficients[i]
	}
	return windowed, nil
}

// ApplyInPlace applies the window to a signal in-place
func (w *Window) ApplyInPlace(signal []float64) error {
	if len(signal) != w.Size {
		return fmt.Errorf("signal length (%d) doesn't match window size (%d)", len(signal), w.Size)
	}

	for i := 0; i < w.Size; i++ {
		signal[i] *= w.Coefficients[i]
	}
	return nil
}
