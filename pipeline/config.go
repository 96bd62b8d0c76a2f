package pipeline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sonigraph/sonigraph/render"
	"github.com/sonigraph/sonigraph/spectral"
	"github.com/sonigraph/sonigraph/spectrogram"
)

// Config holds all analysis and display parameters for a pipeline run.
// Window and hop size are product knobs, not derivable constants; the
// defaults follow common spectrogram-viewer practice (8192-sample Hann
// windows with 50% overlap).
type Config struct {
	Window *spectral.WindowConfig `json:"window" yaml:"window"`

	// HopSize is the sample step between consecutive windows. Smaller
	// values buy time resolution with more transform work.
	HopSize int `json:"hop_size" yaml:"hop_size"`

	// DynamicRangeDB is the span of decibels mapped onto the palette.
	DynamicRangeDB float64 `json:"dynamic_range_db" yaml:"dynamic_range_db"`

	Palette       string               `json:"palette" yaml:"palette"`
	FreqScale     spectrogram.FreqScale `json:"freq_scale" yaml:"freq_scale"`
	Interpolation render.Interpolation  `json:"interpolation" yaml:"interpolation"`

	// Parallelism bounds the STFT worker count; <= 0 means GOMAXPROCS.
	Parallelism int `json:"parallelism" yaml:"parallelism"`
}

// DefaultConfig returns the default pipeline configuration
func DefaultConfig() *Config {
	return &Config{
		Window:         spectral.DefaultWindowConfig(),
		HopSize:        4096,
		DynamicRangeDB: 90,
		Palette:        "magma",
		FreqScale:      spectrogram.FreqHybrid,
		Interpolation:  render.InterpNearest,
		Parallelism:    0,
	}
}

// Validate checks the configuration for internal consistency
func (c *Config) Validate() error {
	if c.Window == nil {
		return fmt.Errorf("missing window configuration")
	}
	if c.Window.Size <= 0 {
		return fmt.Errorf("window size must be positive, got %d", c.Window.Size)
	}
	if c.HopSize <= 0 || c.HopSize > c.Window.Size {
		return fmt.Errorf("hop size must be in (0, window size], got %d", c.HopSize)
	}
	if c.DynamicRangeDB <= 0 {
		return fmt.Errorf("dynamic range must be positive, got %g dB", c.DynamicRangeDB)
	}
	if _, err := spectrogram.PaletteByName(c.Palette); err != nil {
		return err
	}
	if !c.FreqScale.Valid() {
		return fmt.Errorf("unknown frequency scale: %q", c.FreqScale)
	}
	return nil
}

// LoadConfig reads a YAML configuration file over the defaults, so a file
// only needs to name the settings it changes
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}
