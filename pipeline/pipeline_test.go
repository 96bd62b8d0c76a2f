package pipeline

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"

	"github.com/sonigraph/sonigraph/decode"
	"github.com/sonigraph/sonigraph/spectral"
	"github.com/sonigraph/sonigraph/spectrogram"
)

// writeSineFixture encodes a mono 16-bit FLAC sine tone to path.
func writeSineFixture(t *testing.T, path string, freq float64, sampleRate, length int) {
	t.Helper()

	samples := make([]int32, length)
	for i := range samples {
		samples[i] = int32(30000 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create fixture: %v", err)
	}
	info := &meta.StreamInfo{
		BlockSizeMin:  uint16(length),
		BlockSizeMax:  uint16(length),
		SampleRate:    uint32(sampleRate),
		NChannels:     1,
		BitsPerSample: 16,
		NSamples:      uint64(length),
	}
	enc, err := flac.NewEncoder(f, info)
	if err != nil {
		t.Fatalf("NewEncoder failed: %v", err)
	}
	fr := &frame.Frame{
		Header: frame.Header{
			HasFixedBlockSize: true,
			BlockSize:         uint16(length),
			SampleRate:        uint32(sampleRate),
			Channels:          frame.ChannelsMono,
			BitsPerSample:     16,
		},
		Subframes: []*frame.Subframe{{
			SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
			Samples:   samples,
			NSamples:  length,
		}},
	}
	if err := enc.WriteFrame(fr); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("encoder Close failed: %v", err)
	}
}

func syntheticResult(t *testing.T) *Result {
	t.Helper()
	spectra := []*spectral.SpectralFrame{
		{Magnitudes: []float64{0, 1, 2, 3, 4}},
		{Magnitudes: []float64{4, 3, 2, 1, 0}},
		{Magnitudes: []float64{1, 1, 1, 1, 1}},
	}
	spec, err := spectrogram.Build(spectra, 8000, 8, 4)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return &Result{Path: "synthetic.flac", SampleRate: 8000, Spectrogram: spec}
}

func TestNewRunnerDefaults(t *testing.T) {
	r, err := NewRunner(nil)
	if err != nil {
		t.Fatalf("NewRunner(nil) failed: %v", err)
	}
	if r.Config().Window.Size != 8192 {
		t.Errorf("nil config should fall back to defaults")
	}
}

func TestNewRunnerRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HopSize = 0
	if _, err := NewRunner(cfg); err == nil {
		t.Error("expected error for invalid config")
	}
}

func TestRunMissingFile(t *testing.T) {
	r, err := NewRunner(nil)
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}
	if _, err := r.Run(context.Background(), filepath.Join(t.TempDir(), "missing.flac")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestRunNonAudioFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := NewRunner(nil)
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}
	_, err = r.Run(context.Background(), path)
	if err == nil {
		t.Fatal("expected error for non-audio file")
	}
	kind, ok := decode.KindOf(err)
	if !ok || kind != decode.KindNotAContainer {
		t.Errorf("kind = %v (ok=%t), want %v", kind, ok, decode.KindNotAContainer)
	}
}

func TestRunSineFixtureEndToEnd(t *testing.T) {
	const (
		sampleRate = 8000
		length     = 4000
		windowSize = 1024
		hopSize    = 512
		freq       = 440.0
	)
	path := filepath.Join(t.TempDir(), "sine.flac")
	writeSineFixture(t, path, freq, sampleRate, length)

	cfg := DefaultConfig()
	cfg.Window.Size = windowSize
	cfg.HopSize = hopSize
	r, err := NewRunner(cfg)
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	res, err := r.Run(context.Background(), path)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.SampleRate != sampleRate {
		t.Errorf("SampleRate = %d, want %d", res.SampleRate, sampleRate)
	}
	if res.Channels != 1 {
		t.Errorf("Channels = %d, want 1", res.Channels)
	}
	if res.BitDepth != 16 {
		t.Errorf("BitDepth = %d, want 16", res.BitDepth)
	}

	spec := res.Spectrogram
	wantFrames := (length + hopSize - 1) / hopSize
	if spec.TimeFrames != wantFrames {
		t.Errorf("TimeFrames = %d, want %d", spec.TimeFrames, wantFrames)
	}
	if spec.FreqBins != windowSize/2+1 {
		t.Errorf("FreqBins = %d, want %d", spec.FreqBins, windowSize/2+1)
	}

	// The tone's energy lands within one bin of freq*windowSize/sampleRate
	// in every fully-populated frame.
	wantBin := freq * windowSize / sampleRate
	for ti := 0; ti < 4; ti++ {
		row := spec.Row(ti)
		peak := 0
		for i, m := range row {
			if m > row[peak] {
				peak = i
			}
		}
		if math.Abs(float64(peak)-wantBin) > 1.0 {
			t.Errorf("frame %d: peak at bin %d, want within 1 of %g", ti, peak, wantBin)
		}
	}
}

func TestRunnerColorizeAndRender(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FreqScale = spectrogram.FreqLinear
	r, err := NewRunner(cfg)
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	res := syntheticResult(t)
	raster, err := r.Colorize(res, 32)
	if err != nil {
		t.Fatalf("Colorize failed: %v", err)
	}
	if b := raster.Bounds(); b.Dx() != res.Spectrogram.TimeFrames || b.Dy() != 32 {
		t.Errorf("raster is %dx%d, want %dx32", b.Dx(), b.Dy(), res.Spectrogram.TimeFrames)
	}

	surface, err := r.Render(raster, 120, 64, 2.0)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if b := surface.Bounds(); b.Dx() != 240 || b.Dy() != 128 {
		t.Errorf("surface is %dx%d, want 240x128", b.Dx(), b.Dy())
	}
}
