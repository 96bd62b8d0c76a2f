package spectral

import (
	"math"
	"testing"
)

func TestGenerateHannSymmetric(t *testing.T) {
	wg := NewWindowGenerator()
	w, err := wg.Generate(&WindowConfig{Type: WindowHann, Size: 64, Symmetric: true})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(w.Coefficients) != 64 {
		t.Fatalf("expected 64 coefficients, got %d", len(w.Coefficients))
	}
	if math.Abs(w.Coefficients[0]) > 1e-12 {
		t.Errorf("symmetric Hann should start at 0, got %g", w.Coefficients[0])
	}
	if math.Abs(w.Coefficients[63]) > 1e-12 {
		t.Errorf("symmetric Hann should end at 0, got %g", w.Coefficients[63])
	}
	for i := 0; i < 32; i++ {
		a, b := w.Coefficients[i], w.Coefficients[63-i]
		if math.Abs(a-b) > 1e-12 {
			t.Errorf("coefficient %d not symmetric: %g vs %g", i, a, b)
		}
	}
	for i, c := range w.Coefficients {
		if c < 0 || c > 1 {
			t.Errorf("coefficient %d out of [0,1]: %g", i, c)
		}
	}
}

func TestGenerateRectangular(t *testing.T) {
	wg := NewWindowGenerator()
	w, err := wg.Generate(&WindowConfig{Type: WindowRectangular, Size: 16, Symmetric: true})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	for i, c := range w.Coefficients {
		if c != 1.0 {
			t.Errorf("rectangular coefficient %d should be 1, got %g", i, c)
		}
	}
}

func TestGenerateWindowTypes(t *testing.T) {
	wg := NewWindowGenerator()
	for _, wt := range []WindowType{WindowHann, WindowHamming, WindowBlackman, WindowRectangular} {
		w, err := wg.Generate(&WindowConfig{Type: wt, Size: 128, Symmetric: true})
		if err != nil {
			t.Errorf("Generate(%s) failed: %v", wt, err)
			continue
		}
		if w.Size != 128 {
			t.Errorf("Generate(%s) size = %d, want 128", wt, w.Size)
		}
	}
}

func TestGenerateUnknownType(t *testing.T) {
	wg := NewWindowGenerator()
	if _, err := wg.Generate(&WindowConfig{Type: "triangle-ish", Size: 16}); err == nil {
		t.Fatal("expected error for unknown window type")
	}
}

func TestGenerateInvalidSize(t *testing.T) {
	wg := NewWindowGenerator()
	if _, err := wg.Generate(&WindowConfig{Type: WindowHann, Size: 0}); err == nil {
		t.Fatal("expected error for zero window size")
	}
	if _, err := wg.Generate(&WindowConfig{Type: WindowHann, Size: -4}); err == nil {
		t.Fatal("expected error for negative window size")
	}
}

func TestGeneratorCache(t *testing.T) {
	wg := NewWindowGenerator()
	cfg := &WindowConfig{Type: WindowHann, Size: 256, Symmetric: true}

	w1, err := wg.Generate(cfg)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	w2, err := wg.Generate(cfg)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if w1 != w2 {
		t.Error("expected identical cached window instance")
	}
}

func TestApplyLengthMismatch(t *testing.T) {
	wg := NewWindowGenerator()
	w, err := wg.Generate(&WindowConfig{Type: WindowHann, Size: 32, Symmetric: true})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if _, err := w.Apply(make([]float64, 16)); err == nil {
		t.Error("Apply should reject mismatched signal length")
	}
	if err := w.ApplyInPlace(make([]float64, 16)); err == nil {
		t.Error("ApplyInPlace should reject mismatched signal length")
	}
}

func TestApplyMatchesApplyInPlace(t *testing.T) {
	wg := NewWindowGenerator()
	w, err := wg.Generate(&WindowConfig{Type: WindowHamming, Size: 64, Symmetric: true})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	signal := make([]float64, 64)
	for i := range signal {
		signal[i] = math.Sin(float64(i) * 0.1)
	}

	applied, err := w.Apply(signal)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	inPlace := make([]float64, 64)
	copy(inPlace, signal)
	if err := w.ApplyInPlace(inPlace); err != nil {
		t.Fatalf("ApplyInPlace failed: %v", err)
	}

	for i := range applied {
		if applied[i] != inPlace[i] {
			t.Fatalf("Apply and ApplyInPlace disagree at %d: %g vs %g", i, applied[i], inPlace[i])
		}
	}
}
