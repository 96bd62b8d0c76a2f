package spectrogram

import (
	"fmt"
	"image"

	"gonum.org/v1/gonum/interp"
)

// Colorize maps the grid one-to-one onto pixels: one column per time
// frame, one row per frequency bin, low frequencies at the bottom. The
// mapping is deterministic, so colorizing the same spectrogram twice with
// the same parameters yields byte-identical images.
func Colorize(spec *Spectrogram, palette Palette, dynamicRangeDB float64) (*image.RGBA, error) {
	if spec.TimeFrames == 0 {
		return nil, fmt.Errorf("empty spectrogram")
	}
	if palette == nil {
		return nil, fmt.Errorf("nil palette")
	}

	norm, err := spec.Normalized(dynamicRangeDB)
	if err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, spec.TimeFrames, spec.FreqBins))
	for t, row := range norm {
		for f, v := range row {
			img.SetRGBA(t, spec.FreqBins-1-f, palette.At(v))
		}
	}
	return img, nil
}

// ColorizeScaled resamples the frequency axis to height pixels with the
// given display scale before colorizing. Bin lookup interpolates between
// neighboring bins rather than subsampling, so compressed regions of a
// logarithmic axis don't alias.
func ColorizeScaled(spec *Spectrogram, palette Palette, dynamicRangeDB float64, height int, scale FreqScale) (*image.RGBA, error) {
	if spec.TimeFrames == 0 {
		return nil, fmt.Errorf("empty spectrogram")
	}
	if palette == nil {
		return nil, fmt.Errorf("nil palette")
	}
	if height < 2 {
		return nil, fmt.Errorf("display height must be at least 2, got %d", height)
	}
	if !scale.Valid() {
		return nil, fmt.Errorf("unknown frequency scale: %q", scale)
	}

	norm, err := spec.Normalized(dynamicRangeDB)
	if err != nil {
		return nil, err
	}

	// Bin positions for the interpolator. The logarithmic scales start at
	// bin 1; DC has no meaningful position on a log axis.
	bins := make([]float64, spec.FreqBins)
	for i := range bins {
		bins[i] = float64(i)
	}
	minBin := 0.0
	if scale != FreqLinear {
		minBin = 1.0
	}
	maxBin := float64(spec.FreqBins - 1)

	// Precompute the axis-position -> bin mapping once; it is identical
	// for every column.
	binAt := make([]float64, height)
	for y := 0; y < height; y++ {
		yf := 1.0 - float64(y)/float64(height-1)
		pos, err := scale.Map(yf, minBin, maxBin)
		if err != nil {
			return nil, err
		}
		binAt[y] = pos
	}

	img := image.NewRGBA(image.Rect(0, 0, spec.TimeFrames, height))
	var pl interp.PiecewiseLinear
	for t, row := range norm {
		if err := pl.Fit(bins, row); err != nil {
			return nil, fmt.Errorf("fit frequency interpolator for frame %d: %w", t, err)
		}
		for y := 0; y < height; y++ {
			img.SetRGBA(t, y, palette.At(pl.Predict(binAt[y])))
		}
	}
	return img, nil
}
