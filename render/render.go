// Package render adapts a color-mapped spectrogram image to a physical
// pixel buffer. It only resamples cached rasters; the expensive transform
// work upstream is resolution-independent and never re-runs on resize.
package render

import (
	"fmt"
	"image"
	"image/png"
	"math"
	"os"

	xdraw "golang.org/x/image/draw"

	"github.com/sonigraph/sonigraph/logging"
)

// Interpolation selects the resampling kernel
type Interpolation string

const (
	// InterpNearest keeps cell edges hard, the right choice when one
	// spectrogram cell spans multiple device pixels.
	InterpNearest Interpolation = "nearest"

	// InterpBilinear smooths when the raster is scaled down far.
	InterpBilinear Interpolation = "bilinear"
)

func (i Interpolation) scaler() (xdraw.Scaler, error) {
	switch i {
	case InterpNearest:
		return xdraw.NearestNeighbor, nil
	case InterpBilinear:
		return xdraw.ApproxBiLinear, nil
	default:
		return nil, fmt.Errorf("unknown interpolation mode: %q", i)
	}
}

// Render resamples src to a device pixel buffer. targetW and targetH are
// logical pixels; scale is the device pixel ratio (2.0 on a typical HiDPI
// display), so the output measures round(target * scale) physical pixels
// and stays crisp at any density.
func Render(src *image.RGBA, targetW, targetH int, scale float64, mode Interpolation) (*image.RGBA, error) {
	if src == nil || src.Bounds().Empty() {
		return nil, fmt.Errorf("empty source image")
	}
	if targetW <= 0 || targetH <= 0 {
		return nil, fmt.Errorf("target size must be positive, got %dx%d", targetW, targetH)
	}
	if scale <= 0 {
		return nil, fmt.Errorf("device scale factor must be positive, got %g", scale)
	}

	scaler, err := mode.scaler()
	if err != nil {
		return nil, err
	}

	deviceW := int(math.Round(float64(targetW) * scale))
	deviceH := int(math.Round(float64(targetH) * scale))
	if deviceW < 1 {
		deviceW = 1
	}
	if deviceH < 1 {
		deviceH = 1
	}

	logging.Debug("Rendering pixel buffer", logging.Fields{
		"component":    "renderer",
		"logical_size": fmt.Sprintf("%dx%d", targetW, targetH),
		"device_size":  fmt.Sprintf("%dx%d", deviceW, deviceH),
		"scale":        scale,
	})

	dst := image.NewRGBA(image.Rect(0, 0, deviceW, deviceH))
	scaler.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst, nil
}

// WritePNG persists a rendered buffer. The CLI shell uses this as its
// display surface in place of a window.
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}

	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	return f.Close()
}
