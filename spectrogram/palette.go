package spectrogram

import (
	"fmt"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Palette maps a normalized intensity in [0, 1] to a color. Palettes must
// be deterministic and order-preserving: higher intensity never maps to a
// perceptually darker color.
type Palette interface {
	Name() string
	At(t float64) color.RGBA
}

// PaletteByName looks up one of the built-in palettes
func PaletteByName(name string) (Palette, error) {
	switch name {
	case "magma":
		return MagmaPalette{}, nil
	case "gray":
		return GrayPalette{}, nil
	case "heat":
		return heatPalette, nil
	default:
		return nil, fmt.Errorf("unknown palette: %q", name)
	}
}

func clamp01(t float64) float64 {
	if t < 0 || math.IsNaN(t) {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

func toByte(v float64) uint8 {
	return uint8(math.Min(math.Max(v, 0), 1)*255 + 0.5)
}

// MagmaPalette is a polynomial fit of the matplotlib magma colormap, via
// https://www.shadertoy.com/view/WlfXRN (CC0).
type MagmaPalette struct{}

var magmaCoeffs = [7][3]float64{
	{18.65570506591883, -11.48977351997711, -5.601961508734096},
	{-50.76852536473588, 29.04658282127291, 4.23415299384598},
	{52.17613981234068, -27.94360607168351, 12.94416944238394},
	{-27.66873308576866, 14.26473078096533, -13.64921318813922},
	{8.353717279216625, -3.577719514958484, 0.3144679030132573},
	{0.2516605407371642, 0.6775232436837668, 2.494026599312351},
	{-0.002136485053939582, -0.000749655052795221, -0.005386127855323933},
}

func (MagmaPalette) Name() string { return "magma" }

func (MagmaPalette) At(t float64) color.RGBA {
	t = clamp01(t)

	rgb := magmaCoeffs[0]
	for j := 1; j < len(magmaCoeffs); j++ {
		for i := 0; i < 3; i++ {
			rgb[i] = rgb[i]*t + magmaCoeffs[j][i]
		}
	}

	return color.RGBA{
		R: toByte(rgb[0]),
		G: toByte(rgb[1]),
		B: toByte(rgb[2]),
		A: 255,
	}
}

// GrayPalette maps intensity straight to luminance
type GrayPalette struct{}

func (GrayPalette) Name() string { return "gray" }

func (GrayPalette) At(t float64) color.RGBA {
	v := toByte(clamp01(t))
	return color.RGBA{R: v, G: v, B: v, A: 255}
}

// GradientPalette interpolates between fixed control points in Lab space,
// which keeps the blend perceptually even. Control points must be ordered
// by increasing luminance for the palette to stay monotonic.
type GradientPalette struct {
	name   string
	stops  []colorful.Color
	length int
}

// NewGradientPalette builds a palette from hex control points
func NewGradientPalette(name string, hexStops []string) (*GradientPalette, error) {
	if len(hexStops) < 2 {
		return nil, fmt.Errorf("gradient palette needs at least two stops, got %d", len(hexStops))
	}

	stops := make([]colorful.Color, len(hexStops))
	for i, h := range hexStops {
		c, err := colorful.Hex(h)
		if err != nil {
			return nil, fmt.Errorf("invalid palette stop %q: %w", h, err)
		}
		stops[i] = c
	}

	return &GradientPalette{
		name:   name,
		stops:  stops,
		length: len(stops),
	}, nil
}

func (p *GradientPalette) Name() string { return p.name }

func (p *GradientPalette) At(t float64) color.RGBA {
	t = clamp01(t)

	pos := t * float64(p.length-1)
	i := int(pos)
	if i >= p.length-1 {
		i = p.length - 2
	}
	frac := pos - float64(i)

	c := p.stops[i].BlendLab(p.stops[i+1], frac).Clamped()
	return color.RGBA{
		R: toByte(c.R),
		G: toByte(c.G),
		B: toByte(c.B),
		A: 255,
	}
}

// heatPalette runs black -> purple -> red -> orange -> yellow -> white,
// the classic thermal ramp used by most spectrogram tools.
var heatPalette = mustGradient("heat", []string{
	"#000000",
	"#3b0f70",
	"#8c2981",
	"#de4968",
	"#fe9f6d",
	"#fcfdbf",
})

func mustGradient(name string, stops []string) *GradientPalette {
	p, err := NewGradientPalette(name, stops)
	if err != nil {
		panic(err)
	}
	return p
}
