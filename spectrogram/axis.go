package spectrogram

import (
	"fmt"
	"math"
)

// FreqScale selects how the frequency axis is laid out on screen
type FreqScale string

const (
	// FreqLinear spaces bins evenly.
	FreqLinear FreqScale = "linear"

	// FreqLog spaces bins logarithmically, one octave per fixed distance.
	FreqLog FreqScale = "log"

	// FreqHybrid blends between logarithmic at the low end and linear at
	// the high end. Low tones get octave spacing where pitch lives, while
	// the top of the spectrum keeps enough room to spot bandwidth cutoffs
	// from lossy sources.
	FreqHybrid FreqScale = "hybrid"
)

// Valid reports whether the scale is one of the supported values
func (s FreqScale) Valid() bool {
	switch s {
	case FreqLinear, FreqLog, FreqHybrid:
		return true
	}
	return false
}

// Map converts an axis position y in [0, 1] (0 = bottom of the display) to
// a value in [minV, maxV]. minV must be positive for the logarithmic
// scales.
func (s FreqScale) Map(y, minV, maxV float64) (float64, error) {
	if minV <= 0 && s != FreqLinear {
		return 0, fmt.Errorf("%s scale requires a positive axis minimum, got %g", s, minV)
	}

	lin := minV + y*(maxV-minV)

	switch s {
	case FreqLinear:
		return lin, nil
	case FreqLog:
		return logMap(y, minV, maxV), nil
	case FreqHybrid:
		return lin*y + logMap(y, minV, maxV)*(1-y), nil
	default:
		return 0, fmt.Errorf("unknown frequency scale: %q", s)
	}
}

func logMap(y, minV, maxV float64) float64 {
	logMin := math.Log2(minV)
	logMax := math.Log2(maxV)
	return math.Exp2(logMin + y*(logMax-logMin))
}
