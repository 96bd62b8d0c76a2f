package spectral

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/sonigraph/sonigraph/logging"
)

// ComputeSTFT drains the framer and transforms every frame, returning the
// spectra in frame order. Frames are independent, so the transform stage is
// fanned out across parallelism goroutines (GOMAXPROCS when parallelism
// <= 0). Parallelism is a speed knob only: the result is identical to
// transforming sequentially.
func ComputeSTFT(ctx context.Context, framer *Framer, transformer *Transformer, parallelism int) ([]*SpectralFrame, error) {
	if framer == nil || transformer == nil {
		return nil, fmt.Errorf("nil framer or transformer")
	}
	if framer.WindowSize() != transformer.WindowSize() {
		return nil, fmt.Errorf("framer window size (%d) doesn't match transform length (%d)", framer.WindowSize(), transformer.WindowSize())
	}
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}

	logger := logging.WithFields(logging.Fields{
		"component":   "stft",
		"window_size": framer.WindowSize(),
		"hop_size":    framer.HopSize(),
		"parallelism": parallelism,
	})

	// The framer is a single-pass source, so drain it on this goroutine
	// and index the frames before fanning out.
	frames := make([]*Frame, 0, framer.NumFrames())
	for {
		frame, ok := framer.Next()
		if !ok {
			break
		}
		frames = append(frames, frame)
	}

	logger.Debug("Computing STFT", logging.Fields{
		"num_frames": len(frames),
	})

	spectra := make([]*SpectralFrame, len(frames))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)

	for i, frame := range frames {
		i, frame := i, frame
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			spectrum, err := transformer.Transform(frame)
			if err != nil {
				return fmt.Errorf("transform frame %d: %w", i, err)
			}
			spectra[i] = spectrum
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return spectra, nil
}
