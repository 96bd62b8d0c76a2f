package spectral

import (
	"fmt"

	"github.com/sonigraph/sonigraph/decode"
)

// Frame is one analysis window worth of mono samples. Samples always has
// exactly the configured window length; the final frame of a stream is
// zero-padded so the last moments of audio are never dropped.
type Frame struct {
	// Samples holds the raw (pre-window) sample values.
	Samples []float64

	// StartOffset is the sample offset of the first value within the
	// source stream, used to place the frame on the time axis.
	StartOffset int
}

// StartTime returns the frame's position on the time axis in seconds
func (f *Frame) StartTime(sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return float64(f.StartOffset) / float64(sampleRate)
}

// Framer slices a decoded stream into overlapping fixed-length frames.
// Multi-channel input is averaged down to mono first, since the spectrogram
// displays a single frequency axis. A Framer is a forward-only, single-pass
// source: frames come back in stream order and the sequence cannot be
// restarted.
type Framer struct {
	mono       []float64
	windowSize int
	hopSize    int
	pos        int
}

// NewFramer creates a framer over stream. windowSize must be positive and
// hopSize must be in (0, windowSize].
func NewFramer(stream *decode.AudioStream, windowSize, hopSize int) (*Framer, error) {
	if stream == nil {
		return nil, fmt.Errorf("nil audio stream")
	}
	if windowSize <= 0 {
		return nil, fmt.Errorf("window size must be positive, got %d", windowSize)
	}
	if hopSize <= 0 || hopSize > windowSize {
		return nil, fmt.Errorf("hop size must be in (0, window size], got %d", hopSize)
	}

	return &Framer{
		mono:       downmix(stream),
		windowSize: windowSize,
		hopSize:    hopSize,
	}, nil
}

// downmix averages the channels of each inter-channel frame into a single
// mono sample
func downmix(stream *decode.AudioStream) []float64 {
	if stream.Channels == 1 {
		return stream.Samples
	}

	mono := make([]float64, stream.NumFrames)
	inv := 1.0 / float64(stream.Channels)
	for i := range mono {
		sum := 0.0
		for _, s := range stream.Frame(i) {
			sum += s
		}
		mono[i] = sum * inv
	}
	return mono
}

// NumFrames returns the total number of frames the framer will produce:
// ceil(totalSamples / hopSize). Every sample of the stream falls inside at
// least one frame.
func (fr *Framer) NumFrames() int {
	return (len(fr.mono) + fr.hopSize - 1) / fr.hopSize
}

// WindowSize returns the configured frame length
func (fr *Framer) WindowSize() int {
	return fr.windowSize
}

// HopSize returns the sample step between consecutive frames
func (fr *Framer) HopSize() int {
	return fr.hopSize
}

// Next returns the next frame, or false once the stream is exhausted.
// Full interior frames share the underlying sample buffer; only the
// zero-padded tail frame is copied.
func (fr *Framer) Next() (*Frame, bool) {
	if fr.pos >= len(fr.mono) {
		return nil, false
	}

	start := fr.pos
	fr.pos += fr.hopSize

	if start+fr.windowSize <= len(fr.mono) {
		return &Frame{
			Samples:     fr.mono[start : start+fr.windowSize],
			StartOffset: start,
		}, true
	}

	padded := make([]float64, fr.windowSize)
	copy(padded, fr.mono[start:])
	return &Frame{
		Samples:     padded,
		StartOffset: start,
	}, true
}
