// Package decode parses FLAC streams into normalized sample buffers for
// spectral analysis. The whole file is decoded up front; the pipeline is a
// batch tool, not a streaming player.
package decode

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mewkiz/flac"

	"github.com/sonigraph/sonigraph/logging"
)

// flacMagic is the stream marker every FLAC container starts with.
var flacMagic = []byte("fLaC")

// maxBitDepth is the widest sample format the normalizer handles.
const maxBitDepth = 32

// maxPreallocSamples bounds the sample buffer capacity reserved from the
// stream header alone (32 MiB of float64).
const maxPreallocSamples = 1 << 22

// AudioStream holds a fully decoded audio file. Samples are interleaved
// (one value per channel per frame) and normalized to [-1, 1] regardless of
// the source bit depth, so downstream stages never see fixed-point values.
// The struct is treated as immutable once returned.
type AudioStream struct {
	SampleRate int       `json:"sample_rate"`
	Channels   int       `json:"channels"`
	BitDepth   int       `json:"bit_depth"`
	NumFrames  int       `json:"num_frames"`
	Samples    []float64 `json:"-"`
}

// Duration returns the play time of the stream
func (s *AudioStream) Duration() time.Duration {
	if s.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(s.NumFrames) / float64(s.SampleRate) * float64(time.Second))
}

// Frame returns the per-channel sample values of inter-channel frame i
func (s *AudioStream) Frame(i int) []float64 {
	return s.Samples[i*s.Channels : (i+1)*s.Channels]
}

// Decode reads and decodes the FLAC file at path
func Decode(path string) (*AudioStream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	stream, err := decodeReader(f, path)
	if err != nil {
		return nil, err
	}
	return stream, nil
}

// DecodeReader decodes a FLAC stream from r. It is the same batch decode as
// Decode, for callers that already hold an open stream (drag-and-drop
// payloads delivered as file descriptors, test fixtures).
func DecodeReader(r io.Reader) (*AudioStream, error) {
	return decodeReader(r, "(stream)")
}

func decodeReader(r io.Reader, path string) (*AudioStream, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "decoder",
		"path":      path,
	})

	br := bufio.NewReader(r)

	// Check the container marker before handing the stream to the FLAC
	// parser, so an arbitrary non-audio file maps to a single well-defined
	// error kind instead of whatever header parse error comes up first.
	magic, err := br.Peek(len(flacMagic))
	if err != nil {
		return nil, &Error{Kind: KindNotAContainer, Path: path, Err: fmt.Errorf("stream shorter than container marker: %w", err)}
	}
	if !bytes.Equal(magic, flacMagic) {
		return nil, &Error{Kind: KindNotAContainer, Path: path, Err: fmt.Errorf("missing fLaC marker")}
	}

	stream, err := flac.New(br)
	if err != nil {
		return nil, classify(err, path)
	}

	info := stream.Info
	if err := checkSubformat(info.NChannels, info.BitsPerSample, info.SampleRate); err != nil {
		return nil, &Error{Kind: KindUnsupportedSubformat, Path: path, Err: err}
	}

	logger.Debug("Decoding stream", logging.Fields{
		"sample_rate":   info.SampleRate,
		"channels":      info.NChannels,
		"bit_depth":     info.BitsPerSample,
		"total_samples": info.NSamples,
	})

	out := &AudioStream{
		SampleRate: int(info.SampleRate),
		Channels:   int(info.NChannels),
		BitDepth:   int(info.BitsPerSample),
	}
	// The declared sample count is untrusted header data: a crafted file can
	// claim 2^36-1 samples. It only sizes the pre-allocation when plausible;
	// anything larger grows by append and the truncation check below settles
	// whether the declaration was honest.
	if n := info.NSamples * uint64(info.NChannels); n > 0 && n <= maxPreallocSamples {
		out.Samples = make([]float64, 0, int(n))
	}

	// Normalization factor for the source bit depth. FLAC samples are
	// signed integers, so the largest positive value is 2^(bits-1)-1; using
	// 2^(bits-1) keeps the mapping symmetric and inside [-1, 1].
	scale := 1.0 / float64(int64(1)<<(info.BitsPerSample-1))

	for {
		fr, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, classify(err, path)
		}
		if len(fr.Subframes) != out.Channels {
			return nil, &Error{
				Kind: KindUnsupportedSubformat,
				Path: path,
				Err:  fmt.Errorf("frame has %d channels, stream declares %d", len(fr.Subframes), out.Channels),
			}
		}

		blockSize := len(fr.Subframes[0].Samples)
		for i := 0; i < blockSize; i++ {
			for _, sub := range fr.Subframes {
				out.Samples = append(out.Samples, float64(sub.Samples[i])*scale)
			}
		}
	}

	out.NumFrames = len(out.Samples) / out.Channels

	// A stream that ends cleanly but short of its declared length was cut
	// off between frames.
	if info.NSamples > 0 && uint64(out.NumFrames) < info.NSamples {
		return nil, &Error{
			Kind: KindTruncated,
			Path: path,
			Err:  fmt.Errorf("stream ended after %d of %d declared samples", out.NumFrames, info.NSamples),
		}
	}

	logger.Debug("Decode complete", logging.Fields{
		"frames":   out.NumFrames,
		"duration": out.Duration(),
	})

	return out, nil
}

// checkSubformat rejects channel/bit-depth/rate combinations the pipeline
// does not handle
func checkSubformat(channels, bitDepth uint8, sampleRate uint32) error {
	if channels == 0 {
		return fmt.Errorf("stream declares zero channels")
	}
	if sampleRate == 0 {
		return fmt.Errorf("stream declares zero sample rate")
	}
	if bitDepth == 0 || bitDepth > maxBitDepth {
		return fmt.Errorf("unsupported bit depth %d", bitDepth)
	}
	return nil
}

// classify maps parser errors onto the decode error taxonomy. The FLAC
// library reports CRC failures and short reads as plain wrapped errors, so
// the mapping has to look at both sentinel values and message text.
func classify(err error, path string) *Error {
	switch {
	case isEOF(err):
		return &Error{Kind: KindTruncated, Path: path, Err: err}
	case strings.Contains(strings.ToLower(err.Error()), "crc"):
		return &Error{Kind: KindChecksumMismatch, Path: path, Err: err}
	default:
		return &Error{Kind: KindNotAContainer, Path: path, Err: err}
	}
}

func isEOF(err error) bool {
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	// The FLAC library wraps some short reads without an Unwrap chain.
	return strings.Contains(err.Error(), "EOF")
}
