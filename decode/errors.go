package decode

import (
	"errors"
	"fmt"
)

// ErrorKind classifies decode failures. All kinds are recoverable from the
// shell's point of view: the user can open a different file.
type ErrorKind int

const (
	// KindNotAContainer means the stream does not start with a FLAC marker.
	KindNotAContainer ErrorKind = iota

	// KindUnsupportedSubformat means the channel count, sample rate or bit
	// depth combination is outside what the pipeline handles.
	KindUnsupportedSubformat

	// KindTruncated means the stream ended in the middle of an audio frame,
	// or before the declared number of samples was reached.
	KindTruncated

	// KindChecksumMismatch means an audio frame failed its CRC integrity
	// check.
	KindChecksumMismatch
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotAContainer:
		return "not_a_container"
	case KindUnsupportedSubformat:
		return "unsupported_subformat"
	case KindTruncated:
		return "truncated"
	case KindChecksumMismatch:
		return "checksum_mismatch"
	default:
		return "unknown"
	}
}

// Error is the decode-time error type surfaced to the shell
type Error struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode %s: %s: %v", e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("decode %s: %s", e.Path, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the decode error kind and true when err (or anything it
// wraps) is a decode error.
func KindOf(err error) (ErrorKind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return 0, false
}
