package splat

import (
	"errors"
	"fmt"

	"github.com/plus3/splatplay/splat/ply"
)

// Error classes. ErrFormat and ErrDecode originate in the ply package and
// are re-exported here so the whole taxonomy is addressable from one place:
// errors.Is(err, splat.ErrFormat) works for any decode failure surfaced by
// a session.
var (
	// ErrInput marks a bad source: missing directory, no frames, an index
	// out of range.
	ErrInput = errors.New("splat: input error")

	// ErrResource marks a render-buffer failure during reset or upload.
	ErrResource = errors.New("splat: resource error")

	ErrFormat = ply.ErrFormat
	ErrDecode = ply.ErrDecode
)

// DirectoryNotFoundError reports a frame source that does not exist or is
// not a directory.
type DirectoryNotFoundError struct {
	Dir string
}

func (e *DirectoryNotFoundError) Error() string {
	return fmt.Sprintf("splat: %q does not exist or is not a directory", e.Dir)
}

func (e *DirectoryNotFoundError) Unwrap() error { return ErrInput }

// NoFramesFoundError reports a directory with no files carrying the frame
// extension.
type NoFramesFoundError struct {
	Dir string
	Ext string
}

func (e *NoFramesFoundError) Error() string {
	return fmt.Sprintf("splat: no %s frames found in %q", e.Ext, e.Dir)
}

func (e *NoFramesFoundError) Unwrap() error { return ErrInput }

// IndexOutOfRangeError reports a frame index outside [0, Count).
type IndexOutOfRangeError struct {
	Index int
	Count int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("splat: frame index %d out of range [0, %d)", e.Index, e.Count)
}

func (e *IndexOutOfRangeError) Unwrap() error { return ErrInput }
