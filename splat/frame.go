package splat

import (
	"unsafe"

	"github.com/plus3/splatplay/splat/ply"
)

// Frame is one decoded point-cloud snapshot in an ordered animation
// sequence. Frames are created once per decode and never mutated; eviction
// simply drops the reference.
type Frame struct {
	// Index is the frame's dense position within its sequence.
	Index int

	// Source is the path the frame was decoded from.
	Source string

	Points []ply.Point
	Colors ply.ColorKind
}

var pointSize = int64(unsafe.Sizeof(ply.Point{}))

// ByteSize approximates the frame's resident memory.
func (f *Frame) ByteSize() int64 {
	return int64(len(f.Points)) * pointSize
}
