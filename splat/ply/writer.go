package ply

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Encode writes points as a minimal binary little-endian PLY with a single
// vertex element carrying the decoder's property contract. ColorSH emits
// the f_dc triplet; ColorRGB emits no color properties, which decodes back
// to zeroed bytes.
func Encode(w io.Writer, points []Point, kind ColorKind) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, "ply")
	fmt.Fprintln(bw, "format binary_little_endian 1.0")
	fmt.Fprintf(bw, "element vertex %d\n", len(points))
	for _, name := range requiredProps {
		fmt.Fprintf(bw, "property float %s\n", name)
	}
	if kind == ColorSH {
		for _, name := range colorProps {
			fmt.Fprintf(bw, "property float %s\n", name)
		}
	}
	fmt.Fprintln(bw, "end_header")

	row := make([]byte, 0, (len(requiredProps)+len(colorProps))*4)
	for i := range points {
		p := &points[i]
		row = row[:0]
		row = appendFloats(row, p.Position[:])
		row = appendFloats(row, p.LogScale[:])
		row = appendFloat(row, p.LogitOpacity)
		row = appendFloats(row, p.Rotation[:])
		if kind == ColorSH {
			row = appendFloats(row, p.SH[:])
		}
		if _, err := bw.Write(row); err != nil {
			return fmt.Errorf("%w: writing vertex %d: %v", ErrDecode, i, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w: flushing payload: %v", ErrDecode, err)
	}
	return nil
}

func appendFloat(b []byte, v float32) []byte {
	return binary.LittleEndian.AppendUint32(b, math.Float32bits(v))
}

func appendFloats(b []byte, vs []float32) []byte {
	for _, v := range vs {
		b = appendFloat(b, v)
	}
	return b
}
