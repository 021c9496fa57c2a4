package ply

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"iter"
	"math"
	"strings"
)

// DefaultBatchSize bounds how many points one decode batch carries, keeping
// peak memory during parsing of very large frames proportional to the batch
// rather than the file.
const DefaultBatchSize = 10000

// Required vertex properties, in Point field order: position, log scale,
// logit opacity, quaternion (real first).
var requiredProps = [...]string{
	"x", "y", "z",
	"scale_0", "scale_1", "scale_2",
	"opacity",
	"rot_0", "rot_1", "rot_2", "rot_3",
}

// Optional spherical-harmonic DC color triplet.
var colorProps = [...]string{"f_dc_0", "f_dc_1", "f_dc_2"}

// Decoder reads splat points from one PLY stream. A Decoder is single-use:
// Batches may be iterated at most once, and re-decoding requires reopening
// the source.
type Decoder struct {
	r      *bufio.Reader
	header *Header
	order  binary.ByteOrder

	vertex    *Element
	vertexPos int

	offsets  [len(requiredProps)]int
	types    [len(requiredProps)]ScalarType
	colorOff [len(colorProps)]int
	colorTyp [len(colorProps)]ScalarType
	hasColor bool
	rowSize  int

	consumed bool
}

// NewDecoder parses the header from r and resolves the vertex element's
// property layout. The vertex element is located by case-insensitive name;
// other elements are skipped during decoding without being interpreted.
func NewDecoder(r io.Reader) (*Decoder, error) {
	br := bufio.NewReaderSize(r, 1<<16)
	h, err := ParseHeader(br)
	if err != nil {
		return nil, err
	}

	d := &Decoder{r: br, header: h, vertexPos: -1}
	if h.BigEndian {
		d.order = binary.BigEndian
	} else {
		d.order = binary.LittleEndian
	}

	for i := range h.Elements {
		if strings.EqualFold(h.Elements[i].Name, "vertex") {
			d.vertex = &h.Elements[i]
			d.vertexPos = i
			break
		}
	}
	if d.vertex == nil {
		return nil, fmt.Errorf("%w: no vertex element", ErrFormat)
	}

	if err := d.resolveLayout(); err != nil {
		return nil, err
	}
	return d, nil
}

// resolveLayout computes the byte offset and type of every used property
// within a vertex row and validates the element against the contract.
func (d *Decoder) resolveLayout() error {
	offsets := make(map[string]int, len(d.vertex.Properties))
	types := make(map[string]Property, len(d.vertex.Properties))

	off := 0
	for _, p := range d.vertex.Properties {
		if p.List {
			// Variable-length rows defeat fixed offsets. A list at a used
			// slot is a type error; anywhere else the file is unsupported.
			if isUsedProperty(p.Name) {
				return &TypeMismatchError{Property: p.Name, Type: "list"}
			}
			return fmt.Errorf("%w: vertex element has variable-length rows (list property %q)", ErrFormat, p.Name)
		}
		offsets[p.Name] = off
		types[p.Name] = p
		off += p.Type.Size()
	}
	d.rowSize = off

	for i, name := range requiredProps {
		p, ok := types[name]
		if !ok {
			return &MissingPropertyError{Property: name}
		}
		d.offsets[i] = offsets[name]
		d.types[i] = p.Type
	}

	d.hasColor = true
	for i, name := range colorProps {
		p, ok := types[name]
		if !ok {
			d.hasColor = false
			break
		}
		d.colorOff[i] = offsets[name]
		d.colorTyp[i] = p.Type
	}
	return nil
}

func isUsedProperty(name string) bool {
	for _, n := range requiredProps {
		if n == name {
			return true
		}
	}
	for _, n := range colorProps {
		if n == name {
			return true
		}
	}
	return false
}

// VertexCount returns the number of points declared by the header.
func (d *Decoder) VertexCount() int { return d.vertex.Count }

// ColorKind reports which color representation decoded points carry.
func (d *Decoder) ColorKind() ColorKind {
	if d.hasColor {
		return ColorSH
	}
	return ColorRGB
}

// Batches returns a lazy iterator over point batches of at most batchSize
// points each (DefaultBatchSize when batchSize <= 0). The sequence is
// finite and non-restartable; iterating it a second time panics. On a read
// failure the iterator yields a nil batch with the error and stops; no
// partial batch is emitted.
func (d *Decoder) Batches(batchSize int) iter.Seq2[[]Point, error] {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return func(yield func([]Point, error) bool) {
		if d.consumed {
			panic("ply: Batches iterated twice on a single-use Decoder")
		}
		d.consumed = true

		if err := d.skipLeadingElements(); err != nil {
			yield(nil, err)
			return
		}

		row := make([]byte, d.rowSize)
		remaining := d.vertex.Count
		for remaining > 0 {
			n := min(batchSize, remaining)
			batch := make([]Point, n)
			for i := range batch {
				if _, err := io.ReadFull(d.r, row); err != nil {
					vertex := d.vertex.Count - remaining + i
					yield(nil, fmt.Errorf("%w: reading vertex %d: %v", ErrDecode, vertex, err))
					return
				}
				d.decodeRow(row, &batch[i])
			}
			remaining -= n
			if !yield(batch, nil) {
				return
			}
		}
	}
}

// skipLeadingElements discards the payloads of all elements declared before
// vertex. Fixed-size elements are skipped in one discard; list-bearing
// elements (faces and the like) are walked row by row.
func (d *Decoder) skipLeadingElements() error {
	for i := 0; i < d.vertexPos; i++ {
		elem := &d.header.Elements[i]
		if size, ok := elem.RowSize(); ok {
			if _, err := io.CopyN(io.Discard, d.r, int64(size)*int64(elem.Count)); err != nil {
				return fmt.Errorf("%w: skipping element %q: %v", ErrDecode, elem.Name, err)
			}
			continue
		}
		for row := 0; row < elem.Count; row++ {
			if err := d.skipListRow(elem); err != nil {
				return fmt.Errorf("%w: skipping element %q row %d: %v", ErrDecode, elem.Name, row, err)
			}
		}
	}
	return nil
}

func (d *Decoder) skipListRow(elem *Element) error {
	var scratch [8]byte
	for _, p := range elem.Properties {
		if !p.List {
			if _, err := io.CopyN(io.Discard, d.r, int64(p.Type.Size())); err != nil {
				return err
			}
			continue
		}
		buf := scratch[:p.CountType.Size()]
		if _, err := io.ReadFull(d.r, buf); err != nil {
			return err
		}
		count := int64(readScalar(buf, 0, p.CountType, d.order))
		if count < 0 {
			return fmt.Errorf("negative list count")
		}
		if _, err := io.CopyN(io.Discard, d.r, count*int64(p.Type.Size())); err != nil {
			return err
		}
	}
	return nil
}

func (d *Decoder) decodeRow(row []byte, p *Point) {
	p.Position[0] = readScalar(row, d.offsets[0], d.types[0], d.order)
	p.Position[1] = readScalar(row, d.offsets[1], d.types[1], d.order)
	p.Position[2] = readScalar(row, d.offsets[2], d.types[2], d.order)
	p.LogScale[0] = readScalar(row, d.offsets[3], d.types[3], d.order)
	p.LogScale[1] = readScalar(row, d.offsets[4], d.types[4], d.order)
	p.LogScale[2] = readScalar(row, d.offsets[5], d.types[5], d.order)
	p.LogitOpacity = readScalar(row, d.offsets[6], d.types[6], d.order)
	p.Rotation[0] = readScalar(row, d.offsets[7], d.types[7], d.order)
	p.Rotation[1] = readScalar(row, d.offsets[8], d.types[8], d.order)
	p.Rotation[2] = readScalar(row, d.offsets[9], d.types[9], d.order)
	p.Rotation[3] = readScalar(row, d.offsets[10], d.types[10], d.order)
	if d.hasColor {
		p.SH[0] = readScalar(row, d.colorOff[0], d.colorTyp[0], d.order)
		p.SH[1] = readScalar(row, d.colorOff[1], d.colorTyp[1], d.order)
		p.SH[2] = readScalar(row, d.colorOff[2], d.colorTyp[2], d.order)
	}
}

// readScalar reads one scalar at off and widens or narrows it to float32.
func readScalar(buf []byte, off int, t ScalarType, order binary.ByteOrder) float32 {
	switch t {
	case Int8:
		return float32(int8(buf[off]))
	case UInt8:
		return float32(buf[off])
	case Int16:
		return float32(int16(order.Uint16(buf[off:])))
	case UInt16:
		return float32(order.Uint16(buf[off:]))
	case Int32:
		return float32(int32(order.Uint32(buf[off:])))
	case UInt32:
		return float32(order.Uint32(buf[off:]))
	case Float32:
		return math.Float32frombits(order.Uint32(buf[off:]))
	case Float64:
		return float32(math.Float64frombits(order.Uint64(buf[off:])))
	}
	return 0
}

// DecodeAll collects every batch of a fresh decode into one slice. It is a
// convenience over NewDecoder + Batches for callers that want the whole
// frame resident.
func DecodeAll(r io.Reader, batchSize int) ([]Point, ColorKind, error) {
	d, err := NewDecoder(r)
	if err != nil {
		return nil, ColorRGB, err
	}
	points := make([]Point, 0, d.VertexCount())
	for batch, err := range d.Batches(batchSize) {
		if err != nil {
			return nil, ColorRGB, err
		}
		points = append(points, batch...)
	}
	return points, d.ColorKind(), nil
}
