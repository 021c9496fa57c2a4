package ply

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

// ScalarType is one of the PLY scalar property types.
type ScalarType uint8

const (
	typeInvalid ScalarType = iota
	Int8
	UInt8
	Int16
	UInt16
	Int32
	UInt32
	Float32
	Float64
)

// Both the short names (char, uchar, ...) and the sized aliases (int8,
// uint8, ...) appear in the wild; accept all of them.
var scalarNames = map[string]ScalarType{
	"char":    Int8,
	"int8":    Int8,
	"uchar":   UInt8,
	"uint8":   UInt8,
	"short":   Int16,
	"int16":   Int16,
	"ushort":  UInt16,
	"uint16":  UInt16,
	"int":     Int32,
	"int32":   Int32,
	"uint":    UInt32,
	"uint32":  UInt32,
	"float":   Float32,
	"float32": Float32,
	"double":  Float64,
	"float64": Float64,
}

// Size returns the byte width of the scalar type.
func (t ScalarType) Size() int {
	switch t {
	case Int8, UInt8:
		return 1
	case Int16, UInt16:
		return 2
	case Int32, UInt32, Float32:
		return 4
	case Float64:
		return 8
	}
	return 0
}

func (t ScalarType) String() string {
	switch t {
	case Int8:
		return "char"
	case UInt8:
		return "uchar"
	case Int16:
		return "short"
	case UInt16:
		return "ushort"
	case Int32:
		return "int"
	case UInt32:
		return "uint"
	case Float32:
		return "float"
	case Float64:
		return "double"
	}
	return "invalid"
}

// Property is a single property declaration within an element. List
// properties carry a per-row count of CountType followed by that many
// values of Type.
type Property struct {
	Name      string
	Type      ScalarType
	List      bool
	CountType ScalarType
}

// Element is one element declaration: a name, an instance count, and its
// properties in declaration order.
type Element struct {
	Name       string
	Count      int
	Properties []Property
}

// RowSize returns the fixed byte size of one element row. ok is false when
// the element carries a list property, making rows variable-length.
func (e *Element) RowSize() (size int, ok bool) {
	for _, p := range e.Properties {
		if p.List {
			return 0, false
		}
		size += p.Type.Size()
	}
	return size, true
}

// Header is the parsed text header of a PLY stream.
type Header struct {
	BigEndian bool
	Elements  []Element
}

// ParseHeader reads the text header from r, leaving the reader positioned
// at the first byte of payload data. Only binary payloads are supported;
// ascii-format files fail with a format error.
func ParseHeader(r *bufio.Reader) (*Header, error) {
	magic, err := readHeaderLine(r)
	if err != nil {
		return nil, err
	}
	if magic != "ply" {
		return nil, fmt.Errorf("%w: missing ply magic", ErrFormat)
	}

	h := &Header{}
	sawFormat := false
	for {
		line, err := readHeaderLine(r)
		if err != nil {
			return nil, err
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "end_header":
			if !sawFormat {
				return nil, fmt.Errorf("%w: missing format declaration", ErrFormat)
			}
			if len(h.Elements) == 0 {
				return nil, fmt.Errorf("%w: header declares no elements", ErrFormat)
			}
			return h, nil

		case "comment", "obj_info":
			continue

		case "format":
			if len(fields) < 2 {
				return nil, fmt.Errorf("%w: malformed format line %q", ErrFormat, line)
			}
			switch fields[1] {
			case "binary_little_endian":
				h.BigEndian = false
			case "binary_big_endian":
				h.BigEndian = true
			case "ascii":
				return nil, fmt.Errorf("%w: ascii payloads are not supported", ErrFormat)
			default:
				return nil, fmt.Errorf("%w: unknown format %q", ErrFormat, fields[1])
			}
			sawFormat = true

		case "element":
			if len(fields) != 3 {
				return nil, fmt.Errorf("%w: malformed element line %q", ErrFormat, line)
			}
			count, err := strconv.Atoi(fields[2])
			if err != nil || count < 0 {
				return nil, fmt.Errorf("%w: bad element count in %q", ErrFormat, line)
			}
			h.Elements = append(h.Elements, Element{Name: fields[1], Count: count})

		case "property":
			if len(h.Elements) == 0 {
				return nil, fmt.Errorf("%w: property before any element", ErrFormat)
			}
			prop, err := parseProperty(fields)
			if err != nil {
				return nil, err
			}
			elem := &h.Elements[len(h.Elements)-1]
			elem.Properties = append(elem.Properties, prop)

		default:
			// Unknown keywords are tolerated, matching permissive readers.
			continue
		}
	}
}

func parseProperty(fields []string) (Property, error) {
	if len(fields) == 5 && fields[1] == "list" {
		countType, ok1 := scalarNames[fields[2]]
		elemType, ok2 := scalarNames[fields[3]]
		if !ok1 || !ok2 {
			return Property{}, fmt.Errorf("%w: unknown list property types in %q", ErrFormat, strings.Join(fields, " "))
		}
		return Property{Name: fields[4], Type: elemType, List: true, CountType: countType}, nil
	}
	if len(fields) == 3 {
		typ, ok := scalarNames[fields[1]]
		if !ok {
			return Property{}, fmt.Errorf("%w: unknown property type %q", ErrFormat, fields[1])
		}
		return Property{Name: fields[2], Type: typ}, nil
	}
	return Property{}, fmt.Errorf("%w: malformed property line %q", ErrFormat, strings.Join(fields, " "))
}

func readHeaderLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("%w: unexpected end of header", ErrFormat)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
