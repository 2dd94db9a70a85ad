package meshio

import (
	"errors"
	"fmt"
	"io"

	"github.com/chazu/meshsplit/pkg/mesh"
)

// ErrUnknownFormat is returned by ParseFormat for unsupported names.
var ErrUnknownFormat = errors.New("meshio: unknown format")

// Format is an output mesh file format.
type Format int

const (
	FormatOBJ Format = iota
	FormatSTL
)

func (f Format) String() string {
	switch f {
	case FormatOBJ:
		return "obj"
	case FormatSTL:
		return "stl"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string {
	return "." + f.String()
}

// Write encodes m to w in format f.
func (f Format) Write(w io.Writer, m *mesh.Mesh) error {
	switch f {
	case FormatOBJ:
		return WriteOBJ(w, m)
	case FormatSTL:
		return WriteSTL(w, m)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFormat, f)
	}
}

// ParseFormat maps "obj" or "stl" to a Format. Empty means OBJ.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "obj":
		return FormatOBJ, nil
	case "stl":
		return FormatSTL, nil
	}
	return FormatOBJ, fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}
