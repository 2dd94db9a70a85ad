// Package meshio reads and writes mesh files: Wavefront OBJ in both
// directions and binary STL for output.
package meshio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chazu/meshsplit/pkg/mesh"
)

// maxLineSize bounds a single OBJ line.
const maxLineSize = 1 << 20

// ParseError reports a malformed OBJ line.
type ParseError struct {
	Path string // empty when reading from a stream
	Line int    // 1-based
	Msg  string
	Err  error
}

func (e *ParseError) Error() string {
	loc := fmt.Sprintf("line %d", e.Line)
	if e.Path != "" {
		loc = e.Path + ":" + strconv.Itoa(e.Line)
	}
	if e.Err != nil {
		return fmt.Sprintf("meshio: %s: %s: %v", loc, e.Msg, e.Err)
	}
	return fmt.Sprintf("meshio: %s: %s", loc, e.Msg)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ReadOBJ parses vertex ("v") and face ("f") records from r. Face
// references are 1-based in the file and 0-based in the result; anything
// after a '/' in a reference (texture and normal indices) is dropped.
// Negative references count back from the last vertex read. All other
// record types are ignored. The mesh is not validated.
func ReadOBJ(r io.Reader) (*mesh.Mesh, error) {
	m := &mesh.Mesh{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "v":
			v, err := parseVertex(fields[1:])
			if err != nil {
				err.Line = line
				return nil, err
			}
			m.Vertices = append(m.Vertices, v)
		case "f":
			f, err := parseFace(fields[1:], len(m.Vertices))
			if err != nil {
				err.Line = line
				return nil, err
			}
			m.Faces = append(m.Faces, f)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, &ParseError{Line: line + 1, Msg: "read failed", Err: err}
	}
	return m, nil
}

func parseVertex(tokens []string) (mesh.Vertex, *ParseError) {
	if len(tokens) == 0 {
		return nil, &ParseError{Msg: "vertex has no coordinates"}
	}
	v := make(mesh.Vertex, len(tokens))
	for i, tok := range tokens {
		x, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, &ParseError{Msg: fmt.Sprintf("bad coordinate %q", tok), Err: err}
		}
		v[i] = x
	}
	return v, nil
}

func parseFace(tokens []string, vertexCount int) (mesh.Face, *ParseError) {
	if len(tokens) == 0 {
		return nil, &ParseError{Msg: "face has no vertices"}
	}
	f := make(mesh.Face, len(tokens))
	for i, tok := range tokens {
		ref, _, _ := strings.Cut(tok, "/")
		n, err := strconv.Atoi(ref)
		if err != nil {
			return nil, &ParseError{Msg: fmt.Sprintf("bad vertex reference %q", tok), Err: err}
		}
		switch {
		case n > 0:
			f[i] = n - 1
		case n < 0:
			f[i] = vertexCount + n
		default:
			return nil, &ParseError{Msg: "vertex reference 0 (references are 1-based)"}
		}
	}
	return f, nil
}

// LoadOBJ reads and validates the OBJ file at path.
func LoadOBJ(path string) (*mesh.Mesh, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("meshio: %w", err)
	}
	defer file.Close()

	m, err := ReadOBJ(file)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Path = path
		}
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("meshio: %s: %w", path, err)
	}
	return m, nil
}

// WriteOBJ writes every vertex of m followed by every face, with 1-based
// references. Coordinates use the shortest form that parses back exactly.
func WriteOBJ(w io.Writer, m *mesh.Mesh) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 128)

	for _, v := range m.Vertices {
		buf = append(buf[:0], 'v')
		for _, x := range v {
			buf = append(buf, ' ')
			buf = strconv.AppendFloat(buf, x, 'g', -1, 64)
		}
		buf = append(buf, '\n')
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	for _, f := range m.Faces {
		buf = append(buf[:0], 'f')
		for _, idx := range f {
			buf = append(buf, ' ')
			buf = strconv.AppendInt(buf, int64(idx+1), 10)
		}
		buf = append(buf, '\n')
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}
