package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalSink writes files into a directory on the local file system.
type LocalSink struct {
	root string
}

// NewLocalSink creates root (and parents) if needed.
func NewLocalSink(root string) (*LocalSink, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("sink: create output directory: %w", err)
	}
	return &LocalSink{root: root}, nil
}

// Root returns the output directory.
func (s *LocalSink) Root() string {
	return s.root
}

// Location returns the file path for name.
func (s *LocalSink) Location(name string) string {
	return filepath.Join(s.root, name)
}

// Put writes data to a temporary file in the output directory and renames
// it into place.
func (s *LocalSink) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.root, "."+name+".tmp-*")
	if err != nil {
		return fmt.Errorf("sink: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("sink: write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("sink: write %s: %w", name, err)
	}
	if err := os.Rename(tmpName, s.Location(name)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("sink: %w", err)
	}
	return nil
}

// Clean removes the regular files in the output directory whose names
// start with prefix. Subdirectories are left alone.
func (s *LocalSink) Clean(ctx context.Context, prefix string) (int, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return 0, fmt.Errorf("sink: %w", err)
	}
	removed := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if !e.Type().IsRegular() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		if err := os.Remove(s.Location(e.Name())); err != nil {
			return removed, fmt.Errorf("sink: clean: %w", err)
		}
		removed++
	}
	return removed, nil
}
