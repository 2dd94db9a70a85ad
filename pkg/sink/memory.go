package sink

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// MemorySink keeps objects in memory. It is safe for concurrent use.
type MemorySink struct {
	mu      sync.Mutex
	objects map[string][]byte
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{objects: make(map[string][]byte)}
}

// Location returns "mem://" + name.
func (s *MemorySink) Location(name string) string {
	return "mem://" + name
}

// Put stores a copy of data.
func (s *MemorySink) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[name] = slices.Clone(data)
	return nil
}

// Get returns the object stored under name.
func (s *MemorySink) Get(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[name]
	return data, ok
}

// Names returns the stored object names in sorted order.
func (s *MemorySink) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.objects))
	for name := range s.objects {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Clean deletes the objects whose names start with prefix.
func (s *MemorySink) Clean(ctx context.Context, prefix string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for name := range s.objects {
		if strings.HasPrefix(name, prefix) {
			delete(s.objects, name)
			removed++
		}
	}
	return removed, nil
}
