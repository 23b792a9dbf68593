package tmod

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// DirSink creates files in a directory.
type DirSink struct {
	Dir string
}

// Create creates (or truncates) name inside the directory.
func (s DirSink) Create(name string) (io.WriteCloser, error) {
	f, err := os.Create(filepath.Join(s.Dir, name))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return f, nil
}

// MemorySink keeps created files in memory. Used for dry runs and tests.
type MemorySink struct {
	mu    sync.Mutex
	files map[string]*bytes.Buffer
	order []string
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{files: make(map[string]*bytes.Buffer)}
}

type memFile struct {
	*bytes.Buffer
}

func (memFile) Close() error { return nil }

// Create starts a new file, replacing any earlier one with the same name.
func (s *MemorySink) Create(name string) (io.WriteCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := new(bytes.Buffer)
	if _, ok := s.files[name]; !ok {
		s.order = append(s.order, name)
	}
	s.files[name] = buf
	return memFile{buf}, nil
}

// File returns the content of a created file.
func (s *MemorySink) File(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf, ok := s.files[name]
	if !ok {
		return "", false
	}
	return buf.String(), true
}

// Names returns file names in creation order.
func (s *MemorySink) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// Sizes returns file sizes keyed by name.
func (s *MemorySink) Sizes() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	sizes := make(map[string]int, len(s.files))
	for name, buf := range s.files {
		sizes[name] = buf.Len()
	}
	return sizes
}

// SortedNames returns file names in lexical order.
func (s *MemorySink) SortedNames() []string {
	names := s.Names()
	sort.Strings(names)
	return names
}
