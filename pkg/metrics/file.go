package metrics

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// FileStore appends records as JSON lines to a file.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore stores records at path. The file is created on first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Record(_ context.Context, m LoadMetrics) error {
	line, err := json.Marshal(stamp(m))
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Recent skips lines that do not parse.
func (s *FileStore) Recent(_ context.Context, scene string, limit int) ([]LoadMetrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []LoadMetrics
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var m LoadMetrics
		if json.Unmarshal(sc.Bytes(), &m) != nil {
			continue
		}
		if scene == "" || m.Scene == scene {
			out = append(out, m)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	slices.Reverse(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *FileStore) Close(context.Context) error { return nil }

var _ Store = (*FileStore)(nil)
