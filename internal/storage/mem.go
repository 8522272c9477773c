package storage

import (
	"os"
	"path"
	"sort"
	"strings"
	"sync"
)

// Mem is an in-memory Files implementation for tests.
type Mem struct {
	mu    sync.RWMutex
	files map[string]string
}

// NewMem returns an empty in-memory store. Paths use forward slashes.
func NewMem() *Mem { return &Mem{files: make(map[string]string)} }

func (m *Mem) ReadText(p string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	content, ok := m.files[path.Clean(p)]
	if !ok {
		return "", &os.PathError{Op: "open", Path: p, Err: os.ErrNotExist}
	}
	return content, nil
}

func (m *Mem) WriteText(p string, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path.Clean(p)] = content
	return nil
}

func (m *Mem) Tree(root string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tree(root)
}

// tree assumes the read lock is held.
func (m *Mem) tree(root string) ([]Entry, error) {
	root = path.Clean(root)
	prefix := root + "/"

	names := map[string]bool{} // immediate children: name -> isDir
	for p := range m.files {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		rest := strings.TrimPrefix(p, prefix)
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			names[rest[:i]] = true
		} else {
			names[rest] = false
		}
	}
	if len(names) == 0 {
		if _, ok := m.files[root]; !ok {
			return nil, &os.PathError{Op: "open", Path: root, Err: os.ErrNotExist}
		}
		return nil, nil
	}

	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	entries := []Entry{}
	for _, name := range sorted {
		full := path.Join(root, name)
		entry := Entry{Name: name, Path: full, IsDir: names[name]}
		if !entry.IsDir {
			entry.Size = int64(len(m.files[full]))
		}
		if entry.IsDir {
			children, err := m.tree(full)
			if err != nil {
				return nil, err
			}
			entry.Entries = children
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

var _ Files = (*Mem)(nil)
