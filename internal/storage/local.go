package storage

import (
	"os"
	"path/filepath"
	"sort"
)

// Local reads and writes files on the local filesystem.
type Local struct{}

// NewLocal returns a filesystem-backed Files implementation.
func NewLocal() *Local { return &Local{} }

func (l *Local) ReadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (l *Local) WriteText(path string, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

func (l *Local) Tree(root string) ([]Entry, error) {
	dirEntries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	sort.Slice(dirEntries, func(i, j int) bool {
		return dirEntries[i].Name() < dirEntries[j].Name()
	})

	entries := []Entry{}
	for _, de := range dirEntries {
		path := filepath.Join(root, de.Name())
		entry := Entry{Name: de.Name(), Path: path, IsDir: de.IsDir()}
		if info, err := de.Info(); err == nil && !de.IsDir() {
			entry.Size = info.Size()
			entry.ModTime = info.ModTime().Unix()
		}
		if de.IsDir() {
			children, err := l.Tree(path)
			if err != nil {
				return nil, err
			}
			entry.Entries = children
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

var _ Files = (*Local)(nil)
