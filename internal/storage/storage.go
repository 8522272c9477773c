// Package storage abstracts the filesystem surface the core needs: reading
// module definitions, writing saved programs, and listing directory trees.
// A local implementation backs production use; an in-memory implementation
// backs tests.
package storage

// Entry describes one node in a directory listing. Size and ModTime (unix
// seconds) are zero for directories and for backends without real metadata.
type Entry struct {
	Name    string  `json:"name"`
	Path    string  `json:"path"`
	IsDir   bool    `json:"isDir"`
	Size    int64   `json:"size,omitempty"`
	ModTime int64   `json:"modTime,omitempty"`
	Entries []Entry `json:"entries,omitempty"`
}

// Files is the storage surface consumed by the codec and the catalog.
type Files interface {
	ReadText(path string) (string, error)
	WriteText(path string, content string) error
	Tree(root string) ([]Entry, error)
}
