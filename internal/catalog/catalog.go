// Package catalog maintains an introspected index of the module corpus. The
// core introspector reads every definition fresh; this layer adds the
// caching the core deliberately leaves out, keyed by path, size and mtime in
// a local SQLite database.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/TheBeachLab/mods-mcp/internal/introspect"
	"github.com/TheBeachLab/mods-mcp/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS modules (
	path    TEXT PRIMARY KEY,
	size    INTEGER NOT NULL,
	mtime   INTEGER NOT NULL,
	result  TEXT NOT NULL
);
`

// Entry is one catalogued module definition.
type Entry struct {
	Path   string            `json:"path"`
	Result introspect.Result `json:"result"`
	Cached bool              `json:"cached"`
}

// Catalog scans a module tree and introspects every definition, reusing
// cached results for files that have not changed.
type Catalog struct {
	files storage.Files
	db    *sql.DB
}

// Open attaches the catalog to its SQLite cache at dbPath. Pass ":memory:"
// for an ephemeral cache.
func Open(files storage.Files, dbPath string) (*Catalog, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("catalog: open cache: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: apply schema: %w", err)
	}
	return &Catalog{files: files, db: db}, nil
}

// Close releases the cache database.
func (c *Catalog) Close() error { return c.db.Close() }

// Scan walks root and returns an entry per module definition file, in tree
// order. Files whose size and mtime match the cache are served from it;
// everything else is introspected and the cache updated. A module that
// defeats both introspection strategies still yields an entry (with
// Method == failed); a corpus scan never aborts on one bad module.
func (c *Catalog) Scan(ctx context.Context, root string) ([]Entry, error) {
	tree, err := c.files.Tree(root)
	if err != nil {
		return nil, fmt.Errorf("catalog: list %s: %w", root, err)
	}

	var entries []Entry
	var walk func(nodes []storage.Entry) error
	walk = func(nodes []storage.Entry) error {
		for _, node := range nodes {
			if node.IsDir {
				if err := walk(node.Entries); err != nil {
					return err
				}
				continue
			}
			if !strings.HasSuffix(node.Name, ".js") {
				continue
			}
			entry, err := c.lookup(ctx, node)
			if err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		return nil
	}
	if err := walk(tree); err != nil {
		return nil, err
	}
	return entries, nil
}

// Introspect introspects a single module path, through the cache.
func (c *Catalog) Introspect(ctx context.Context, path string) (Entry, error) {
	tree, err := c.files.Tree(pathDir(path))
	if err == nil {
		for _, node := range tree {
			if node.Path == path && !node.IsDir {
				return c.lookup(ctx, node)
			}
		}
	}

	// No metadata available; introspect without touching the cache.
	source, err := c.files.ReadText(path)
	if err != nil {
		return Entry{}, fmt.Errorf("catalog: read module %s: %w", path, err)
	}
	return Entry{Path: path, Result: introspect.Introspect(source)}, nil
}

func (c *Catalog) lookup(ctx context.Context, node storage.Entry) (Entry, error) {
	var cached string
	err := c.db.QueryRowContext(ctx,
		`SELECT result FROM modules WHERE path = ? AND size = ? AND mtime = ?`,
		node.Path, node.Size, node.ModTime).Scan(&cached)
	switch {
	case err == nil:
		var result introspect.Result
		if jsonErr := json.Unmarshal([]byte(cached), &result); jsonErr == nil {
			return Entry{Path: node.Path, Result: result, Cached: true}, nil
		}
		// Unreadable cache row; fall through and re-introspect.
	case err != sql.ErrNoRows:
		return Entry{}, fmt.Errorf("catalog: query cache: %w", err)
	}

	source, err := c.files.ReadText(node.Path)
	if err != nil {
		return Entry{}, fmt.Errorf("catalog: read module %s: %w", node.Path, err)
	}
	result := introspect.Introspect(source)

	encoded, err := json.Marshal(result)
	if err != nil {
		return Entry{}, fmt.Errorf("catalog: encode result: %w", err)
	}
	if _, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO modules (path, size, mtime, result) VALUES (?, ?, ?, ?)`,
		node.Path, node.Size, node.ModTime, string(encoded)); err != nil {
		log.Printf("[Catalog] cache write for %s failed: %v", node.Path, err)
	}

	return Entry{Path: node.Path, Result: result}, nil
}

func pathDir(path string) string {
	if i := strings.LastIndexAny(path, "/\\"); i >= 0 {
		return path[:i]
	}
	return "."
}
