package catalog

import (
	"context"
	"testing"

	"github.com/TheBeachLab/mods-mcp/internal/introspect"
	"github.com/TheBeachLab/mods-mcp/internal/storage"
)

func corpus(t *testing.T) storage.Files {
	t.Helper()
	files := storage.NewMem()
	modules := map[string]string{
		"mods/modules/slider.js":     `({name: 'slider', inputs: {}, outputs: {value: {type: 'float'}}})`,
		"mods/modules/gain.js":       `({name: 'gain', inputs: {value: {type: 'float'}}, outputs: {value: {type: 'float'}}})`,
		"mods/modules/sub/broken.js": `totally not a module`,
		"mods/modules/readme.txt":    `not a module file at all`,
	}
	for path, source := range modules {
		if err := files.WriteText(path, source); err != nil {
			t.Fatal(err)
		}
	}
	return files
}

func TestScan(t *testing.T) {
	t.Parallel()
	c, err := Open(corpus(t), ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	entries, err := c.Scan(context.Background(), "mods/modules")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3 (.txt excluded)", len(entries))
	}

	byPath := map[string]Entry{}
	for _, e := range entries {
		byPath[e.Path] = e
	}
	if byPath["mods/modules/slider.js"].Result.Name != "slider" {
		t.Errorf("slider result = %+v", byPath["mods/modules/slider.js"].Result)
	}
	if byPath["mods/modules/sub/broken.js"].Result.Method != introspect.MethodFailed {
		t.Errorf("broken module should scan as failed, got %+v", byPath["mods/modules/sub/broken.js"].Result)
	}
}

func TestScanCachesResults(t *testing.T) {
	t.Parallel()
	files := corpus(t)
	c, err := Open(files, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	first, err := c.Scan(context.Background(), "mods/modules")
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range first {
		if e.Cached {
			t.Errorf("first scan reported %s as cached", e.Path)
		}
	}

	second, err := c.Scan(context.Background(), "mods/modules")
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range second {
		if !e.Cached {
			t.Errorf("second scan re-introspected %s", e.Path)
		}
		if e.Result.Name != nameOf(first, e.Path) {
			t.Errorf("cached result for %s differs", e.Path)
		}
	}
}

func TestScanInvalidatesOnChange(t *testing.T) {
	t.Parallel()
	files := corpus(t)
	c, err := Open(files, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if _, err := c.Scan(context.Background(), "mods/modules"); err != nil {
		t.Fatal(err)
	}

	// Change the file content (and with it the size the cache keys on).
	if err := files.WriteText("mods/modules/slider.js",
		`({name: 'renamed slider!', inputs: {}, outputs: {value: {type: 'float'}}})`); err != nil {
		t.Fatal(err)
	}

	entries, err := c.Scan(context.Background(), "mods/modules")
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Path != "mods/modules/slider.js" {
			continue
		}
		if e.Cached {
			t.Error("changed file served from cache")
		}
		if e.Result.Name != "renamed slider!" {
			t.Errorf("stale result: %+v", e.Result)
		}
	}
}

func nameOf(entries []Entry, path string) string {
	for _, e := range entries {
		if e.Path == path {
			return e.Result.Name
		}
	}
	return ""
}
