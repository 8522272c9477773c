package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLocalTree(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	seed := map[string]string{
		"modules/ui/slider.js": "slider",
		"modules/readme.txt":   "docs",
		"top.json":             "{}",
	}
	for rel, content := range seed {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	local := NewLocal()
	tree, err := local.Tree(root)
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	// Sorted: modules/ before top.json.
	if len(tree) != 2 {
		t.Fatalf("got %d root entries, want 2", len(tree))
	}
	if !tree[0].IsDir || tree[0].Name != "modules" {
		t.Fatalf("first entry = %+v, want modules dir", tree[0])
	}
	if tree[1].Name != "top.json" || tree[1].IsDir {
		t.Fatalf("second entry = %+v, want top.json file", tree[1])
	}
	if tree[1].Size != 2 {
		t.Errorf("top.json size = %d, want 2", tree[1].Size)
	}

	var leaf *Entry
	for i := range tree[0].Entries {
		if tree[0].Entries[i].Name == "ui" {
			for j := range tree[0].Entries[i].Entries {
				if tree[0].Entries[i].Entries[j].Name == "slider.js" {
					leaf = &tree[0].Entries[i].Entries[j]
				}
			}
		}
	}
	if leaf == nil {
		t.Fatal("slider.js not found under modules/ui")
	}
	if leaf.Path != filepath.Join(root, "modules", "ui", "slider.js") {
		t.Errorf("leaf path = %q", leaf.Path)
	}
}

func TestLocalReadWrite(t *testing.T) {
	t.Parallel()

	local := NewLocal()
	path := filepath.Join(t.TempDir(), "nested", "out.json")

	if err := local.WriteText(path, "content"); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	got, err := local.ReadText(path)
	if err != nil {
		t.Fatalf("ReadText: %v", err)
	}
	if got != "content" {
		t.Fatalf("ReadText = %q", got)
	}

	if _, err := local.ReadText(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestMemTree(t *testing.T) {
	t.Parallel()

	mem := NewMem()
	for _, path := range []string{"mods/modules/a.js", "mods/modules/sub/b.js", "mods/top.js"} {
		if err := mem.WriteText(path, "x"); err != nil {
			t.Fatal(err)
		}
	}

	tree, err := mem.Tree("mods/modules")
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	if len(tree) != 2 {
		t.Fatalf("got %d entries, want 2: %+v", len(tree), tree)
	}
	if tree[0].Name != "a.js" || tree[0].IsDir {
		t.Errorf("first entry = %+v, want a.js", tree[0])
	}
	if tree[1].Name != "sub" || !tree[1].IsDir {
		t.Errorf("second entry = %+v, want sub dir", tree[1])
	}
}

func TestMemOverwrite(t *testing.T) {
	t.Parallel()

	mem := NewMem()
	if err := mem.WriteText("a.txt", "one"); err != nil {
		t.Fatal(err)
	}
	if err := mem.WriteText("a.txt", "two"); err != nil {
		t.Fatal(err)
	}
	got, err := mem.ReadText("a.txt")
	if err != nil {
		t.Fatal(err)
	}
	if got != "two" {
		t.Fatalf("ReadText = %q, want overwrite", got)
	}
}
