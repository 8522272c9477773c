package server

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/TheBeachLab/mods-mcp/internal/config"
	"github.com/TheBeachLab/mods-mcp/internal/eventbus"
	"github.com/TheBeachLab/mods-mcp/internal/program"
	"github.com/TheBeachLab/mods-mcp/internal/session"
	"github.com/TheBeachLab/mods-mcp/internal/storage"
)

func testServer(t *testing.T, files storage.Files) *Server {
	t.Helper()
	settings := config.DefaultSettings()
	settings.ModsDir = "mods"
	settings.ModulesDir = "mods/modules"
	settings.ProgramsDir = "mods/programs"
	return New(Options{
		Settings: settings,
		Files:    files,
		Bus:      eventbus.New(),
		PageFactory: func() (session.Page, error) {
			return nil, errors.New("no browser in tests")
		},
	})
}

func TestListPrograms(t *testing.T) {
	t.Parallel()

	files := storage.NewMem()
	seed := map[string]string{
		"mods/programs/machines/mill.json": `{"modules":{},"links":[]}`,
		"mods/programs/basic.json":         `{"modules":{},"links":[]}`,
		"mods/programs/README.md":          "not a program",
	}
	for path, content := range seed {
		if err := files.WriteText(path, content); err != nil {
			t.Fatalf("seed %s: %v", path, err)
		}
	}

	srv := testServer(t, files)
	result, out, err := srv.handleListPrograms(context.Background(), nil, emptyInput{})
	if err != nil {
		t.Fatalf("handleListPrograms: %v", err)
	}
	if result != nil {
		t.Fatalf("unexpected error result: %+v", result)
	}
	if len(out.Programs) != 2 {
		t.Fatalf("got %d programs, want 2: %v", len(out.Programs), out.Programs)
	}
	for _, p := range out.Programs {
		if !strings.HasSuffix(p, ".json") {
			t.Errorf("non-json path listed: %s", p)
		}
	}
}

func TestBuildProgramWritesOutput(t *testing.T) {
	t.Parallel()

	files := storage.NewMem()
	if err := files.WriteText("mods/modules/slider.js", `({name:'slider', inputs:{}, outputs:{value:{type:'number'}}})`); err != nil {
		t.Fatal(err)
	}
	if err := files.WriteText("mods/modules/gain.js", `({name:'gain', inputs:{value:{type:'number'}}, outputs:{out:{type:'number'}}})`); err != nil {
		t.Fatal(err)
	}

	srv := testServer(t, files)
	result, out, err := srv.handleBuildProgram(context.Background(), nil, buildProgramInput{
		Modules: []string{"mods/modules/slider.js", "mods/modules/gain.js"},
		Links:   []program.LinkSpec{{From: "slider.value", To: "gain.value"}},
		Output:  "mods/programs/built.json",
	})
	if err != nil {
		t.Fatalf("handleBuildProgram: %v", err)
	}
	if result != nil {
		t.Fatalf("unexpected error result: %+v", result)
	}
	if out.ModuleCount != 2 || out.LinkCount != 1 {
		t.Fatalf("got %d modules, %d links, want 2 and 1", out.ModuleCount, out.LinkCount)
	}

	written, err := files.ReadText("mods/programs/built.json")
	if err != nil {
		t.Fatalf("read built program: %v", err)
	}
	doc, err := program.Unmarshal([]byte(written))
	if err != nil {
		t.Fatalf("parse built program: %v", err)
	}
	if len(doc.Links) != 1 {
		t.Fatalf("round-trip lost links: %d", len(doc.Links))
	}
}

func TestBuildProgramBadLink(t *testing.T) {
	t.Parallel()

	files := storage.NewMem()
	if err := files.WriteText("mods/modules/slider.js", `({name:'slider', outputs:{value:{type:'number'}}})`); err != nil {
		t.Fatal(err)
	}

	srv := testServer(t, files)
	result, _, err := srv.handleBuildProgram(context.Background(), nil, buildProgramInput{
		Modules: []string{"mods/modules/slider.js"},
		Links:   []program.LinkSpec{{From: "slider.value", To: "missing.value"}},
	})
	if err != nil {
		t.Fatalf("handleBuildProgram: %v", err)
	}
	if result == nil || !result.IsError {
		t.Fatal("expected an error result for a dangling link")
	}
}

func TestSessionToolsWithoutSession(t *testing.T) {
	t.Parallel()

	srv := testServer(t, storage.NewMem())
	ctx := context.Background()

	result, _, err := srv.handleReadState(ctx, nil, emptyInput{})
	if err != nil {
		t.Fatalf("handleReadState: %v", err)
	}
	if result == nil || !result.IsError {
		t.Fatal("expected an error result without a session")
	}
	text := toolText(t, result)
	if !strings.Contains(text, "load_program") {
		t.Errorf("error should point at load_program, got %q", text)
	}

	result, _, err = srv.handleSetInput(ctx, nil, setInputInput{Module: "slider", Label: "value", Value: "1"})
	if err != nil {
		t.Fatalf("handleSetInput: %v", err)
	}
	if result == nil || !result.IsError {
		t.Fatal("expected an error result without a session")
	}
}

func TestLoadProgramBrowserFailure(t *testing.T) {
	t.Parallel()

	srv := testServer(t, storage.NewMem())
	result, _, err := srv.handleLoadProgram(context.Background(), nil, loadProgramInput{Path: "mods/programs/basic.json"})
	if err != nil {
		t.Fatalf("handleLoadProgram: %v", err)
	}
	if result == nil || !result.IsError {
		t.Fatal("expected an error result when the browser cannot start")
	}
	if text := toolText(t, result); !strings.Contains(text, "no browser in tests") {
		t.Errorf("error should carry the launch failure, got %q", text)
	}
}

func TestProgramURLEscapesPath(t *testing.T) {
	t.Parallel()

	srv := testServer(t, storage.NewMem())
	got := srv.programURL("programs/a b.json")
	want := "http://" + srv.settings.ListenAddr + "/?program=programs%2Fa+b.json"
	if got != want {
		t.Fatalf("programURL = %q, want %q", got, want)
	}
}

// toolText extracts the first text block from an error result.
func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("result has no content")
	}
	text, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content type %T", result.Content[0])
	}
	return text.Text
}
