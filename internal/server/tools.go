package server

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/TheBeachLab/mods-mcp/internal/catalog"
	"github.com/TheBeachLab/mods-mcp/internal/program"
	"github.com/TheBeachLab/mods-mcp/internal/session"
	"github.com/TheBeachLab/mods-mcp/internal/storage"
)

// errorResult wraps a failure as a tool-level error so the caller sees the
// message instead of a protocol fault.
func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
}

type emptyInput struct{}

type listProgramsOutput struct {
	Programs []string `json:"programs"`
}

type listModulesOutput struct {
	Modules []catalog.Entry `json:"modules"`
}

type introspectInput struct {
	Path string `json:"path" jsonschema:"path of the module definition file"`
}

type loadProgramInput struct {
	Path string `json:"path" jsonschema:"program path relative to the programs directory"`
}

type stateOutput struct {
	Modules []session.Module `json:"modules"`
}

type setInputInput struct {
	Module string `json:"module" jsonschema:"module reference: name substring, or name:id for an exact id"`
	Label  string `json:"label" jsonschema:"case-sensitive substring of the parameter label"`
	Value  string `json:"value"`
}

type clickButtonInput struct {
	Module string `json:"module" jsonschema:"module reference: name substring, or name:id for an exact id"`
	Text   string `json:"text" jsonschema:"case-insensitive substring of the button text"`
}

type injectFileInput struct {
	Module string `json:"module" jsonschema:"module reference of the module with a file input"`
	Path   string `json:"path" jsonschema:"local path of the file to attach"`
}

type injectFileOutput struct {
	Module string `json:"module"`
	Path   string `json:"path"`
}

type buildProgramInput struct {
	Modules []string           `json:"modules" jsonschema:"module definition file paths"`
	Links   []program.LinkSpec `json:"links,omitempty" jsonschema:"connections as moduleName.portName pairs"`
	Output  string             `json:"output,omitempty" jsonschema:"optional path to write the program document to"`
	Inject  bool               `json:"inject,omitempty" jsonschema:"load the built program into the live session"`
}

type buildProgramOutput struct {
	ModuleCount int              `json:"moduleCount"`
	LinkCount   int              `json:"linkCount"`
	Output      string           `json:"output,omitempty"`
	Document    string           `json:"document,omitempty"`
	State       []session.Module `json:"state,omitempty"`
}

type saveProgramInput struct {
	Output string `json:"output" jsonschema:"path to write the saved program document to"`
}

type saveProgramOutput struct {
	Output  string `json:"output"`
	Modules int    `json:"modules"`
	Links   int    `json:"links"`
}

type downloadOutput struct {
	Download *session.Download `json:"download"`
	Count    int               `json:"count"`
}

func (s *Server) registerTools(m *mcp.Server) {
	mcp.AddTool(m, &mcp.Tool{
		Name:        "list_programs",
		Description: "List the program documents available under the programs directory.",
	}, s.handleListPrograms)

	mcp.AddTool(m, &mcp.Tool{
		Name:        "list_modules",
		Description: "List every module definition with its introspected name and input/output ports.",
	}, s.handleListModules)

	mcp.AddTool(m, &mcp.Tool{
		Name:        "introspect_module",
		Description: "Introspect one module definition file: declared name, ports and the strategy that recovered them.",
	}, s.handleIntrospect)

	mcp.AddTool(m, &mcp.Tool{
		Name: "load_program",
		Description: `Load a program into the browser session and return its state.
Starts the browser on first use. Example: load_program {path: "programs/machines/mill.json"}`,
	}, s.handleLoadProgram)

	mcp.AddTool(m, &mcp.Tool{
		Name:        "read_state",
		Description: "Snapshot of the loaded program: modules in container order with parameters, buttons and connections.",
	}, s.handleReadState)

	mcp.AddTool(m, &mcp.Tool{
		Name: "set_input",
		Description: `Set a parameter on a module. Checkbox values: "true"/"false".
Example: set_input {module: "mill raster 2D", label: "tool diameter", value: "0.4"}`,
	}, s.handleSetInput)

	mcp.AddTool(m, &mcp.Tool{
		Name:        "click_button",
		Description: `Click a module button by text substring. Example: click_button {module: "mill raster 2D", text: "calculate"}`,
	}, s.handleClickButton)

	mcp.AddTool(m, &mcp.Tool{
		Name:        "inject_file",
		Description: "Attach a local file to a module's file input, e.g. a PNG into a read png module.",
	}, s.handleInjectFile)

	mcp.AddTool(m, &mcp.Tool{
		Name: "build_program",
		Description: `Assemble a program document from module files and named links.
Example: build_program {modules: ["modules/ui/slider.js"], links: [{from: "slider.value", to: "gain.value"}]}`,
	}, s.handleBuildProgram)

	mcp.AddTool(m, &mcp.Tool{
		Name:        "save_program",
		Description: "Serialize the live session back into a program document and write it to disk.",
	}, s.handleSaveProgram)

	mcp.AddTool(m, &mcp.Tool{
		Name:        "latest_download",
		Description: "Most recent file the host triggered for download, or null. Clear first to isolate one action's output.",
	}, s.handleLatestDownload)

	mcp.AddTool(m, &mcp.Tool{
		Name:        "clear_downloads",
		Description: "Empty the download capture buffer.",
	}, s.handleClearDownloads)
}

func (s *Server) handleListPrograms(ctx context.Context, req *mcp.CallToolRequest, in emptyInput) (*mcp.CallToolResult, listProgramsOutput, error) {
	out := listProgramsOutput{Programs: []string{}}
	tree, err := s.files.Tree(s.settings.ProgramsDir)
	if err != nil {
		return errorResult(fmt.Sprintf("list programs: %v", err)), out, nil
	}
	collectFiles(tree, ".json", &out.Programs)
	return nil, out, nil
}

func (s *Server) handleListModules(ctx context.Context, req *mcp.CallToolRequest, in emptyInput) (*mcp.CallToolResult, listModulesOutput, error) {
	out := listModulesOutput{Modules: []catalog.Entry{}}
	entries, err := s.catalog.Scan(ctx, s.settings.ModulesDir)
	if err != nil {
		return errorResult(fmt.Sprintf("scan modules: %v", err)), out, nil
	}
	out.Modules = entries
	return nil, out, nil
}

func (s *Server) handleIntrospect(ctx context.Context, req *mcp.CallToolRequest, in introspectInput) (*mcp.CallToolResult, catalog.Entry, error) {
	if in.Path == "" {
		return errorResult("path required"), catalog.Entry{}, nil
	}
	entry, err := s.catalog.Introspect(ctx, in.Path)
	if err != nil {
		return errorResult(err.Error()), catalog.Entry{}, nil
	}
	return nil, entry, nil
}

func (s *Server) handleLoadProgram(ctx context.Context, req *mcp.CallToolRequest, in loadProgramInput) (*mcp.CallToolResult, stateOutput, error) {
	out := stateOutput{Modules: []session.Module{}}
	if in.Path == "" {
		return errorResult("path required"), out, nil
	}

	sess, err := s.ensureSession()
	if err != nil {
		return errorResult(err.Error()), out, nil
	}
	if err := sess.Navigate(ctx, s.programURL(in.Path)); err != nil {
		return errorResult(fmt.Sprintf("load %s: %v", in.Path, err)), out, nil
	}

	modules, err := sess.ReadState(ctx)
	if err != nil {
		return errorResult(err.Error()), out, nil
	}
	out.Modules = modules
	return nil, out, nil
}

func (s *Server) handleReadState(ctx context.Context, req *mcp.CallToolRequest, in emptyInput) (*mcp.CallToolResult, stateOutput, error) {
	out := stateOutput{Modules: []session.Module{}}
	sess, err := s.currentSession()
	if err != nil {
		return errorResult(noSessionHint(err)), out, nil
	}
	modules, err := sess.ReadState(ctx)
	if err != nil {
		return errorResult(err.Error()), out, nil
	}
	out.Modules = modules
	return nil, out, nil
}

func (s *Server) handleSetInput(ctx context.Context, req *mcp.CallToolRequest, in setInputInput) (*mcp.CallToolResult, session.InputResult, error) {
	sess, err := s.currentSession()
	if err != nil {
		return errorResult(noSessionHint(err)), session.InputResult{}, nil
	}
	result, err := sess.SetInput(ctx, in.Module, in.Label, in.Value)
	if err != nil {
		return errorResult(err.Error()), session.InputResult{}, nil
	}
	return nil, result, nil
}

func (s *Server) handleClickButton(ctx context.Context, req *mcp.CallToolRequest, in clickButtonInput) (*mcp.CallToolResult, session.ButtonResult, error) {
	sess, err := s.currentSession()
	if err != nil {
		return errorResult(noSessionHint(err)), session.ButtonResult{}, nil
	}
	result, err := sess.ClickButton(ctx, in.Module, in.Text)
	if err != nil {
		return errorResult(err.Error()), session.ButtonResult{}, nil
	}
	return nil, result, nil
}

func (s *Server) handleInjectFile(ctx context.Context, req *mcp.CallToolRequest, in injectFileInput) (*mcp.CallToolResult, injectFileOutput, error) {
	sess, err := s.currentSession()
	if err != nil {
		return errorResult(noSessionHint(err)), injectFileOutput{}, nil
	}
	mod, err := sess.InjectFile(ctx, in.Module, in.Path)
	if err != nil {
		return errorResult(err.Error()), injectFileOutput{}, nil
	}
	return nil, injectFileOutput{Module: mod.Name, Path: in.Path}, nil
}

func (s *Server) handleBuildProgram(ctx context.Context, req *mcp.CallToolRequest, in buildProgramInput) (*mcp.CallToolResult, buildProgramOutput, error) {
	out := buildProgramOutput{}
	if len(in.Modules) == 0 {
		return errorResult("modules required"), out, nil
	}

	doc, err := program.Build(s.files, in.Modules, in.Links)
	if err != nil {
		return errorResult(err.Error()), out, nil
	}
	out.ModuleCount = len(doc.Modules)
	out.LinkCount = len(doc.Links)

	data, err := doc.Marshal()
	if err != nil {
		return errorResult(err.Error()), out, nil
	}

	switch {
	case in.Output != "":
		if err := s.files.WriteText(in.Output, string(data)); err != nil {
			return errorResult(fmt.Sprintf("write %s: %v", in.Output, err)), out, nil
		}
		out.Output = in.Output
	default:
		out.Document = string(data)
	}

	if in.Inject {
		sess, err := s.ensureSession()
		if err != nil {
			return errorResult(err.Error()), out, nil
		}
		if err := sess.InjectProgram(ctx, doc); err != nil {
			return errorResult(err.Error()), out, nil
		}
		state, err := sess.ReadState(ctx)
		if err != nil {
			return errorResult(fmt.Sprintf("verify injected program: %v", err)), out, nil
		}
		out.State = state
	}

	return nil, out, nil
}

func (s *Server) handleSaveProgram(ctx context.Context, req *mcp.CallToolRequest, in saveProgramInput) (*mcp.CallToolResult, saveProgramOutput, error) {
	if in.Output == "" {
		return errorResult("output required"), saveProgramOutput{}, nil
	}
	sess, err := s.currentSession()
	if err != nil {
		return errorResult(noSessionHint(err)), saveProgramOutput{}, nil
	}

	snap, err := sess.Snapshot(ctx)
	if err != nil {
		return errorResult(err.Error()), saveProgramOutput{}, nil
	}
	doc := program.FromSnapshot(snap)
	data, err := doc.Marshal()
	if err != nil {
		return errorResult(err.Error()), saveProgramOutput{}, nil
	}
	if err := s.files.WriteText(in.Output, string(data)); err != nil {
		return errorResult(fmt.Sprintf("write %s: %v", in.Output, err)), saveProgramOutput{}, nil
	}

	return nil, saveProgramOutput{
		Output:  in.Output,
		Modules: len(doc.Modules),
		Links:   len(doc.Links),
	}, nil
}

func (s *Server) handleLatestDownload(ctx context.Context, req *mcp.CallToolRequest, in emptyInput) (*mcp.CallToolResult, downloadOutput, error) {
	sess, err := s.currentSession()
	if err != nil {
		return errorResult(noSessionHint(err)), downloadOutput{}, nil
	}
	return nil, downloadOutput{
		Download: sess.Downloads().Latest(),
		Count:    len(sess.Downloads().List()),
	}, nil
}

func (s *Server) handleClearDownloads(ctx context.Context, req *mcp.CallToolRequest, in emptyInput) (*mcp.CallToolResult, downloadOutput, error) {
	sess, err := s.currentSession()
	if err != nil {
		return errorResult(noSessionHint(err)), downloadOutput{}, nil
	}
	sess.Downloads().Clear()
	return nil, downloadOutput{}, nil
}

func noSessionHint(err error) string {
	if errors.Is(err, session.ErrNoSession) {
		return "no program loaded; call load_program first"
	}
	return err.Error()
}

// collectFiles flattens a storage tree into the paths of files with the
// given extension.
func collectFiles(tree []storage.Entry, ext string, out *[]string) {
	for _, node := range tree {
		if node.IsDir {
			collectFiles(node.Entries, ext, out)
			continue
		}
		if strings.EqualFold(filepath.Ext(node.Name), ext) {
			*out = append(*out, node.Path)
		}
	}
}
