package program

import (
	"fmt"
	"sort"
	"strings"

	"github.com/TheBeachLab/mods-mcp/internal/introspect"
	"github.com/TheBeachLab/mods-mcp/internal/storage"
)

// LinkSpec names one connection by module name and port:
// "module name.portName" on each side. Module names are the declared names
// inside the definitions, not filenames.
type LinkSpec struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Build assembles a program document from module source files and a link
// spec. Every module gets a fresh fractional id and a full copy of its
// source; link endpoints are resolved through each module's declared name.
//
// An unresolvable module name fails the whole build. A dangling link would
// be accepted silently by mods and corrupt the program, so partial documents
// are never returned.
func Build(files storage.Files, modulePaths []string, links []LinkSpec) (*Document, error) {
	doc := NewDocument()
	used := map[string]bool{}
	nameToID := map[string]string{}

	for _, path := range modulePaths {
		source, err := files.ReadText(path)
		if err != nil {
			return nil, fmt.Errorf("program: read module %s: %w", path, err)
		}

		id := freshID(used)
		doc.Modules[id] = ModuleEntry{
			Definition: source,
			Top:        "100",
			Left:       "100",
			Filename:   path,
			Inputs:     map[string]any{},
			Outputs:    map[string]any{},
		}

		// Name collisions keep the first instance; resolution is only
		// needed for modules a link actually names.
		result := introspect.Introspect(source)
		if result.Method != introspect.MethodFailed {
			if _, taken := nameToID[result.Name]; !taken {
				nameToID[result.Name] = id
			}
		}
	}

	for _, spec := range links {
		sourceID, sourcePort, err := resolveEndpoint(nameToID, spec.From, "source")
		if err != nil {
			return nil, err
		}
		destID, destPort, err := resolveEndpoint(nameToID, spec.To, "destination")
		if err != nil {
			return nil, err
		}

		encoded, err := EncodeLink(Link{
			SourceID:   sourceID,
			SourcePort: sourcePort,
			DestID:     destID,
			DestPort:   destPort,
		})
		if err != nil {
			return nil, err
		}
		doc.Links = append(doc.Links, encoded)
	}

	return doc, nil
}

// resolveEndpoint splits "module name.port" on the last dot (module names may
// contain dots, port names may not) and maps the module name to its build id.
func resolveEndpoint(nameToID map[string]string, ref, side string) (id, port string, err error) {
	dot := strings.LastIndex(ref, ".")
	if dot <= 0 || dot == len(ref)-1 {
		return "", "", fmt.Errorf("program: %s %q is not of the form \"module.port\"", side, ref)
	}

	moduleName := ref[:dot]
	port = ref[dot+1:]

	id, ok := nameToID[moduleName]
	if !ok {
		return "", "", fmt.Errorf("program: %s names unknown module %q (known: %s)",
			side, moduleName, strings.Join(knownNames(nameToID), ", "))
	}
	return id, port, nil
}

func knownNames(nameToID map[string]string) []string {
	names := make([]string, 0, len(nameToID))
	for name := range nameToID {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
