package session

import (
	"context"
	"strings"
)

// Resolve maps a module reference onto a live module. Two forms exist:
// "<name>" substring-matches against module names and takes the first match
// in container order; "<name>:<id>" matches on the exact id when the part
// after the colon begins with "0." (the shape of every fractional id). The
// colon form disambiguates between same-named modules.
func (s *Session) Resolve(ctx context.Context, ref string) (Module, error) {
	modules, err := s.ReadState(ctx)
	if err != nil {
		return Module{}, err
	}
	return resolveRef(modules, ref)
}

func resolveRef(modules []Module, ref string) (Module, error) {
	if colon := strings.LastIndex(ref, ":"); colon >= 0 && strings.HasPrefix(ref[colon+1:], "0.") {
		id := ref[colon+1:]
		for _, mod := range modules {
			if mod.ID == id {
				return mod, nil
			}
		}
		return Module{}, &NotFoundError{Kind: "module", Wanted: ref, Available: moduleNames(modules)}
	}

	for _, mod := range modules {
		if strings.Contains(mod.Name, ref) {
			return mod, nil
		}
	}
	return Module{}, &NotFoundError{Kind: "module", Wanted: ref, Available: moduleNames(modules)}
}

func moduleNames(modules []Module) []string {
	names := make([]string, 0, len(modules))
	for _, mod := range modules {
		names = append(names, mod.Name)
	}
	return names
}
