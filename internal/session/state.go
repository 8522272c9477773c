package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/TheBeachLab/mods-mcp/internal/program"
)

// ParamKind classifies a module parameter control.
type ParamKind string

const (
	KindText     ParamKind = "text"
	KindCheckbox ParamKind = "checkbox"
	KindRadio    ParamKind = "radio"
	KindFile     ParamKind = "file"
)

// Param is one parameter control on a live module. Checkbox values are
// always the string "true" or "false", derived from the checked state; the
// raw control value of a checkbox carries no meaning.
type Param struct {
	Label string    `json:"label"`
	Value string    `json:"value"`
	Kind  ParamKind `json:"kind"`
}

// Connection is one edge touching a module, seen from that module's side.
// The port descriptor reads "sourcePort > destPort" regardless of side.
type Connection struct {
	PeerName string `json:"peerName"`
	PeerID   string `json:"peerId"`
	Port     string `json:"portDescriptor"`
}

// Module is a structured snapshot of one live module instance. IDs are
// assigned by the mods runtime at instantiation and are stable only for the
// lifetime of the loaded program.
type Module struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Params        []Param      `json:"params"`
	Buttons       []string     `json:"buttons"`
	ConnectedFrom []Connection `json:"connectedFrom,omitempty"`
	ConnectedTo   []Connection `json:"connectedTo,omitempty"`

	// Persistence attributes, used by save, not part of the state model.
	Filename   string `json:"filename,omitempty"`
	Definition string `json:"-"`
	Top        string `json:"-"`
	Left       string `json:"-"`
}

// rawControl mirrors what the extraction script reports per input element.
type rawControl struct {
	Label   string `json:"label"`
	Kind    string `json:"kind"`
	Value   string `json:"value"`
	Checked bool   `json:"checked"`
}

// rawModule mirrors what the extraction script reports per container child.
type rawModule struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Filename   string       `json:"filename"`
	Definition string       `json:"definition"`
	Top        string       `json:"top"`
	Left       string       `json:"left"`
	Controls   []rawControl `json:"controls"`
	Buttons    []string     `json:"buttons"`
}

// overlayScript collects the identifier strings of the connection overlay.
// Entries without an id are decorative and skipped here; entries whose id is
// not a parseable link record are skipped by the Go side.
const overlayScript = `(selector) => {
	return Array.from(document.querySelectorAll(selector))
		.map((el) => el.id || el.getAttribute('id') || '')
		.filter((id) => id !== '');
}`

// containerScript walks the module container in document order and reports
// per-module identity, persistence attributes, input controls and buttons.
// A control's label is the text immediately preceding it in document order,
// or empty when nothing precedes it. The canonical module name comes from the
// container child's metadata attribute, never from display text.
const containerScript = `(selector) => {
	const container = document.querySelector(selector);
	if (!container) return [];

	const labelFor = (el) => {
		let prev = el.previousSibling;
		while (prev) {
			const text = (prev.textContent || '').trim();
			if (text) return text;
			prev = prev.previousSibling;
		}
		return '';
	};

	const out = [];
	for (const node of container.children) {
		const id = node.id || node.getAttribute('id') || '';
		if (!id) continue;

		const mod = {
			id: id,
			name: node.dataset.name || '',
			filename: node.dataset.filename || '',
			definition: node.dataset.definition || '',
			top: node.style.top ? String(parseFloat(node.style.top)) : '',
			left: node.style.left ? String(parseFloat(node.style.left)) : '',
			controls: [],
			buttons: []
		};
		for (const input of node.querySelectorAll('input')) {
			mod.controls.push({
				label: labelFor(input),
				kind: input.type || 'text',
				value: input.value,
				checked: !!input.checked
			});
		}
		for (const button of node.querySelectorAll('button')) {
			mod.buttons.push((button.textContent || '').trim());
		}
		out.push(mod);
	}
	return out;
}`

// readRaw pulls the container and overlay state out of the page.
func (s *Session) readRaw(ctx context.Context) ([]rawModule, []string, error) {
	overlayJSON, err := s.page.Evaluate(ctx, overlayScript, s.settings.OverlaySelector)
	if err != nil {
		return nil, nil, fmt.Errorf("session: read connection overlay: %w", err)
	}
	var overlay []string
	if err := json.Unmarshal(overlayJSON, &overlay); err != nil {
		return nil, nil, fmt.Errorf("session: parse connection overlay: %w", err)
	}

	modulesJSON, err := s.page.Evaluate(ctx, containerScript, s.settings.ContainerSelector)
	if err != nil {
		return nil, nil, fmt.Errorf("session: read module container: %w", err)
	}
	var modules []rawModule
	if err := json.Unmarshal(modulesJSON, &modules); err != nil {
		return nil, nil, fmt.Errorf("session: parse module container: %w", err)
	}

	return modules, overlay, nil
}

// ReadState extracts the structured model of the running program: container
// order is preserved, checkbox values are coerced from checked state, and
// the connection topology is reconstructed from the overlay. Overlay entries
// that do not decode, and entries referencing ids with no live module, are
// dropped silently.
func (s *Session) ReadState(ctx context.Context) ([]Module, error) {
	if err := s.active(); err != nil {
		return nil, err
	}

	raw, overlay, err := s.readRaw(ctx)
	if err != nil {
		return nil, err
	}

	// Decode the overlay first, independent of module parsing.
	var links []program.Link
	for _, id := range overlay {
		link, err := program.DecodeLink(id)
		if err != nil {
			continue
		}
		links = append(links, link)
	}

	modules := make([]Module, 0, len(raw))
	byID := make(map[string]int)
	for _, rm := range raw {
		if rm.ID == "" {
			continue
		}
		mod := Module{
			ID:         rm.ID,
			Name:       rm.Name,
			Params:     make([]Param, 0, len(rm.Controls)),
			Buttons:    rm.Buttons,
			Filename:   rm.Filename,
			Definition: rm.Definition,
			Top:        rm.Top,
			Left:       rm.Left,
		}
		if mod.Buttons == nil {
			mod.Buttons = []string{}
		}
		for _, ctrl := range rm.Controls {
			mod.Params = append(mod.Params, Param{
				Label: ctrl.Label,
				Value: paramValue(ctrl),
				Kind:  paramKind(ctrl.Kind),
			})
		}
		byID[mod.ID] = len(modules)
		modules = append(modules, mod)
	}

	for _, link := range links {
		sourceIdx, sourceLive := byID[link.SourceID]
		destIdx, destLive := byID[link.DestID]
		if !sourceLive || !destLive {
			// Stale overlay entry; only live modules are reported.
			continue
		}
		descriptor := link.SourcePort + " > " + link.DestPort
		modules[destIdx].ConnectedFrom = append(modules[destIdx].ConnectedFrom, Connection{
			PeerName: modules[sourceIdx].Name,
			PeerID:   link.SourceID,
			Port:     descriptor,
		})
		modules[sourceIdx].ConnectedTo = append(modules[sourceIdx].ConnectedTo, Connection{
			PeerName: modules[destIdx].Name,
			PeerID:   link.DestID,
			Port:     descriptor,
		})
	}

	return modules, nil
}

// Snapshot reads the live state in the persisted-document shape, for save.
func (s *Session) Snapshot(ctx context.Context) (program.Snapshot, error) {
	if err := s.active(); err != nil {
		return program.Snapshot{}, err
	}

	raw, overlay, err := s.readRaw(ctx)
	if err != nil {
		return program.Snapshot{}, err
	}

	snap := program.Snapshot{Overlay: overlay}
	for _, rm := range raw {
		snap.Modules = append(snap.Modules, program.SnapshotModule{
			ID:         rm.ID,
			Definition: rm.Definition,
			Filename:   rm.Filename,
			Top:        rm.Top,
			Left:       rm.Left,
		})
	}
	return snap, nil
}

// paramValue coerces a control's reported state into the model value.
// Checkboxes report their checked state, never the raw value attribute.
func paramValue(ctrl rawControl) string {
	if paramKind(ctrl.Kind) == KindCheckbox {
		if ctrl.Checked {
			return "true"
		}
		return "false"
	}
	return ctrl.Value
}

func paramKind(kind string) ParamKind {
	switch kind {
	case "checkbox":
		return KindCheckbox
	case "radio":
		return KindRadio
	case "file":
		return KindFile
	default:
		return KindText
	}
}
