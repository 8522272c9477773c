package program

// Snapshot is the raw material for saving a live session as a program
// document: the module container's per-module attributes plus the identifier
// strings of the connection overlay entries.
type Snapshot struct {
	Modules []SnapshotModule
	Overlay []string
}

// SnapshotModule carries the persisted attributes of one live module.
// Layout fields may be empty when the host never positioned the element.
type SnapshotModule struct {
	ID         string
	Definition string
	Filename   string
	Top        string
	Left       string
}

// FromSnapshot turns a live-session snapshot into the equivalent persisted
// document. Tolerances, in line with what mods itself survives: a missing
// overlay yields empty links; missing layout attributes default to "0";
// overlay entries that do not decode, or that reference modules not present
// in the container, are skipped rather than failing the whole decode.
func FromSnapshot(snap Snapshot) *Document {
	doc := NewDocument()

	for _, mod := range snap.Modules {
		if mod.ID == "" {
			continue
		}
		top, left := mod.Top, mod.Left
		if top == "" {
			top = "0"
		}
		if left == "" {
			left = "0"
		}
		doc.Modules[mod.ID] = ModuleEntry{
			Definition: mod.Definition,
			Top:        top,
			Left:       left,
			Filename:   mod.Filename,
			Inputs:     map[string]any{},
			Outputs:    map[string]any{},
		}
	}

	for _, raw := range snap.Overlay {
		link, err := DecodeLink(raw)
		if err != nil {
			continue
		}
		if _, ok := doc.Modules[link.SourceID]; !ok {
			continue
		}
		if _, ok := doc.Modules[link.DestID]; !ok {
			continue
		}
		encoded, err := EncodeLink(link)
		if err != nil {
			continue
		}
		doc.Links = append(doc.Links, encoded)
	}

	return doc
}
