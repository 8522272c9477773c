// Package program implements the codec for the mods on-disk program format:
// a JSON document whose modules carry their full source text under random
// fractional-number ids, and whose links are JSON strings nested two levels
// deep. The nesting is the host's fixed wire contract: the encoder must
// reproduce it byte-compatibly for mods to accept a document, and the decoder
// reverses it to recover connection semantics.
package program

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
)

// ModuleEntry is one module instance in a persisted program. Definition holds
// the complete module source, not a reference: mods stores a copy per
// instance. Inputs and Outputs are always empty placeholders in the persisted
// form; live port bindings are runtime-only.
type ModuleEntry struct {
	Definition string         `json:"definition"`
	Top        string         `json:"top"`
	Left       string         `json:"left"`
	Filename   string         `json:"filename"`
	Inputs     map[string]any `json:"inputs"`
	Outputs    map[string]any `json:"outputs"`
}

// Document is a persisted mods program: module instances keyed by fractional
// id, plus the triple-encoded link records.
type Document struct {
	Modules map[string]ModuleEntry `json:"modules"`
	Links   []string               `json:"links"`
}

// NewDocument returns an empty document with initialised collections, so it
// marshals as {"modules":{},"links":[]} rather than nulls.
func NewDocument() *Document {
	return &Document{
		Modules: map[string]ModuleEntry{},
		Links:   []string{},
	}
}

// Marshal renders the document as the JSON mods loads.
func (d *Document) Marshal() ([]byte, error) {
	return json.MarshalIndent(d, "", " ")
}

// Unmarshal parses a persisted program.
func Unmarshal(data []byte) (*Document, error) {
	doc := NewDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("program: parse document: %w", err)
	}
	return doc, nil
}

// Connections decodes every link in the document, skipping entries that do
// not parse and entries whose module ids are absent from the module map (the
// host tolerates dangling links in saved programs; so do we).
func (d *Document) Connections() []Link {
	links := []Link{}
	for _, raw := range d.Links {
		link, err := DecodeLink(raw)
		if err != nil {
			continue
		}
		if _, ok := d.Modules[link.SourceID]; !ok {
			continue
		}
		if _, ok := d.Modules[link.DestID]; !ok {
			continue
		}
		links = append(links, link)
	}
	return links
}

// freshID returns a fractional-number id of the shape mods itself assigns
// (the string form of a random float in [0,1)), unique within used.
func freshID(used map[string]bool) string {
	for {
		id := strconv.FormatFloat(rand.Float64(), 'f', 10, 64)
		if !used[id] {
			used[id] = true
			return id
		}
	}
}
