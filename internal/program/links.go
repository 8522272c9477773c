package program

import (
	"encoding/json"
	"fmt"
)

// endpoint is the innermost link record: which module, which side, which
// port. Type is "outputs" on the source side and "inputs" on the dest side.
type endpoint struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Name string `json:"name"`
}

// linkRecord is the middle layer: two JSON-encoded endpoint strings.
type linkRecord struct {
	Source string `json:"source"`
	Dest   string `json:"dest"`
}

// Link is a decoded connection: data flows from an output port to an input
// port. A port may appear in any number of links.
type Link struct {
	SourceID   string `json:"sourceModuleId"`
	SourcePort string `json:"sourcePort"`
	DestID     string `json:"destModuleId"`
	DestPort   string `json:"destPort"`
}

// EncodeLink produces the host's wire form for one connection: each endpoint
// JSON-encoded on its own, then the {source,dest} pair JSON-encoded around
// them. Three levels of encoding total, counting the enclosing document.
func EncodeLink(link Link) (string, error) {
	source, err := json.Marshal(endpoint{ID: link.SourceID, Type: "outputs", Name: link.SourcePort})
	if err != nil {
		return "", fmt.Errorf("program: encode link source: %w", err)
	}
	dest, err := json.Marshal(endpoint{ID: link.DestID, Type: "inputs", Name: link.DestPort})
	if err != nil {
		return "", fmt.Errorf("program: encode link dest: %w", err)
	}
	record, err := json.Marshal(linkRecord{Source: string(source), Dest: string(dest)})
	if err != nil {
		return "", fmt.Errorf("program: encode link record: %w", err)
	}
	return string(record), nil
}

// DecodeLink reverses EncodeLink. Errors identify which layer failed; callers
// decoding whole collections skip individual failures rather than abort.
func DecodeLink(raw string) (Link, error) {
	var record linkRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return Link{}, fmt.Errorf("program: parse link record: %w", err)
	}

	var source, dest endpoint
	if err := json.Unmarshal([]byte(record.Source), &source); err != nil {
		return Link{}, fmt.Errorf("program: parse link source: %w", err)
	}
	if err := json.Unmarshal([]byte(record.Dest), &dest); err != nil {
		return Link{}, fmt.Errorf("program: parse link dest: %w", err)
	}

	link := Link{DestID: dest.ID, DestPort: dest.Name, SourceID: source.ID, SourcePort: source.Name}

	// Saved programs occasionally carry the pair reversed; direction comes
	// from the endpoint types, not the field names.
	if source.Type == "inputs" && dest.Type == "outputs" {
		link = Link{SourceID: dest.ID, SourcePort: dest.Name, DestID: source.ID, DestPort: source.Name}
	}
	return link, nil
}
