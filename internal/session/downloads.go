package session

import (
	"log"
	"sync"
	"time"

	"github.com/TheBeachLab/mods-mcp/internal/eventbus"
	"github.com/google/uuid"
)

// Download is one captured file, tagged at capture time.
type Download struct {
	ID                string    `json:"id"`
	SuggestedFilename string    `json:"suggestedFilename"`
	Path              string    `json:"path,omitempty"`
	URL               string    `json:"url,omitempty"`
	CapturedAt        time.Time `json:"capturedAt"`
}

// Downloads passively accumulates every file the host triggers during the
// session. Entries are never auto-expired; a caller wanting to isolate the
// download of a single action clears the buffer first, acts, then reads
// Latest. Overlapping actions before a clear conflate their downloads; this
// is a caller-enforced isolation scheme, not a per-action tagging scheme.
type Downloads struct {
	mu      sync.Mutex
	entries []Download
	bus     *eventbus.Bus
}

func newDownloads(bus *eventbus.Bus) *Downloads {
	return &Downloads{bus: bus}
}

// capture appends one download event; wired as the page's download callback.
func (d *Downloads) capture(event DownloadEvent) {
	entry := Download{
		ID:                uuid.NewString(),
		SuggestedFilename: event.SuggestedFilename,
		Path:              event.Path,
		URL:               event.URL,
		CapturedAt:        time.Now().UTC(),
	}

	d.mu.Lock()
	d.entries = append(d.entries, entry)
	d.mu.Unlock()

	log.Printf("[Downloads] captured %q", entry.SuggestedFilename)
	d.bus.Publish(eventbus.TopicDownloadCaptured, eventbus.SourceDownloads, entry)
}

// Latest returns the most recently captured download, or nil when the buffer
// is empty.
func (d *Downloads) Latest() *Download {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.entries) == 0 {
		return nil
	}
	latest := d.entries[len(d.entries)-1]
	return &latest
}

// List returns all captured downloads, oldest first.
func (d *Downloads) List() []Download {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Download, len(d.entries))
	copy(out, d.entries)
	return out
}

// Clear empties the buffer.
func (d *Downloads) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries = nil
}
