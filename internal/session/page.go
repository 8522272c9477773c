// Package session drives one live mods program: it extracts a structured
// snapshot of the rendered module graph from the page and mutates it through
// input, button, file and program-injection operations.
//
// The package never talks to a browser engine directly; it consumes the Page
// capability surface, which production code backs with a rod-controlled
// Chromium page and tests back with fakes.
package session

import (
	"context"
	"encoding/json"
	"time"
)

// Page is the rendered-page abstraction the session core operates against.
type Page interface {
	// Navigate loads the given URL and returns once the navigation has
	// committed (not once the host app is ready; readiness is the
	// driver's three-stage wait).
	Navigate(ctx context.Context, url string) error

	// Evaluate runs a JS function expression in the page and returns its
	// result as JSON. Args must be JSON-serialisable.
	Evaluate(ctx context.Context, fn string, args ...any) (json.RawMessage, error)

	// WaitUntil polls a JS predicate until it is truthy or the timeout
	// elapses, in which case it returns an error.
	WaitUntil(ctx context.Context, predicate string, timeout time.Duration) error

	// AttachFile sets a local file on the input element matched by the
	// CSS selector.
	AttachFile(ctx context.Context, selector, path string) error

	// Close tears the page down.
	Close() error
}

// DownloadEvent describes one file the host triggered for download.
type DownloadEvent struct {
	SuggestedFilename string
	Path              string
	URL               string
}

// DownloadSource is implemented by page providers that can surface download
// events (rod wires Chromium's download lifecycle into this).
type DownloadSource interface {
	OnDownload(func(DownloadEvent))
}
