// Package browser backs the session.Page abstraction with a rod-controlled
// Chromium page. Everything engine-specific lives here; the session core
// never sees rod types.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/TheBeachLab/mods-mcp/internal/session"
)

// pollInterval paces predicate checks inside WaitUntil.
const pollInterval = 100 * time.Millisecond

// Options configures a browser launch.
type Options struct {
	Headless    bool
	DownloadDir string // Where Chromium writes triggered downloads.
}

// Browser owns one Chromium process and one page.
type Browser struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page

	mu        sync.Mutex
	callbacks []func(session.DownloadEvent)
	pending   map[string]session.DownloadEvent // by download GUID, until complete
}

// Launch starts Chromium and opens a blank page. Download events are routed
// into registered callbacks once the file has finished writing.
func Launch(opts Options) (*Browser, error) {
	l := launcher.New().Headless(opts.Headless)
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("browser: launch chromium: %w", err)
	}

	rb := rod.New().ControlURL(controlURL)
	if err := rb.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("browser: connect: %w", err)
	}

	page, err := rb.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = rb.Close()
		l.Cleanup()
		return nil, fmt.Errorf("browser: open page: %w", err)
	}

	b := &Browser{
		launcher: l,
		browser:  rb,
		page:     page,
		pending:  map[string]session.DownloadEvent{},
	}

	if opts.DownloadDir != "" {
		if err := b.routeDownloads(opts.DownloadDir); err != nil {
			_ = b.Close()
			return nil, err
		}
	}

	return b, nil
}

// routeDownloads tells Chromium to write downloads into dir under their GUID
// and forwards completed downloads to the registered callbacks.
func (b *Browser) routeDownloads(dir string) error {
	err := proto.BrowserSetDownloadBehavior{
		Behavior:      proto.BrowserSetDownloadBehaviorBehaviorAllowAndName,
		DownloadPath:  dir,
		EventsEnabled: true,
	}.Call(b.browser)
	if err != nil {
		return fmt.Errorf("browser: set download behavior: %w", err)
	}

	wait := b.browser.EachEvent(
		func(e *proto.BrowserDownloadWillBegin) {
			b.mu.Lock()
			b.pending[e.GUID] = session.DownloadEvent{
				SuggestedFilename: e.SuggestedFilename,
				URL:               e.URL,
				Path:              filepath.Join(dir, e.GUID),
			}
			b.mu.Unlock()
		},
		func(e *proto.BrowserDownloadProgress) {
			if e.State != proto.BrowserDownloadProgressStateCompleted {
				return
			}
			b.mu.Lock()
			event, ok := b.pending[e.GUID]
			delete(b.pending, e.GUID)
			callbacks := append([]func(session.DownloadEvent){}, b.callbacks...)
			b.mu.Unlock()
			if !ok {
				return
			}
			log.Printf("[Browser] download complete: %s", event.SuggestedFilename)
			for _, cb := range callbacks {
				cb(event)
			}
		},
	)
	go wait()
	return nil
}

// OnDownload registers a callback for completed downloads.
func (b *Browser) OnDownload(cb func(session.DownloadEvent)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.callbacks = append(b.callbacks, cb)
}

// Navigate loads the URL and waits for the load event.
func (b *Browser) Navigate(ctx context.Context, url string) error {
	page := b.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("browser: navigate: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("browser: wait load: %w", err)
	}
	return nil
}

// Evaluate runs a JS function expression in the page and returns its result
// as JSON.
func (b *Browser) Evaluate(ctx context.Context, fn string, args ...any) (json.RawMessage, error) {
	result, err := b.page.Context(ctx).Eval(fn, args...)
	if err != nil {
		return nil, fmt.Errorf("browser: evaluate: %w", err)
	}
	data, err := json.Marshal(result.Value)
	if err != nil {
		return nil, fmt.Errorf("browser: marshal eval result: %w", err)
	}
	return data, nil
}

// WaitUntil polls the predicate until truthy or until timeout.
func (b *Browser) WaitUntil(ctx context.Context, predicate string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		result, err := b.page.Context(ctx).Eval(predicate)
		if err == nil && result.Value.Bool() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("browser: predicate not true within %s", timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// AttachFile sets a local file on the input element matched by selector.
func (b *Browser) AttachFile(ctx context.Context, selector, path string) error {
	el, err := b.page.Context(ctx).Element(selector)
	if err != nil {
		return fmt.Errorf("browser: locate %s: %w", selector, err)
	}
	if err := el.SetFiles([]string{path}); err != nil {
		return fmt.Errorf("browser: set files: %w", err)
	}
	return nil
}

// Close shuts the browser down and cleans up the launcher's temp profile.
func (b *Browser) Close() error {
	err := b.browser.Close()
	b.launcher.Cleanup()
	return err
}

var _ session.Page = (*Browser)(nil)
var _ session.DownloadSource = (*Browser)(nil)
