package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/TheBeachLab/mods-mcp/internal/config"
	"github.com/TheBeachLab/mods-mcp/internal/eventbus"
	"github.com/TheBeachLab/mods-mcp/internal/program"
)

// Session owns one live rendered program: the page it runs in and the
// download buffer it feeds. There are no package-level singletons; callers
// create a session, pass it around, and close it. Operations assume a single
// caller issuing them sequentially; concurrent calls against one session
// are not serialised here.
type Session struct {
	page      Page
	settings  config.Settings
	bus       *eventbus.Bus
	downloads *Downloads
}

// New wraps a page in a session handle. When the page can surface download
// events, the session's capture buffer starts accumulating immediately.
func New(page Page, settings config.Settings, bus *eventbus.Bus) *Session {
	s := &Session{
		page:      page,
		settings:  settings,
		bus:       bus,
		downloads: newDownloads(bus),
	}
	if source, ok := page.(DownloadSource); ok {
		source.OnDownload(s.downloads.capture)
	}
	return s
}

// Downloads exposes the session's capture buffer.
func (s *Session) Downloads() *Downloads { return s.downloads }

// Close tears down the underlying page.
func (s *Session) Close() error {
	if err := s.active(); err != nil {
		return err
	}
	page := s.page
	s.page = nil
	return page.Close()
}

func (s *Session) active() error {
	if s == nil || s.page == nil {
		return ErrNoSession
	}
	return nil
}

// Navigate loads a program URL and blocks until the host is ready: the load
// entry point must be defined, the module container must have at least one
// child, and a settle delay must elapse. Three sequential waits, each fatal
// on timeout. The caller retries the whole navigation, never an individual
// wait.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := s.active(); err != nil {
		return err
	}

	if err := s.page.Navigate(ctx, url); err != nil {
		return fmt.Errorf("session: navigate %s: %w", url, err)
	}

	entryPredicate := fmt.Sprintf(`() => typeof window[%q] === 'function'`, s.settings.LoadEntryPoint)
	if err := s.page.WaitUntil(ctx, entryPredicate, s.settings.NavigationTimeout); err != nil {
		return &TimeoutError{Stage: "load entry point", Err: err}
	}

	containerPredicate := fmt.Sprintf(
		`() => { const c = document.querySelector(%q); return !!c && c.children.length > 0; }`,
		s.settings.ContainerSelector)
	if err := s.page.WaitUntil(ctx, containerPredicate, s.settings.NavigationTimeout); err != nil {
		return &TimeoutError{Stage: "module container", Err: err}
	}

	if err := settle(ctx, s.settings.SettleDelay); err != nil {
		return err
	}

	log.Printf("[Driver] navigated to %s", url)
	s.bus.Publish(eventbus.TopicSessionNavigated, eventbus.SourceDriver, map[string]string{"url": url})
	return nil
}

// InputResult reports which control SetInput actually touched.
type InputResult struct {
	Module string    `json:"module"`
	Label  string    `json:"label"`
	Kind   ParamKind `json:"kind"`
}

// setInputScript mutates the first control whose derived label contains the
// wanted substring (case-sensitive) and fires a change event so the host's
// reactive logic runs. Checkboxes coerce the value to a checked state.
const setInputScript = `(id, label, value) => {
	const node = document.getElementById(id);
	if (!node) return { missing: true };

	const labelFor = (el) => {
		let prev = el.previousSibling;
		while (prev) {
			const text = (prev.textContent || '').trim();
			if (text) return text;
			prev = prev.previousSibling;
		}
		return '';
	};

	const labels = [];
	for (const input of node.querySelectorAll('input')) {
		const derived = labelFor(input);
		labels.push(derived);
		if (derived.indexOf(label) === -1) continue;
		if (input.type === 'checkbox') {
			input.checked = (value === 'true' || value === '1' || value === 'on');
		} else {
			input.value = value;
		}
		input.dispatchEvent(new Event('change', { bubbles: true }));
		return { label: derived, kind: input.type || 'text' };
	}
	return { labels: labels };
}`

// SetInput resolves moduleRef, finds the first control whose label contains
// labelSubstring, and writes value into it. A failed lookup is a
// NotFoundError listing the labels the module does expose.
func (s *Session) SetInput(ctx context.Context, moduleRef, labelSubstring, value string) (InputResult, error) {
	if err := s.active(); err != nil {
		return InputResult{}, err
	}

	mod, err := s.Resolve(ctx, moduleRef)
	if err != nil {
		return InputResult{}, err
	}

	raw, err := s.page.Evaluate(ctx, setInputScript, mod.ID, labelSubstring, value)
	if err != nil {
		return InputResult{}, fmt.Errorf("session: set input on %s: %w", mod.Name, err)
	}

	var outcome struct {
		Missing bool     `json:"missing"`
		Label   *string  `json:"label"`
		Kind    string   `json:"kind"`
		Labels  []string `json:"labels"`
	}
	if err := json.Unmarshal(raw, &outcome); err != nil {
		return InputResult{}, fmt.Errorf("session: parse set-input result: %w", err)
	}
	if outcome.Missing {
		return InputResult{}, &NotFoundError{Kind: "module", Wanted: mod.ID}
	}
	if outcome.Label == nil {
		return InputResult{}, &NotFoundError{Kind: "input", Wanted: labelSubstring, Available: outcome.Labels}
	}

	result := InputResult{Module: mod.Name, Label: *outcome.Label, Kind: paramKind(outcome.Kind)}
	log.Printf("[Driver] set input %q on %s (%s)", result.Label, mod.Name, result.Kind)
	s.bus.Publish(eventbus.TopicSessionInput, eventbus.SourceDriver, result)
	return result, nil
}

// ButtonResult reports which button ClickButton actually pressed.
type ButtonResult struct {
	Module string `json:"module"`
	Text   string `json:"text"`
}

// clickButtonScript clicks the first button whose text contains the wanted
// substring, case-insensitive.
const clickButtonScript = `(id, text) => {
	const node = document.getElementById(id);
	if (!node) return { missing: true };

	const want = text.toLowerCase();
	const texts = [];
	for (const button of node.querySelectorAll('button')) {
		const label = (button.textContent || '').trim();
		texts.push(label);
		if (label.toLowerCase().indexOf(want) === -1) continue;
		button.click();
		return { text: label };
	}
	return { buttons: texts };
}`

// ClickButton resolves moduleRef and clicks the first button whose text
// contains textSubstring (case-insensitive). A failed lookup lists every
// button text the module exposes. The action settle delay gives host-side
// work triggered by the click a chance to run before the call returns.
func (s *Session) ClickButton(ctx context.Context, moduleRef, textSubstring string) (ButtonResult, error) {
	if err := s.active(); err != nil {
		return ButtonResult{}, err
	}

	mod, err := s.Resolve(ctx, moduleRef)
	if err != nil {
		return ButtonResult{}, err
	}

	raw, err := s.page.Evaluate(ctx, clickButtonScript, mod.ID, textSubstring)
	if err != nil {
		return ButtonResult{}, fmt.Errorf("session: click button on %s: %w", mod.Name, err)
	}

	var outcome struct {
		Missing bool     `json:"missing"`
		Text    *string  `json:"text"`
		Buttons []string `json:"buttons"`
	}
	if err := json.Unmarshal(raw, &outcome); err != nil {
		return ButtonResult{}, fmt.Errorf("session: parse click result: %w", err)
	}
	if outcome.Missing {
		return ButtonResult{}, &NotFoundError{Kind: "module", Wanted: mod.ID}
	}
	if outcome.Text == nil {
		return ButtonResult{}, &NotFoundError{Kind: "button", Wanted: textSubstring, Available: outcome.Buttons}
	}

	if err := settle(ctx, s.settings.ActionSettleDelay); err != nil {
		return ButtonResult{}, err
	}

	result := ButtonResult{Module: mod.Name, Text: *outcome.Text}
	log.Printf("[Driver] clicked %q on %s", result.Text, mod.Name)
	s.bus.Publish(eventbus.TopicSessionButton, eventbus.SourceDriver, result)
	return result, nil
}

// InjectFile attaches a local file to the module's file input. The selector
// matches on the id attribute rather than a CSS id, because fractional ids
// contain dots that would otherwise need escaping. The trailing settle delay
// is a documented approximation: mods reads files asynchronously and offers
// no completion signal.
func (s *Session) InjectFile(ctx context.Context, moduleRef, path string) (Module, error) {
	if err := s.active(); err != nil {
		return Module{}, err
	}

	mod, err := s.Resolve(ctx, moduleRef)
	if err != nil {
		return Module{}, err
	}

	selector := fmt.Sprintf(`[id=%q] input[type="file"]`, mod.ID)
	if err := s.page.AttachFile(ctx, selector, path); err != nil {
		return Module{}, fmt.Errorf("session: attach %s to %s: %w", path, mod.Name, err)
	}

	if err := settle(ctx, s.settings.FileSettleDelay); err != nil {
		return Module{}, err
	}

	log.Printf("[Driver] injected %s into %s", path, mod.Name)
	return mod, nil
}

// InjectProgram hands a full program document to the host's load entry point
// directly, bypassing navigation.
func (s *Session) InjectProgram(ctx context.Context, doc *program.Document) error {
	if err := s.active(); err != nil {
		return err
	}

	script := fmt.Sprintf(`(doc) => { window[%q](JSON.stringify(doc)); return true; }`, s.settings.LoadEntryPoint)
	if _, err := s.page.Evaluate(ctx, script, doc); err != nil {
		return fmt.Errorf("session: inject program: %w", err)
	}

	if err := settle(ctx, s.settings.SettleDelay); err != nil {
		return err
	}

	log.Printf("[Driver] injected program with %d modules", len(doc.Modules))
	s.bus.Publish(eventbus.TopicProgramInjected, eventbus.SourceDriver, map[string]int{"modules": len(doc.Modules)})
	return nil
}

// settle pauses for the configured delay. These pauses stand in for
// completion signals the host does not provide; they are best-effort waits,
// not guarantees.
func settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
