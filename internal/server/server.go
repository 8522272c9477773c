// Package server is the tool router: it maps MCP tool calls onto the
// session driver, the program codec and the module catalog, and runs the
// local HTTP server the browser session navigates against.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/TheBeachLab/mods-mcp/internal/browser"
	"github.com/TheBeachLab/mods-mcp/internal/catalog"
	"github.com/TheBeachLab/mods-mcp/internal/config"
	"github.com/TheBeachLab/mods-mcp/internal/eventbus"
	"github.com/TheBeachLab/mods-mcp/internal/session"
	"github.com/TheBeachLab/mods-mcp/internal/storage"
	"github.com/TheBeachLab/mods-mcp/internal/version"
)

// Options wires a Server together. PageFactory may be overridden in tests to
// avoid launching a real browser.
type Options struct {
	Settings    config.Settings
	Paths       config.Paths
	Files       storage.Files
	Catalog     *catalog.Catalog
	Bus         *eventbus.Bus
	PageFactory func() (session.Page, error)
}

// Server owns the single logical session and the HTTP side services.
type Server struct {
	settings    config.Settings
	paths       config.Paths
	files       storage.Files
	catalog     *catalog.Catalog
	bus         *eventbus.Bus
	pageFactory func() (session.Page, error)

	mu      sync.Mutex
	session *session.Session

	httpServer *http.Server
}

// New creates a server. The browser is not launched here; the first
// load_program call brings the session up.
func New(opts Options) *Server {
	s := &Server{
		settings:    opts.Settings,
		paths:       opts.Paths,
		files:       opts.Files,
		catalog:     opts.Catalog,
		bus:         opts.Bus,
		pageFactory: opts.PageFactory,
	}
	if s.files == nil {
		s.files = storage.NewLocal()
	}
	if s.pageFactory == nil {
		s.pageFactory = func() (session.Page, error) {
			return browser.Launch(browser.Options{
				Headless:    s.settings.Headless,
				DownloadDir: s.paths.Downloads,
			})
		}
	}
	return s
}

// ensureSession returns the active session, launching the browser on first
// use.
func (s *Server) ensureSession() (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		return s.session, nil
	}

	page, err := s.pageFactory()
	if err != nil {
		return nil, fmt.Errorf("server: start browser session: %w", err)
	}
	s.session = session.New(page, s.settings, s.bus)
	log.Printf("[Server] browser session started")
	return s.session, nil
}

// currentSession returns the active session or ErrNoSession. Operations that
// mutate an already-loaded program use this instead of ensureSession: a
// session with no program is as useless to them as no session at all.
func (s *Server) currentSession() (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, session.ErrNoSession
	}
	return s.session, nil
}

// Run serves MCP over stdio until ctx is cancelled or the client hangs up.
func (s *Server) Run(ctx context.Context) error {
	impl := &mcp.Implementation{Name: "mods-mcp", Version: version.String()}
	mcpServer := mcp.NewServer(impl, nil)
	s.registerTools(mcpServer)

	log.Printf("[Server] serving MCP over stdio")
	return mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// StartHTTP serves the mods static tree and the /events feed on the
// configured listen address. It returns once the listener is running.
func (s *Server) StartHTTP() error {
	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.Dir(s.settings.ModsDir)))
	mux.HandleFunc("/events", s.handleEvents)

	s.httpServer = &http.Server{
		Addr:              s.settings.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[Server] http server error: %v", err)
			errCh <- err
		}
	}()

	// Give an immediately-failing listener (port in use) a moment to report.
	select {
	case err := <-errCh:
		return err
	case <-time.After(100 * time.Millisecond):
		log.Printf("[Server] serving %s on http://%s", s.settings.ModsDir, s.settings.ListenAddr)
		return nil
	}
}

// Shutdown tears down the session and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	sess := s.session
	s.session = nil
	s.mu.Unlock()

	if sess != nil {
		if err := sess.Close(); err != nil {
			log.Printf("[Server] session close: %v", err)
		}
	}
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// programURL composes the navigation target for a program path relative to
// the programs directory.
func (s *Server) programURL(path string) string {
	return fmt.Sprintf("http://%s/?program=%s", s.settings.ListenAddr, url.QueryEscape(path))
}
