// Package server is the development server: it renders pages through the
// component runtime, serves their assets and pushes live reloads over a
// websocket when sources change.
package server

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/conneroisu/componentry/internal/config"
	"github.com/conneroisu/componentry/internal/loader"
	"github.com/conneroisu/componentry/internal/logging"
	"github.com/conneroisu/componentry/internal/persist"
	"github.com/conneroisu/componentry/internal/renderer"
	"github.com/conneroisu/componentry/internal/watcher"
)

// Reserved routes.
const (
	RouteWebSocket = "/_componentry/ws"
	RouteHealth    = "/_componentry/health"
)

// Server serves pages with live reload capability.
type Server struct {
	config   *config.Config
	logger   logging.Logger
	files    fs.FS
	renderer *renderer.PageRenderer
	states   *persist.Store
	ownState bool
	hub      *Hub
	watcher  *watcher.FileWatcher
	started  time.Time

	httpServer   *http.Server
	serverMutex  sync.RWMutex
	shutdownOnce sync.Once
}

// UpdateMessage is sent to connected browsers.
type UpdateMessage struct {
	Type      string    `json:"type"`
	Target    string    `json:"target,omitempty"`
	Content   string    `json:"content,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Option configures a Server.
type Option func(*Server)

// WithFS serves pages from fsys instead of the configured root.
func WithFS(fsys fs.FS) Option {
	return func(s *Server) { s.files = fsys }
}

// WithRenderer replaces the page renderer.
func WithRenderer(r *renderer.PageRenderer) Option {
	return func(s *Server) { s.renderer = r }
}

// WithStateStore preserves page states in st. The caller keeps ownership.
func WithStateStore(st *persist.Store) Option {
	return func(s *Server) { s.states = st }
}

// New creates a development server for cfg.
func New(cfg *config.Config, logger logging.Logger, opts ...Option) (*Server, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{config: cfg, logger: logger.WithComponent("server")}
	for _, opt := range opts {
		opt(s)
	}
	if s.files == nil {
		s.files = os.DirFS(cfg.Loader.Root)
	}
	if s.renderer == nil {
		r, err := renderer.FromConfig(cfg, loader.NewFSFetcher(s.files), renderer.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("failed to create renderer: %w", err)
		}
		s.renderer = r
	}
	if s.states == nil && cfg.Development.StatePreservation {
		st, err := persist.Open(cfg.Development.StateDB, persist.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("failed to open state store: %w", err)
		}
		s.states = st
		s.ownState = true
	}
	s.hub = NewHub(s.logger)
	return s, nil
}

// Renderer returns the page renderer.
func (s *Server) Renderer() *renderer.PageRenderer { return s.renderer }

// Hub returns the live reload hub.
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(RouteWebSocket, s.handleWebSocket)
	mux.HandleFunc(RouteHealth, s.handleHealth)
	mux.HandleFunc("/", s.handlePage)
	return s.addMiddleware(mux)
}

// Start runs the hub, the file watcher when hot reload is enabled and the
// HTTP server. It blocks until the server stops.
func (s *Server) Start(ctx context.Context) error {
	s.started = time.Now()
	go s.hub.Run(ctx)

	if s.config.Development.HotReload {
		if err := s.setupFileWatcher(ctx); err != nil {
			s.logger.Warn(ctx, err, "hot reload disabled")
		}
	}

	s.serverMutex.Lock()
	s.httpServer = &http.Server{
		Addr:              s.config.Server.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := s.httpServer
	s.serverMutex.Unlock()

	s.logger.Info(ctx, "development server listening", "addr", "http://"+server.Addr,
		"root", s.config.Loader.Root)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func (s *Server) setupFileWatcher(ctx context.Context) error {
	fw, err := watcher.NewFileWatcher(s.config.Development.Debounce, s.logger)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	fw.AddFilter(watcher.PageAssetFilter)
	fw.AddFilter(watcher.NoHiddenFilter)
	fw.AddFilter(watcher.NoNodeModulesFilter)
	fw.AddHandler(s.handleFileChange)

	if err := fw.AddRecursive(s.config.Loader.Root); err != nil {
		fw.Stop()
		return fmt.Errorf("failed to watch %s: %w", s.config.Loader.Root, err)
	}
	if err := fw.Start(ctx); err != nil {
		fw.Stop()
		return err
	}
	s.watcher = fw
	return nil
}

// handleFileChange starts a new fragment generation and tells browsers to
// reload.
func (s *Server) handleFileChange(events []watcher.ChangeEvent) error {
	ctx := context.Background()
	for _, event := range events {
		s.logger.Debug(ctx, "file changed", "path", event.Path, "change", event.Type.String())
	}
	s.renderer.Invalidate()
	target := ""
	if len(events) == 1 {
		target = events[0].Path
	}
	s.hub.Broadcast(UpdateMessage{Type: "reload", Target: target, Timestamp: time.Now()})
	return nil
}

// Shutdown stops the watcher, closes every live reload connection, the
// state store and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "shutting down server")

		if s.watcher != nil {
			if err := s.watcher.Stop(); err != nil {
				s.logger.Warn(ctx, err, "failed to stop file watcher")
			}
		}
		s.hub.Close()

		s.serverMutex.RLock()
		server := s.httpServer
		s.serverMutex.RUnlock()
		if server != nil {
			shutdownErr = server.Shutdown(ctx)
		}

		if s.ownState && s.states != nil {
			if err := s.states.Close(); err != nil {
				s.logger.Warn(ctx, err, "failed to close state store")
			}
		}
	})
	return shutdownErr
}
