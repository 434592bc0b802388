// Package renderer runs whole pages through the component runtime.
//
// Every page gets a fresh document, runtime and resource loader, so injected
// stylesheets and scripts are tracked per page. Fragments are shared through
// one cache per generation; Invalidate starts a new generation after the
// sources change.
package renderer

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/conneroisu/componentry/internal/component"
	"github.com/conneroisu/componentry/internal/config"
	"github.com/conneroisu/componentry/internal/dom"
	"github.com/conneroisu/componentry/internal/errors"
	"github.com/conneroisu/componentry/internal/loader"
	"github.com/conneroisu/componentry/internal/logging"
	"github.com/conneroisu/componentry/internal/runtime"
	"github.com/conneroisu/componentry/internal/template"
)

// PageRenderer renders pages containing component markers.
type PageRenderer struct {
	fetcher   loader.Fetcher
	markers   config.MarkersConfig
	maxDepth  int
	workers   int
	timeout   time.Duration
	handlers  *component.HandlerRegistry
	scripts   loader.ScriptRunner
	templates *template.Cache
	logger    logging.Logger

	mu         sync.RWMutex
	fragments  *loader.FragmentCache
	generation uint64
}

// Option configures a PageRenderer.
type Option func(*PageRenderer)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(r *PageRenderer) { r.logger = l }
}

// WithMarkers sets the marker attribute names.
func WithMarkers(m config.MarkersConfig) Option {
	return func(r *PageRenderer) { r.markers = m }
}

// WithMaxDepth bounds component nesting.
func WithMaxDepth(n int) Option {
	return func(r *PageRenderer) { r.maxDepth = n }
}

// WithConcurrency bounds parallel resource fetches per page.
func WithConcurrency(n int) Option {
	return func(r *PageRenderer) { r.workers = n }
}

// WithFetchTimeout bounds each fragment fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(r *PageRenderer) { r.timeout = d }
}

// WithHandlers sets the named handlers imported definitions resolve against.
func WithHandlers(h *component.HandlerRegistry) Option {
	return func(r *PageRenderer) { r.handlers = h }
}

// WithScriptRunner sets the runner for page scripts.
func WithScriptRunner(s loader.ScriptRunner) Option {
	return func(r *PageRenderer) { r.scripts = s }
}

// New returns a renderer fetching fragments through f.
func New(f loader.Fetcher, opts ...Option) *PageRenderer {
	r := &PageRenderer{
		fetcher:   f,
		markers:   config.DefaultMarkers(),
		maxDepth:  runtime.DefaultMaxDepth,
		workers:   8,
		handlers:  component.NewHandlerRegistry(),
		templates: template.NewCache(),
		logger:    logging.NewNop(),
		fragments: loader.NewFragmentCache(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.WithComponent("renderer")
	if r.scripts == nil {
		r.scripts = loader.LogRunner{Logger: r.logger}
	}
	return r
}

// FromConfig builds a renderer for cfg, fetching over HTTP when a base URL
// is configured and from the local root otherwise.
func FromConfig(cfg *config.Config, fsRoot loader.Fetcher, opts ...Option) (*PageRenderer, error) {
	f := fsRoot
	if cfg.Loader.BaseURL != "" {
		hf, err := loader.NewHTTPFetcher(cfg.Loader.BaseURL, cfg.Loader.Timeout)
		if err != nil {
			return nil, err
		}
		f = hf
	}
	base := []Option{
		WithMarkers(cfg.Markers),
		WithMaxDepth(cfg.Runtime.MaxDepth),
		WithConcurrency(cfg.Loader.Concurrency),
		WithFetchTimeout(cfg.Loader.Timeout),
	}
	return New(f, append(base, opts...)...), nil
}

// Handlers returns the handler registry shared by every page.
func (r *PageRenderer) Handlers() *component.HandlerRegistry { return r.handlers }

// Generation reports how many times the fragment cache was invalidated.
func (r *PageRenderer) Generation() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generation
}

// Invalidate drops every cached fragment.
func (r *PageRenderer) Invalidate() {
	r.mu.Lock()
	r.fragments = loader.NewFragmentCache()
	r.generation++
	gen := r.generation
	r.mu.Unlock()
	r.logger.Debug(context.Background(), "fragment cache invalidated", "generation", gen)
}

// Page is a rendered page.
type Page struct {
	Path       string
	HTML       string
	Markers    []runtime.Marker
	Components []string
	States     map[string]map[string]any
	Errors     []errors.ComponentError
	Duration   time.Duration
}

// Failed reports whether any component failed to load.
func (p *Page) Failed() bool { return len(p.Errors) > 0 }

// Render parses src, restores states when given, loads every component and
// returns the resulting document. Component failures are reported in
// Page.Errors; the returned error covers unparsable input only.
func (r *PageRenderer) Render(ctx context.Context, path string, src []byte, restore map[string]map[string]any) (*Page, error) {
	start := time.Now()
	doc, err := dom.Parse(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse page %s: %w", path, err)
	}

	rt, collector := r.runtime(doc)
	defer rt.Close()

	markers := rt.Discover(ctx, nil)
	if len(restore) > 0 {
		rt.Restore(restore)
	}
	if err := rt.Init(ctx); err != nil {
		r.logger.Warn(ctx, err, "page rendered with component errors", "page", path)
	}

	page := &Page{
		Path:       path,
		HTML:       doc.HTML(),
		Markers:    markers,
		Components: rt.Registry().IDs(),
		States:     rt.Snapshot(),
		Errors:     collector.Errors(),
		Duration:   time.Since(start),
	}
	r.logger.Info(ctx, "page rendered", "page", path,
		"components", len(page.Components), "errors", len(page.Errors), "duration", page.Duration)
	return page, nil
}

// Discover lists the markers of src without loading anything.
func (r *PageRenderer) Discover(ctx context.Context, src []byte) ([]runtime.Marker, error) {
	doc, err := dom.Parse(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	rt, _ := r.runtime(doc)
	return rt.Discover(ctx, nil), nil
}

func (r *PageRenderer) runtime(doc *dom.Document) (*runtime.Runtime, *errors.Collector) {
	r.mu.RLock()
	fragments := r.fragments
	r.mu.RUnlock()

	ld := loader.New(r.fetcher,
		loader.WithFragmentCache(fragments),
		loader.WithInjector(loader.DocumentInjector{Doc: doc}),
		loader.WithScriptRunner(r.scripts),
		loader.WithMaxConcurrency(r.workers),
		loader.WithTimeout(r.timeout),
		loader.WithLogger(r.logger),
	)
	collector := errors.NewCollector()
	rt := runtime.New(doc, ld,
		runtime.WithLogger(r.logger),
		runtime.WithMarkers(r.markers),
		runtime.WithMaxDepth(r.maxDepth),
		runtime.WithHandlers(r.handlers),
		runtime.WithTemplateCache(r.templates),
		runtime.WithCollector(collector),
	)
	return rt, collector
}
