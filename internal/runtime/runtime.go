// Package runtime is the component orchestrator. A Runtime owns one
// document together with its state store, bus, component registry and
// template cache, discovers declarative component markers and drives every
// component through its load cycle.
//
// A Runtime is confined to one goroutine at a time. Only the loader it
// fetches through may be shared.
package runtime

import (
	"context"
	"maps"
	"slices"

	"github.com/conneroisu/componentry/internal/bus"
	"github.com/conneroisu/componentry/internal/component"
	"github.com/conneroisu/componentry/internal/config"
	"github.com/conneroisu/componentry/internal/dom"
	"github.com/conneroisu/componentry/internal/errors"
	"github.com/conneroisu/componentry/internal/lifecycle"
	"github.com/conneroisu/componentry/internal/loader"
	"github.com/conneroisu/componentry/internal/logging"
	"github.com/conneroisu/componentry/internal/state"
	"github.com/conneroisu/componentry/internal/template"
)

// DefaultMaxDepth bounds nested marker discovery.
const DefaultMaxDepth = 16

// Runtime is the explicit context every subsystem hangs off.
type Runtime struct {
	doc        *dom.Document
	store      *state.Store
	bus        *bus.Bus
	loader     *loader.Loader
	templates  *template.Cache
	registry   *component.Registry
	handlers   *component.HandlerRegistry
	dispatcher *lifecycle.Dispatcher
	scripts    loader.ScriptRunner
	collector  *errors.Collector
	errs       *errors.Handler
	logger     logging.Logger

	markers  config.MarkersConfig
	maxDepth int

	ctx       context.Context
	teardown  []func()
	installed bool
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(r *Runtime) { r.logger = l }
}

// WithMarkers sets the marker attribute names.
func WithMarkers(m config.MarkersConfig) Option {
	return func(r *Runtime) { r.markers = m }
}

// WithMaxDepth bounds nested marker discovery. Zero disables the bound.
func WithMaxDepth(n int) Option {
	return func(r *Runtime) { r.maxDepth = n }
}

// WithTemplateCache shares compiled templates.
func WithTemplateCache(c *template.Cache) Option {
	return func(r *Runtime) { r.templates = c }
}

// WithHandlers sets the named handlers used by imported definitions.
func WithHandlers(h *component.HandlerRegistry) Option {
	return func(r *Runtime) { r.handlers = h }
}

// WithScriptRunner sets the runner for inline fragment scripts.
func WithScriptRunner(s loader.ScriptRunner) Option {
	return func(r *Runtime) { r.scripts = s }
}

// WithCollector records component failures in c.
func WithCollector(c *errors.Collector) Option {
	return func(r *Runtime) { r.collector = c }
}

// New returns a runtime over doc that fetches through ld.
func New(doc *dom.Document, ld *loader.Loader, opts ...Option) *Runtime {
	r := &Runtime{
		doc:      doc,
		loader:   ld,
		registry: component.NewRegistry(),
		markers:  config.DefaultMarkers(),
		maxDepth: DefaultMaxDepth,
		logger:   logging.NewNop(),
		ctx:      context.Background(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.templates == nil {
		r.templates = template.NewCache()
	}
	if r.handlers == nil {
		r.handlers = component.NewHandlerRegistry()
	}
	if r.scripts == nil {
		r.scripts = ld.Scripts()
	}

	r.logger = r.logger.WithComponent("runtime")
	r.errs = errors.NewHandler(r.logger)
	r.bus = bus.New(bus.WithLogger(r.logger))
	r.dispatcher = lifecycle.NewDispatcher(doc, r.registry.Hooks, r.logger)
	r.store = state.NewStore(state.WithLogger(r.logger), state.WithEmitter(r.dispatcher))
	if doc.OnListenerPanic == nil {
		doc.OnListenerPanic = func(eventType string, recovered any) {
			r.logger.Error(context.Background(), nil, "listener panicked",
				"event", eventType, "panic", recovered)
		}
	}
	return r
}

// Document returns the document.
func (r *Runtime) Document() *dom.Document { return r.doc }

// Store returns the state store.
func (r *Runtime) Store() *state.Store { return r.store }

// Bus returns the event bus.
func (r *Runtime) Bus() *bus.Bus { return r.bus }

// Loader returns the resource loader.
func (r *Runtime) Loader() *loader.Loader { return r.loader }

// Registry returns the component registry.
func (r *Runtime) Registry() *component.Registry { return r.registry }

// Handlers returns the named handler registry.
func (r *Runtime) Handlers() *component.HandlerRegistry { return r.handlers }

// Component returns a registered component.
func (r *Runtime) Component(id string) (*component.Component, bool) {
	return r.registry.Get(id)
}

// Trigger delivers a lifecycle phase to component id.
func (r *Runtime) Trigger(id string, phase lifecycle.Phase, data any) {
	r.dispatcher.Trigger(id, phase, data)
}

// GetState returns the state of id.
func (r *Runtime) GetState(id string) map[string]any { return r.store.GetState(id) }

// SetState merges partial into the state of id.
func (r *Runtime) SetState(id string, partial map[string]any) map[string]any {
	return r.store.SetState(id, partial)
}

// ResetState clears the state of id.
func (r *Runtime) ResetState(id string) { r.store.ResetState(id) }

// Watch observes path in the state of id.
func (r *Runtime) Watch(id, path string, fn state.WatchFunc) func() {
	return r.store.Watch(id, path, fn)
}

// AddComputed adds a computed property to id.
func (r *Runtime) AddComputed(id, name string, fn state.ComputeFunc, deps ...string) func() {
	return r.store.AddComputed(id, name, fn, deps...)
}

// GetComputed returns a computed value of id.
func (r *Runtime) GetComputed(id, name string) (any, bool) {
	return r.store.GetComputed(id, name)
}

// Bind binds path in the state of id to el.
func (r *Runtime) Bind(id, path string, el *dom.Element, opts state.BindOptions) func() {
	return r.store.BindToElement(id, path, el, opts)
}

// Snapshot copies every component state.
func (r *Runtime) Snapshot() map[string]map[string]any { return r.store.Snapshot() }

// Restore merges saved states back into the store.
func (r *Runtime) Restore(states map[string]map[string]any) {
	for _, id := range slices.Sorted(maps.Keys(states)) {
		r.store.SetState(id, states[id])
	}
}
