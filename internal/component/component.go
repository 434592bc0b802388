// Package component holds the per-instance controller of a rendered
// fragment: its status, lifecycle hook table, methods and the subscriptions
// it owns in the state store and on the bus.
package component

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/conneroisu/componentry/internal/bus"
	"github.com/conneroisu/componentry/internal/dom"
	"github.com/conneroisu/componentry/internal/errors"
	"github.com/conneroisu/componentry/internal/lifecycle"
	"github.com/conneroisu/componentry/internal/state"
)

// Host is the runtime a component lives in.
type Host interface {
	Document() *dom.Document
	Store() *state.Store
	Trigger(id string, phase lifecycle.Phase, data any)
	SendMessage(sender, receiver, action string, data any) bus.Message
	OnComponentAction(action string, fn bus.Handler, opts bus.Options) bus.Handle
	OffComponentAction(action string, h bus.Handle) bool
	LoadComponent(ctx context.Context, id, path string, params map[string]any) (*dom.Element, error)
	Include(ctx context.Context, parentID, containerID, path string, params map[string]any, position string) (*dom.Element, error)
}

type actionHandle struct {
	action string
	handle bus.Handle
}

// Component is the controller of one component instance.
type Component struct {
	id     string
	host   Host
	def    Definition
	path   string
	params map[string]any
	status Status

	hooks   *lifecycle.Hooks
	methods map[string]*lifecycle.Chain[Method]

	unwatch  []func()
	computed []func()
	unbind   []func()
	actions  []actionHandle
}

// New builds the controller for id. Hooks and methods from def are
// installed; subscriptions are added by Init once the component is
// registered.
func New(id string, def Definition, host Host) *Component {
	c := &Component{
		id:      id,
		host:    host,
		def:     def,
		path:    def.Path,
		params:  maps.Clone(def.Params),
		hooks:   lifecycle.NewHooks(),
		methods: make(map[string]*lifecycle.Chain[Method]),
	}
	if c.params == nil {
		c.params = make(map[string]any)
	}
	for phase, h := range def.Events {
		c.hooks.Set(phase, c.bindHook(h))
	}
	if def.OnEvent != nil {
		c.hooks.SetOnEvent(c.bindHook(def.OnEvent))
	}
	for name, m := range def.Methods {
		c.SetMethod(name, m)
	}
	return c
}

// Init installs the computed properties and watchers of the definition and
// seeds its initial state.
func (c *Component) Init() {
	for _, name := range slices.Sorted(maps.Keys(c.def.Computed)) {
		cp := c.def.Computed[name]
		if cp.Fn == nil {
			continue
		}
		fn := cp.Fn
		c.AddComputed(name, func(st map[string]any) (any, error) { return fn(c, st) }, cp.Deps...)
	}
	for _, path := range slices.Sorted(maps.Keys(c.def.Watch)) {
		fn := c.def.Watch[path]
		if fn == nil {
			continue
		}
		c.Watch(path, func(newValue, oldValue any, ch state.Change) { fn(c, newValue, oldValue, ch) })
	}
	if c.def.State != nil {
		c.SetState(c.def.State)
	}
}

func (c *Component) bindHook(h EventHandler) lifecycle.HookFunc {
	return func(ev lifecycle.Event) error { return h(c, ev) }
}

// ID returns the component id, which is also its element id.
func (c *Component) ID() string { return c.id }

// Path returns the fragment path of the last load.
func (c *Component) Path() string { return c.path }

// Params returns the load parameters.
func (c *Component) Params() map[string]any { return c.params }

// SetSource records the fragment path and parameters of a load.
func (c *Component) SetSource(path string, params map[string]any) {
	c.path = path
	c.params = maps.Clone(params)
	if c.params == nil {
		c.params = make(map[string]any)
	}
}

// Status returns the current status.
func (c *Component) Status() Status { return c.status }

// Transition moves the component to status to.
func (c *Component) Transition(to Status) error {
	if !CanTransition(c.status, to) {
		return errors.NewInternalError(errors.ErrCodeInternalError,
			fmt.Sprintf("invalid status transition %s -> %s", c.status, to), nil).WithComponent(c.id)
	}
	c.status = to
	return nil
}

// Rendered reports whether the last load attempt rendered.
func (c *Component) Rendered() bool { return c.status == StatusRendered }

// Hooks returns the lifecycle hook table.
func (c *Component) Hooks() *lifecycle.Hooks { return c.hooks }

// SetHook replaces the hook for phase.
func (c *Component) SetHook(phase lifecycle.Phase, h EventHandler) {
	c.hooks.Set(phase, c.bindHook(h))
}

// SetOnEvent replaces the catch-all hook.
func (c *Component) SetOnEvent(h EventHandler) {
	c.hooks.SetOnEvent(c.bindHook(h))
}

// SetMethod replaces a method.
func (c *Component) SetMethod(name string, m Method) {
	chain := &lifecycle.Chain[Method]{}
	chain.Set(m)
	c.methods[name] = chain
}

// HasMethod reports whether name is callable.
func (c *Component) HasMethod(name string) bool {
	return c.methods[name].Defined()
}

// Methods lists method names in sorted order.
func (c *Component) Methods() []string {
	return slices.Sorted(maps.Keys(c.methods))
}

// Call invokes a method.
func (c *Component) Call(name string, args ...any) (any, error) {
	chain, ok := c.methods[name]
	if !ok || !chain.Defined() {
		return nil, errors.NewValidationError(errors.ErrCodeUnknownHandler,
			fmt.Sprintf("component has no method %q", name)).WithComponent(c.id)
	}
	return chain.Build(noopMethod)(c, args...)
}

func noopMethod(*Component, ...any) (any, error) { return nil, nil }

// ApplyMixin composes m onto the component.
func (c *Component) ApplyMixin(m Mixin) {
	for phase, h := range m.Events {
		c.hooks.Mix(phase, c.bindHook(h))
	}
	if m.OnEvent != nil {
		c.hooks.MixOnEvent(c.bindHook(m.OnEvent))
	}
	for name, fn := range m.Methods {
		chain, ok := c.methods[name]
		if !ok {
			chain = &lifecycle.Chain[Method]{}
			c.methods[name] = chain
		}
		chain.Use(thenMethod(fn))
	}
}

func thenMethod(fn Method) func(next Method) Method {
	return func(next Method) Method {
		return func(c *Component, args ...any) (any, error) {
			if _, err := next(c, args...); err != nil {
				return nil, err
			}
			return fn(c, args...)
		}
	}
}

// Element returns the component's element, or nil when it is not in the
// document.
func (c *Component) Element() *dom.Element {
	return c.host.Document().GetElementByID(c.id)
}

// Query returns the first element under the component matching sel.
func (c *Component) Query(sel string) *dom.Element {
	el := c.Element()
	if el == nil {
		return nil
	}
	return el.QuerySelector(sel)
}

// QueryAll returns every element under the component matching sel.
func (c *Component) QueryAll(sel string) []*dom.Element {
	el := c.Element()
	if el == nil {
		return nil
	}
	return el.QuerySelectorAll(sel)
}

// Param returns a load parameter or def when it is absent.
func (c *Component) Param(name string, def any) any {
	if v, ok := c.params[name]; ok && v != nil {
		return v
	}
	return def
}

// State returns the component state.
func (c *Component) State() map[string]any {
	return c.host.Store().GetState(c.id)
}

// SetState merges partial into the component state.
func (c *Component) SetState(partial map[string]any) map[string]any {
	return c.host.Store().SetState(c.id, partial)
}

// Watch observes path and records the subscription for Destroy.
func (c *Component) Watch(path string, fn state.WatchFunc) func() {
	off := c.host.Store().Watch(c.id, path, fn)
	c.unwatch = append(c.unwatch, off)
	return off
}

// AddComputed adds a computed property and records it for Destroy.
func (c *Component) AddComputed(name string, fn state.ComputeFunc, deps ...string) func() {
	off := c.host.Store().AddComputed(c.id, name, fn, deps...)
	c.computed = append(c.computed, off)
	return off
}

// Computed returns a computed value.
func (c *Component) Computed(name string) (any, bool) {
	return c.host.Store().GetComputed(c.id, name)
}

// Bind binds path to el and records the binding for Destroy.
func (c *Component) Bind(path string, el *dom.Element, opts state.BindOptions) func() {
	off := c.host.Store().BindToElement(c.id, path, el, opts)
	c.unbind = append(c.unbind, off)
	return off
}

// SendMessage sends a message from this component. An empty receiver
// broadcasts.
func (c *Component) SendMessage(receiver, action string, data any) bus.Message {
	return c.host.SendMessage(c.id, receiver, action, data)
}

// OnMessage subscribes to action messages sent by other components.
func (c *Component) OnMessage(action string, fn func(msg bus.Message) (any, error), opts bus.Options) bus.Handle {
	h := c.host.OnComponentAction(action, func(data any) (any, error) {
		msg, ok := data.(bus.Message)
		if !ok || msg.Sender == c.id {
			return nil, nil
		}
		return fn(msg)
	}, opts)
	c.actions = append(c.actions, actionHandle{action: action, handle: h})
	return h
}

// Include loads a nested component into containerID under this component.
func (c *Component) Include(ctx context.Context, containerID, path string, params map[string]any, position string) (*dom.Element, error) {
	return c.host.Include(ctx, c.id, containerID, path, params, position)
}

// Reload loads the component again from its path and parameters.
func (c *Component) Reload(ctx context.Context) (*dom.Element, error) {
	return c.host.LoadComponent(ctx, c.id, c.path, c.params)
}

// Release drops every subscription the component owns without touching its
// state.
func (c *Component) Release() {
	for _, off := range c.unwatch {
		off()
	}
	for _, off := range c.computed {
		off()
	}
	for _, off := range c.unbind {
		off()
	}
	for _, a := range c.actions {
		c.host.OffComponentAction(a.action, a.handle)
	}
	c.unwatch, c.computed, c.unbind, c.actions = nil, nil, nil, nil
}

// Destroy releases subscriptions, resets state and fires destroyed.
func (c *Component) Destroy() {
	if c.status == StatusDestroyed {
		return
	}
	c.Release()
	c.host.Store().ResetState(c.id)
	c.host.Trigger(c.id, lifecycle.PhaseDestroyed, map[string]any{})
	c.status = StatusDestroyed
}
