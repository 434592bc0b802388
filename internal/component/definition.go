package component

import (
	"github.com/conneroisu/componentry/internal/lifecycle"
	"github.com/conneroisu/componentry/internal/state"
)

// Method is a named component method.
type Method func(c *Component, args ...any) (any, error)

// EventHandler is a lifecycle hook bound to a component.
type EventHandler func(c *Component, ev lifecycle.Event) error

// ComputeFunc derives a computed value from component state.
type ComputeFunc func(c *Component, st map[string]any) (any, error)

// WatchFunc observes a state path.
type WatchFunc func(c *Component, newValue, oldValue any, change state.Change)

// Computed is a computed property declaration. Empty Deps, or "*",
// recomputes on every change.
type Computed struct {
	Fn   ComputeFunc
	Deps []string
}

// Definition declares a component. One definition may be applied to many
// ids.
type Definition struct {
	Path     string
	Params   map[string]any
	State    map[string]any
	Computed map[string]Computed
	Watch    map[string]WatchFunc
	Methods  map[string]Method
	Events   map[lifecycle.Phase]EventHandler
	// OnEvent receives every lifecycle phase after its specific hook.
	OnEvent EventHandler
}

// Mixin adds reusable behaviour to a registered component. A hook or method
// that already exists runs first, then the mixin's version, whose result
// is returned.
type Mixin struct {
	Events  map[lifecycle.Phase]EventHandler
	OnEvent EventHandler
	Methods map[string]Method
}
