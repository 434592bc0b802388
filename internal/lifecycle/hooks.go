package lifecycle

import "errors"

// Event is one lifecycle notification delivered to hooks.
type Event struct {
	ComponentID string
	Phase       Phase
	Data        any
}

// HookFunc handles a lifecycle notification.
type HookFunc func(ev Event) error

// Middleware wraps a hook.
type Middleware func(next HookFunc) HookFunc

func noopHook(Event) error { return nil }

// After returns middleware that runs next and then fn. An error from next
// stops the chain.
func After(fn HookFunc) Middleware {
	return func(next HookFunc) HookFunc {
		return func(ev Event) error {
			if err := next(ev); err != nil {
				return err
			}
			return fn(ev)
		}
	}
}

// Hooks is the per-component dispatch table: one chain per phase plus the
// catch-all onEvent chain.
type Hooks struct {
	phases  [numPhases]Chain[HookFunc]
	onEvent Chain[HookFunc]
}

// NewHooks returns an empty table.
func NewHooks() *Hooks {
	return &Hooks{}
}

// Set replaces the hook for p.
func (h *Hooks) Set(p Phase, fn HookFunc) {
	if !p.Valid() {
		return
	}
	h.phases[p].Set(fn)
}

// Use adds middleware to the hook for p.
func (h *Hooks) Use(p Phase, m Middleware) {
	if !p.Valid() {
		return
	}
	h.phases[p].Use(m)
}

// Mix composes fn after the current hook for p.
func (h *Hooks) Mix(p Phase, fn HookFunc) {
	h.Use(p, After(fn))
}

// SetOnEvent replaces the catch-all hook.
func (h *Hooks) SetOnEvent(fn HookFunc) {
	h.onEvent.Set(fn)
}

// MixOnEvent composes fn after the catch-all hook.
func (h *Hooks) MixOnEvent(fn HookFunc) {
	h.onEvent.Use(After(fn))
}

// Has reports whether a hook is registered for p.
func (h *Hooks) Has(p Phase) bool {
	return p.Valid() && h.phases[p].Defined()
}

// HasOnEvent reports whether a catch-all hook is registered.
func (h *Hooks) HasOnEvent() bool {
	return h.onEvent.Defined()
}

// Fire runs the phase hook and then the catch-all hook. Both run even when
// the first fails; their errors are joined.
func (h *Hooks) Fire(ev Event) error {
	var errs []error
	if h.Has(ev.Phase) {
		if err := h.phases[ev.Phase].Build(noopHook)(ev); err != nil {
			errs = append(errs, err)
		}
	}
	if h.onEvent.Defined() {
		if err := h.onEvent.Build(noopHook)(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
