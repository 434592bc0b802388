package state

import (
	"context"
	"fmt"

	"github.com/conneroisu/componentry/internal/lifecycle"
)

// ComputeFunc derives a value from the current state.
type ComputeFunc func(state map[string]any) (any, error)

type computedProp struct {
	fn          ComputeFunc
	deps        []string
	value       any
	initialized bool
}

// computedSet keeps computed properties in registration order.
type computedSet struct {
	order  []string
	byName map[string]*computedProp
}

// AddComputed registers name, evaluates it immediately and re-evaluates it
// whenever a change touches one of deps. No deps, or Wildcard among them,
// means every change. The returned function removes the property.
func (s *Store) AddComputed(id, name string, fn ComputeFunc, deps ...string) func() {
	set, ok := s.computed[id]
	if !ok {
		set = &computedSet{byName: make(map[string]*computedProp)}
		s.computed[id] = set
	}
	if _, exists := set.byName[name]; !exists {
		set.order = append(set.order, name)
	}
	prop := &computedProp{fn: fn, deps: append([]string(nil), deps...)}
	set.byName[name] = prop

	s.calculate(id, name)

	return func() {
		set, ok := s.computed[id]
		if !ok || set.byName[name] != prop {
			return
		}
		delete(set.byName, name)
		for i, n := range set.order {
			if n == name {
				set.order = append(set.order[:i:i], set.order[i+1:]...)
				break
			}
		}
	}
}

// GetComputed returns the cached value of a computed property.
func (s *Store) GetComputed(id, name string) (any, bool) {
	set, ok := s.computed[id]
	if !ok {
		return nil, false
	}
	prop, ok := set.byName[name]
	if !ok {
		return nil, false
	}
	return prop.value, true
}

// ComputedNames lists the computed properties of id in registration order.
func (s *Store) ComputedNames(id string) []string {
	set, ok := s.computed[id]
	if !ok {
		return nil
	}
	return append([]string(nil), set.order...)
}

func (s *Store) runComputed(id string, changes []Change) {
	set, ok := s.computed[id]
	if !ok {
		return
	}
	for _, name := range append([]string(nil), set.order...) {
		prop, ok := set.byName[name]
		if !ok {
			continue
		}
		if needsRecompute(prop.deps, changes) {
			s.calculate(id, name)
		}
	}
}

func needsRecompute(deps []string, changes []Change) bool {
	if len(deps) == 0 {
		return true
	}
	for _, dep := range deps {
		for _, c := range changes {
			if isAffected(dep, c.Path) {
				return true
			}
		}
	}
	return false
}

// calculate evaluates name and emits computedChange when the value differs
// from the cached one or on first evaluation.
func (s *Store) calculate(id, name string) {
	set, ok := s.computed[id]
	if !ok {
		return
	}
	prop, ok := set.byName[name]
	if !ok {
		return
	}

	next, err := s.evaluate(prop.fn, s.GetState(id))
	if err != nil {
		s.logger.Error(context.Background(), err, "computed property failed",
			"component", id, "name", name)
		return
	}
	if prop.initialized && Equal(prop.value, next) {
		return
	}

	old := prop.value
	prop.value = next
	prop.initialized = true
	s.emit(id, lifecycle.PhaseComputedChange, ComputedChange{Name: name, OldValue: old, NewValue: next})
}

func (s *Store) evaluate(fn ComputeFunc, st map[string]any) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(st)
}
