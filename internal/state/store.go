// Package state is the per-component reactive state store: merge-based
// updates, change diffing, path watchers, computed properties and DOM
// bindings.
//
// A Store is confined to one goroutine. Re-entrant calls from callbacks are
// allowed; every SetState computes its own before and after snapshots.
package state

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/conneroisu/componentry/internal/lifecycle"
	"github.com/conneroisu/componentry/internal/logging"
	"github.com/conneroisu/componentry/internal/values"
)

// Wildcard subscribes a watcher or computed property to every change.
const Wildcard = "*"

// Emitter receives the lifecycle notifications the store produces.
type Emitter interface {
	Trigger(id string, phase lifecycle.Phase, data any)
}

// StateChange is the payload of the stateChange notification.
type StateChange struct {
	State         map[string]any `json:"state"`
	PreviousState map[string]any `json:"previousState"`
	Changes       []Change       `json:"changes"`
}

// StateReset is the payload of the stateReset notification.
type StateReset struct {
	PreviousState map[string]any `json:"previousState"`
	Changes       []Change       `json:"changes"`
}

// ComputedChange is the payload of the computedChange notification.
type ComputedChange struct {
	Name     string `json:"name"`
	OldValue any    `json:"oldValue"`
	NewValue any    `json:"newValue"`
}

// WatchFunc observes a path. Exact watchers receive the leaf values,
// ancestor watchers the enclosing values with change.Nested set, and
// wildcard watchers the whole new and previous state.
type WatchFunc func(newValue, oldValue any, change Change)

type watcher struct {
	fn WatchFunc
}

// Store holds the state of every component.
type Store struct {
	logger   logging.Logger
	emitter  Emitter
	states   map[string]map[string]any
	watchers map[string]map[string][]*watcher
	computed map[string]*computedSet
	bindings map[string]map[string][]*binding
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for callback failures.
func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithEmitter sets the lifecycle sink.
func WithEmitter(e Emitter) Option {
	return func(s *Store) { s.emitter = e }
}

// NewStore returns an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		logger:   logging.NewNop(),
		states:   make(map[string]map[string]any),
		watchers: make(map[string]map[string][]*watcher),
		computed: make(map[string]*computedSet),
		bindings: make(map[string]map[string][]*binding),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetEmitter replaces the lifecycle sink.
func (s *Store) SetEmitter(e Emitter) { s.emitter = e }

// GetState returns the state of id, creating an empty one on first access.
// The returned map must be treated as read-only.
func (s *Store) GetState(id string) map[string]any {
	st, ok := s.states[id]
	if !ok {
		st = map[string]any{}
		s.states[id] = st
	}
	return st
}

// Has reports whether id has state.
func (s *Store) Has(id string) bool {
	_, ok := s.states[id]
	return ok
}

// IDs returns the ids with state in sorted order.
func (s *Store) IDs() []string {
	ids := make([]string, 0, len(s.states))
	for id := range s.states {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Snapshot deep-copies every component state.
func (s *Store) Snapshot() map[string]map[string]any {
	out := make(map[string]map[string]any, len(s.states))
	for id, st := range s.states {
		out[id] = CloneMap(st)
	}
	return out
}

// SetState deep-merges partial into the state of id and fans the resulting
// changes out to computed properties, watchers and bindings, then emits
// stateChange. The merged state is always stored; a merge that changes
// nothing triggers nothing.
func (s *Store) SetState(id string, partial map[string]any) map[string]any {
	previous := s.GetState(id)
	updated := DeepMerge(CloneMap(previous), partial)
	changes := Diff(previous, updated)
	s.states[id] = updated
	if len(changes) == 0 {
		return updated
	}

	s.runComputed(id, changes)
	s.runWatchers(id, changes, previous, updated)
	s.updateBindings(id, changes)
	s.emit(id, lifecycle.PhaseStateChange, StateChange{
		State:         updated,
		PreviousState: previous,
		Changes:       changes,
	})
	return updated
}

// ResetState empties the state of id, drops its computed properties,
// watchers and bindings and emits stateReset.
func (s *Store) ResetState(id string) {
	previous := s.GetState(id)
	s.states[id] = map[string]any{}
	changes := Diff(previous, map[string]any{})
	s.dropSubscriptions(id)
	s.emit(id, lifecycle.PhaseStateReset, StateReset{PreviousState: previous, Changes: changes})
}

// Delete forgets id entirely without emitting anything.
func (s *Store) Delete(id string) {
	delete(s.states, id)
	s.dropSubscriptions(id)
}

func (s *Store) dropSubscriptions(id string) {
	delete(s.computed, id)
	delete(s.watchers, id)
	for _, list := range s.bindings[id] {
		for _, b := range list {
			b.detach()
		}
	}
	delete(s.bindings, id)
}

// Watch registers fn for path, or for every change with Wildcard. The
// returned function unsubscribes.
func (s *Store) Watch(id, path string, fn WatchFunc) func() {
	byPath, ok := s.watchers[id]
	if !ok {
		byPath = make(map[string][]*watcher)
		s.watchers[id] = byPath
	}
	w := &watcher{fn: fn}
	byPath[path] = append(byPath[path], w)
	return func() {
		byPath, ok := s.watchers[id]
		if !ok {
			return
		}
		list := byPath[path]
		for i, x := range list {
			if x == w {
				byPath[path] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) watchersFor(id, path string) []*watcher {
	list := s.watchers[id][path]
	if len(list) == 0 {
		return nil
	}
	return append([]*watcher(nil), list...)
}

func (s *Store) runWatchers(id string, changes []Change, previous, updated map[string]any) {
	if len(s.watchers[id]) == 0 {
		return
	}
	for i := range changes {
		change := changes[i]

		for _, w := range s.watchersFor(id, change.Path) {
			s.guard(id, "watcher", change.Path, func() {
				w.fn(change.NewValue, change.OldValue, change)
			})
		}

		for _, w := range s.watchersFor(id, Wildcard) {
			s.guard(id, "wildcard watcher", change.Path, func() {
				w.fn(updated, previous, change)
			})
		}

		for _, parent := range ancestors(change.Path) {
			list := s.watchersFor(id, parent)
			if len(list) == 0 {
				continue
			}
			newValue, _ := values.Lookup(updated, parent)
			oldValue, _ := values.Lookup(previous, parent)
			nested := change
			record := Change{
				Path:     parent,
				OldValue: oldValue,
				NewValue: newValue,
				Kind:     ChangeUpdate,
				Nested:   &nested,
			}
			for _, w := range list {
				s.guard(id, "watcher", parent, func() {
					w.fn(newValue, oldValue, record)
				})
			}
		}
	}
}

// ancestors returns the proper prefixes of a dotted path, shortest first.
func ancestors(path string) []string {
	var out []string
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			out = append(out, path[:i])
		}
	}
	return out
}

// isAffected reports whether a change at changed concerns dep.
func isAffected(dep, changed string) bool {
	return dep == Wildcard || changed == dep || strings.HasPrefix(changed, dep+".")
}

func (s *Store) emit(id string, phase lifecycle.Phase, data any) {
	if s.emitter == nil {
		return
	}
	s.emitter.Trigger(id, phase, data)
}

// guard runs fn, logging a recovered panic instead of propagating it.
func (s *Store) guard(id, what, path string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(context.Background(), fmt.Errorf("panic: %v", r), what+" failed",
				"component", id, "path", path)
		}
	}()
	fn()
}
