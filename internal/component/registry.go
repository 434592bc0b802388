package component

import (
	"slices"
	"sync"
	"time"

	"github.com/conneroisu/componentry/internal/lifecycle"
)

// Registry manages all registered components
type Registry struct {
	components map[string]*Component
	order      []string
	mutex      sync.RWMutex
	watchers   []chan Event
}

// Event represents a change in the component registry
type Event struct {
	Type      EventType
	ID        string
	Component *Component
	Timestamp time.Time
}

// EventType represents the type of registry event
type EventType int

const (
	EventTypeAdded EventType = iota
	EventTypeUpdated
	EventTypeRemoved
)

func (t EventType) String() string {
	switch t {
	case EventTypeAdded:
		return "added"
	case EventTypeUpdated:
		return "updated"
	case EventTypeRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// NewRegistry creates a new component registry
func NewRegistry() *Registry {
	return &Registry{
		components: make(map[string]*Component),
		watchers:   make([]chan Event, 0),
	}
}

// Register adds or replaces a component. It returns the component it
// replaced, if any.
func (r *Registry) Register(c *Component) *Component {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	eventType := EventTypeAdded
	previous, exists := r.components[c.ID()]
	if exists {
		eventType = EventTypeUpdated
	} else {
		r.order = append(r.order, c.ID())
	}

	r.components[c.ID()] = c
	r.notify(Event{Type: eventType, ID: c.ID(), Component: c, Timestamp: time.Now()})

	return previous
}

// Get retrieves a component by id
func (r *Registry) Get(id string) (*Component, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	c, exists := r.components[id]
	return c, exists
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.Get(id)
	return ok
}

// Hooks resolves the hook table of id for the lifecycle dispatcher.
func (r *Registry) Hooks(id string) (*lifecycle.Hooks, bool) {
	c, ok := r.Get(id)
	if !ok {
		return nil, false
	}
	return c.Hooks(), true
}

// IDs returns registered ids in registration order.
func (r *Registry) IDs() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return slices.Clone(r.order)
}

// All returns registered components in registration order.
func (r *Registry) All() []*Component {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	out := make([]*Component, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.components[id])
	}
	return out
}

// Remove removes a component from the registry
func (r *Registry) Remove(id string) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	c, exists := r.components[id]
	if !exists {
		return false
	}

	delete(r.components, id)
	r.order = slices.DeleteFunc(r.order, func(x string) bool { return x == id })
	r.notify(Event{Type: EventTypeRemoved, ID: id, Component: c, Timestamp: time.Now()})

	return true
}

func (r *Registry) notify(event Event) {
	for _, watcher := range r.watchers {
		select {
		case watcher <- event:
		default:
			// Skip if channel is full
		}
	}
}

// Watch returns a channel that receives registry events
func (r *Registry) Watch() <-chan Event {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ch := make(chan Event, 100)
	r.watchers = append(r.watchers, ch)
	return ch
}

// UnWatch removes a watcher channel and closes it
func (r *Registry) UnWatch(ch <-chan Event) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for i, watcher := range r.watchers {
		if watcher == ch {
			close(watcher)
			r.watchers = append(r.watchers[:i], r.watchers[i+1:]...)
			break
		}
	}
}

// Count returns the number of registered components
func (r *Registry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return len(r.components)
}
