// Package bus is a named-channel publish/subscribe bus with priority
// ordering, one-shot subscriptions and predicate filters. It is independent
// of any single component's lifecycle hooks.
package bus

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/conneroisu/componentry/internal/logging"
)

// Handler receives an emitted payload. Its result is collected by Emit.
type Handler func(data any) (any, error)

// Filter vetoes delivery of a payload to one subscriber.
type Filter func(data any) bool

// Options tune a subscription.
type Options struct {
	// Once removes the subscription after its first delivered call.
	// Calls vetoed by Filter do not count.
	Once bool
	// Priority orders subscribers; higher runs first, ties keep
	// registration order.
	Priority int
	Filter   Filter
}

// Handle identifies a subscription for Off.
type Handle uint64

type subscription struct {
	handle  Handle
	fn      Handler
	opts    Options
	removed bool
}

// Bus dispatches events to subscribers. It is safe for concurrent use;
// handlers run without the bus lock held and may call back into the bus.
type Bus struct {
	mu        sync.Mutex
	listeners map[string][]*subscription
	next      Handle
	logger    logging.Logger
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger used for failing subscribers.
func WithLogger(l logging.Logger) Option {
	return func(b *Bus) { b.logger = l }
}

// New returns an empty bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		listeners: make(map[string][]*subscription),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// On subscribes fn to event.
func (b *Bus) On(event string, fn Handler, opts Options) Handle {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.next++
	sub := &subscription{handle: b.next, fn: fn, opts: opts}
	list := append(b.listeners[event], sub)
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].opts.Priority > list[j].opts.Priority
	})
	b.listeners[event] = list
	return sub.handle
}

// Once subscribes fn for a single delivered call.
func (b *Bus) Once(event string, fn Handler, opts Options) Handle {
	opts.Once = true
	return b.On(event, fn, opts)
}

// Off removes one subscription. It reports whether it was found.
func (b *Bus) Off(event string, h Handle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.removeLocked(event, h)
}

func (b *Bus) removeLocked(event string, h Handle) bool {
	list := b.listeners[event]
	for i, sub := range list {
		if sub.handle != h {
			continue
		}
		sub.removed = true
		list = append(list[:i:i], list[i+1:]...)
		if len(list) == 0 {
			delete(b.listeners, event)
		} else {
			b.listeners[event] = list
		}
		return true
	}
	return false
}

// OffAll removes every subscription of event.
func (b *Bus) OffAll(event string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.listeners[event] {
		sub.removed = true
	}
	delete(b.listeners, event)
}

// Emit delivers data to the subscribers of event in priority order and
// returns their results. A failing subscriber contributes nil and does not
// stop delivery. One-shot subscribers are removed as they are called, so a
// re-entrant Emit does not reach them twice.
func (b *Bus) Emit(event string, data any) []any {
	b.mu.Lock()
	list := append([]*subscription(nil), b.listeners[event]...)
	b.mu.Unlock()

	results := []any{}
	for _, sub := range list {
		if b.isRemoved(sub) {
			continue
		}
		if sub.opts.Filter != nil && !b.accepts(event, sub, data) {
			continue
		}
		if sub.opts.Once {
			b.mu.Lock()
			b.removeLocked(event, sub.handle)
			b.mu.Unlock()
		}

		result, err := b.call(sub, data)
		if err != nil {
			b.logger.Error(context.Background(), err, "bus subscriber failed", "event", event)
			results = append(results, nil)
			continue
		}
		results = append(results, result)
	}
	return results
}

func (b *Bus) isRemoved(sub *subscription) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return sub.removed
}

func (b *Bus) accepts(event string, sub *subscription, data any) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error(context.Background(), fmt.Errorf("panic: %v", r), "bus filter failed", "event", event)
			ok = false
		}
	}()
	return sub.opts.Filter(data)
}

func (b *Bus) call(sub *subscription, data any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return sub.fn(data)
}

// HasListeners reports whether event has subscribers.
func (b *Bus) HasListeners(event string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners[event]) > 0
}

// Count returns the number of subscribers of event.
func (b *Bus) Count(event string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners[event])
}

// Events lists events with subscribers in sorted order.
func (b *Bus) Events() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.listeners))
	for e := range b.listeners {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// Clear removes every subscription.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, list := range b.listeners {
		for _, sub := range list {
			sub.removed = true
		}
	}
	b.listeners = make(map[string][]*subscription)
}
