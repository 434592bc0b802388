package loader

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// FragmentCache maps fragment references to their raw HTML for the lifetime
// of the cache. Concurrent misses for the same reference share one fetch.
type FragmentCache struct {
	mu      sync.RWMutex
	entries map[string]string
	group   singleflight.Group
}

// NewFragmentCache returns an empty cache.
func NewFragmentCache() *FragmentCache {
	return &FragmentCache{entries: make(map[string]string)}
}

// Lookup returns a cached fragment.
func (c *FragmentCache) Lookup(ref string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	html, ok := c.entries[ref]
	return html, ok
}

// Put stores a fragment.
func (c *FragmentCache) Put(ref, html string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[ref] = html
}

// Len reports the number of cached fragments.
func (c *FragmentCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Get returns the fragment for ref, calling fetch on a miss. Failures are
// not cached. The shared fetch is detached from the cancellation of the
// caller that started it; each caller still stops waiting when its own ctx
// is done.
func (c *FragmentCache) Get(ctx context.Context, ref string, fetch func(context.Context, string) ([]byte, error)) (string, error) {
	if html, ok := c.Lookup(ref); ok {
		return html, nil
	}
	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(ref, func() (any, error) {
		if html, ok := c.Lookup(ref); ok {
			return html, nil
		}
		body, err := fetch(detached, ref)
		if err != nil {
			return "", err
		}
		html := string(body)
		c.Put(ref, html)
		return html, nil
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}
