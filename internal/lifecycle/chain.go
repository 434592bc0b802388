package lifecycle

// Chain is a base handler plus ordered middleware. Each middleware receives
// the handler built so far and decides whether and when to call it.
type Chain[F any] struct {
	base       F
	hasBase    bool
	middleware []func(next F) F
}

// Set replaces the whole chain with fn.
func (c *Chain[F]) Set(fn F) {
	c.base = fn
	c.hasBase = true
	c.middleware = nil
}

// Use appends middleware. Later middleware wraps earlier links.
func (c *Chain[F]) Use(m func(next F) F) {
	c.middleware = append(c.middleware, m)
}

// Defined reports whether anything was registered.
func (c *Chain[F]) Defined() bool {
	return c != nil && (c.hasBase || len(c.middleware) > 0)
}

// Build composes the chain. fallback stands in for a missing base.
func (c *Chain[F]) Build(fallback F) F {
	h := fallback
	if c.hasBase {
		h = c.base
	}
	for _, m := range c.middleware {
		h = m(h)
	}
	return h
}

// Len reports the number of links including the base.
func (c *Chain[F]) Len() int {
	n := len(c.middleware)
	if c.hasBase {
		n++
	}
	return n
}
