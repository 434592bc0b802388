// Package template compiles the component fragment template language.
//
// The syntax is small:
//
//	{{path}}                 HTML-escaped substitution
//	{{@path}}                raw substitution
//	{{#if path}}..{{/if}}    conditional
//	{{#unless path}}..{{/unless}}
//	{{#each path}}..{{/each}} iteration; {{this}}, {{this.x}} and {{@index}}
//	                          refer to the current item
//
// Blocks nest to any depth. Missing paths render as the empty string.
package template

import (
	"fmt"
	"strings"
	"sync"
)

// Template is a compiled template. It is immutable and safe for concurrent
// use.
type Template struct {
	source string
	nodes  []node
}

// Compile parses source.
func Compile(source string) (*Template, error) {
	nodes, err := parse(source)
	if err != nil {
		return nil, err
	}
	return &Template{source: source, nodes: nodes}, nil
}

// MustCompile is Compile that panics on error.
func MustCompile(source string) *Template {
	t, err := Compile(source)
	if err != nil {
		panic(err)
	}
	return t
}

// Source returns the text the template was compiled from.
func (t *Template) Source() string { return t.source }

// Render executes the template against data.
func (t *Template) Render(data any) string {
	var b strings.Builder
	b.Grow(len(t.source))
	renderNodes(t.nodes, &scope{root: data, item: data}, &b)
	return b.String()
}

// Render compiles source and renders it immediately.
func Render(source string, data any) (string, error) {
	t, err := Compile(source)
	if err != nil {
		return "", err
	}
	return t.Render(data), nil
}

// Cache memoises compiled templates keyed by their source text. Entries are
// never evicted.
type Cache struct {
	mu        sync.RWMutex
	templates map[string]*Template
	hits      int
	misses    int
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{templates: make(map[string]*Template)}
}

// Get returns the compiled template for source, compiling it on first use.
// Compile errors are not cached.
func (c *Cache) Get(source string) (*Template, error) {
	c.mu.RLock()
	t, ok := c.templates[source]
	c.mu.RUnlock()
	if ok {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		return t, nil
	}

	t, err := Compile(source)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.misses++
	if existing, ok := c.templates[source]; ok {
		return existing, nil
	}
	c.templates[source] = t
	return t, nil
}

// Render renders source through the cache.
func (c *Cache) Render(source string, data any) (string, error) {
	t, err := c.Get(source)
	if err != nil {
		return "", err
	}
	return t.Render(data), nil
}

// Len reports the number of cached templates.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.templates)
}

// Stats returns cache hits and misses.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

// Error reports a malformed template.
type Error struct {
	Message string
	Offset  int
	Line    int
	Column  int
}

func (e *Error) Error() string {
	return fmt.Sprintf("template:%d:%d: %s", e.Line, e.Column, e.Message)
}

func newError(src string, offset int, msg string) *Error {
	line := 1 + strings.Count(src[:offset], "\n")
	col := offset + 1
	if nl := strings.LastIndexByte(src[:offset], '\n'); nl >= 0 {
		col = offset - nl
	}
	return &Error{Message: msg, Offset: offset, Line: line, Column: col}
}
