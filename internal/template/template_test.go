package template

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	type user struct {
		Name  string `json:"name"`
		Admin bool   `json:"admin"`
	}

	tests := []struct {
		name     string
		template string
		data     any
		want     string
	}{
		{
			name:     "escaped interpolation",
			template: "Hello {{name}}",
			data:     map[string]any{"name": "<b>Bo</b>"},
			want:     "Hello &lt;b&gt;Bo&lt;/b&gt;",
		},
		{
			name:     "raw interpolation",
			template: "{{@html}}",
			data:     map[string]any{"html": "<b>Bo</b>"},
			want:     "<b>Bo</b>",
		},
		{
			name:     "all reserved characters",
			template: "{{v}}",
			data:     map[string]any{"v": `&<>"'`},
			want:     "&amp;&lt;&gt;&quot;&#39;",
		},
		{
			name:     "each over strings",
			template: "{{#each items}}<li>{{this}}</li>{{/each}}",
			data:     map[string]any{"items": []any{"a", "b"}},
			want:     "<li>a</li><li>b</li>",
		},
		{
			name:     "each over empty list",
			template: "{{#each items}}<li>{{this}}</li>{{/each}}",
			data:     map[string]any{"items": []any{}},
			want:     "",
		},
		{
			name:     "each over non array",
			template: "{{#each items}}x{{/each}}",
			data:     map[string]any{"items": "abc"},
			want:     "",
		},
		{
			name:     "each with index and property",
			template: "{{#each users}}{{@index}}:{{this.name}};{{/each}}",
			data:     map[string]any{"users": []user{{Name: "a"}, {Name: "b"}}},
			want:     "0:a;1:b;",
		},
		{
			name:     "root paths inside each",
			template: "{{#each items}}{{prefix}}{{this}}{{/each}}",
			data:     map[string]any{"prefix": "-", "items": []any{1, 2}},
			want:     "-1-2",
		},
		{
			name:     "nested each",
			template: "{{#each rows}}[{{#each this.cells}}{{this}}{{/each}}]{{/each}}",
			data: map[string]any{"rows": []any{
				map[string]any{"cells": []any{1, 2}},
				map[string]any{"cells": []any{3}},
			}},
			want: "[12][3]",
		},
		{
			name:     "if and unless",
			template: "{{#if user.admin}}admin{{/if}}{{#unless user.admin}}guest{{/unless}}",
			data:     map[string]any{"user": user{Name: "x", Admin: true}},
			want:     "admin",
		},
		{
			name:     "if inside each",
			template: "{{#each xs}}{{#if this.on}}{{this.n}}{{/if}}{{/each}}",
			data: map[string]any{"xs": []any{
				map[string]any{"on": true, "n": 1},
				map[string]any{"on": false, "n": 2},
			}},
			want: "1",
		},
		{
			name:     "missing paths are empty",
			template: "[{{a.b.c}}][{{@nope}}][{{#if gone}}x{{/if}}]",
			data:     map[string]any{"a": map[string]any{}},
			want:     "[][][]",
		},
		{
			name:     "numbers and slices stringify",
			template: "{{n}} {{f}} {{list}}",
			data:     map[string]any{"n": 3.0, "f": 2.5, "list": []any{"a", "b"}},
			want:     "3 2.5 a,b",
		},
		{
			name:     "index outside each",
			template: "[{{@index}}]",
			data:     nil,
			want:     "[]",
		},
		{
			name:     "whitespace inside tags",
			template: "{{ name }}{{# if name }}!{{/ if }}",
			data:     map[string]any{"name": "x"},
			want:     "x!",
		},
		{
			name:     "single braces pass through",
			template: "a { b } c",
			data:     nil,
			want:     "a { b } c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.template, tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name     string
		template string
		line     int
		column   int
		contains string
	}{
		{"unterminated", "ab{{name", 1, 3, "unterminated"},
		{"empty tag", "{{ }}", 1, 1, "empty tag"},
		{"unclosed block", "x\n  {{#if a}}y", 2, 3, "unclosed"},
		{"stray close", "{{/each}}", 1, 1, "unexpected"},
		{"mismatched close", "{{#if a}}{{/each}}", 1, 10, "does not close"},
		{"block without argument", "{{#each}}{{/each}}", 1, 1, "exactly one argument"},
		{"unknown block", "{{#with a}}{{/with}}", 1, 1, "unknown block"},
		{"bad path", "{{a..b}}", 1, 1, "invalid path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.template)
			require.Error(t, err)

			var tmplErr *Error
			require.True(t, errors.As(err, &tmplErr))
			assert.Equal(t, tt.line, tmplErr.Line)
			assert.Equal(t, tt.column, tmplErr.Column)
			assert.Contains(t, tmplErr.Error(), tt.contains)
		})
	}
}

func TestTemplateReuse(t *testing.T) {
	tmpl := MustCompile("<p>{{msg}}</p>")
	assert.Equal(t, "<p>one</p>", tmpl.Render(map[string]any{"msg": "one"}))
	assert.Equal(t, "<p>two</p>", tmpl.Render(map[string]any{"msg": "two"}))
	assert.Equal(t, "<p>{{msg}}</p>", tmpl.Source())

	assert.Panics(t, func() { MustCompile("{{#if x}}") })
}

func TestCache(t *testing.T) {
	c := NewCache()

	a, err := c.Get("{{x}}")
	require.NoError(t, err)
	b, err := c.Get("{{x}}")
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = c.Get("{{#if}}")
	assert.Error(t, err)
	assert.Equal(t, 1, c.Len(), "failed compiles are not cached")

	out, err := c.Render("<i>{{x}}</i>", map[string]any{"x": 1})
	require.NoError(t, err)
	assert.Equal(t, "<i>1</i>", out)

	hits, misses := c.Stats()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 2, misses)
}
