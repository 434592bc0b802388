//go:build property

package template

import (
	"html"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestTemplateProperties checks escaping and raw passthrough for arbitrary
// input.
func TestTemplateProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(4242)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("escaped output contains no reserved characters", prop.ForAll(
		func(s string) bool {
			out := MustCompile("{{v}}").Render(map[string]any{"v": s})
			return !strings.ContainsAny(out, `<>"'`)
		},
		gen.AnyString(),
	))

	properties.Property("escaping round-trips through unescape", prop.ForAll(
		func(s string) bool {
			out := MustCompile("{{v}}").Render(map[string]any{"v": s})
			return html.UnescapeString(out) == s
		},
		gen.AnyString(),
	))

	properties.Property("raw output is byte identical", prop.ForAll(
		func(s string) bool {
			return MustCompile("{{@v}}").Render(map[string]any{"v": s}) == s
		},
		gen.AnyString(),
	))

	properties.Property("text without delimiters renders verbatim", prop.ForAll(
		func(s string) bool {
			if strings.Contains(s, "{{") {
				return true
			}
			out, err := Render(s, nil)
			return err == nil && out == s
		},
		gen.AnyString(),
	))

	properties.Property("each renders one copy per item", prop.ForAll(
		func(items []string) bool {
			list := make([]any, len(items))
			for i, s := range items {
				list[i] = s
			}
			out := MustCompile("{{#each xs}}|{{/each}}").Render(map[string]any{"xs": list})
			return len(out) == len(items)
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}
