package component

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// Attributes carried by the retry button of the error fallback.
const (
	RetryAttr       = "data-component-retry"
	RetryPathAttr   = "data-component-path"
	RetryParamsAttr = "data-component-params"
)

// Fallback renders the in-place error UI shown when a component fails to
// load. Its retry button carries everything needed to load it again.
func Fallback(id, path string, params map[string]any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		encoded := "{}"
		if len(params) > 0 {
			b, err := json.Marshal(params)
			if err != nil {
				return err
			}
			encoded = string(b)
		}

		var sb strings.Builder
		sb.WriteString(`<div class="component-error" role="alert">`)
		sb.WriteString(`<h3>Component Error</h3>`)
		sb.WriteString(`<p>Failed to load: `)
		sb.WriteString(templ.EscapeString(path))
		sb.WriteString(`</p><button type="button" `)
		sb.WriteString(RetryAttr + `="` + templ.EscapeString(id) + `" `)
		sb.WriteString(RetryPathAttr + `="` + templ.EscapeString(path) + `" `)
		sb.WriteString(RetryParamsAttr + `="` + templ.EscapeString(encoded) + `">Retry</button>`)
		sb.WriteString(`</div>`)

		_, err := io.WriteString(w, sb.String())
		return err
	})
}

// RenderFallback renders Fallback to a string.
func RenderFallback(ctx context.Context, id, path string, params map[string]any) (string, error) {
	var sb strings.Builder
	if err := Fallback(id, path, params).Render(ctx, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}
