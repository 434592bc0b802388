package runtime

import (
	"context"
	"maps"
	"slices"

	"github.com/conneroisu/componentry/internal/component"
	"github.com/conneroisu/componentry/internal/errors"
	"github.com/conneroisu/componentry/internal/lifecycle"
)

// Register creates the controller for id from def. An existing controller
// for id is replaced and its subscriptions released; its state is kept.
func (r *Runtime) Register(id string, def component.Definition) *component.Component {
	c := component.New(id, def, r)
	if previous := r.registry.Register(c); previous != nil {
		previous.Release()
	}
	c.Init()
	return c
}

func (r *Runtime) ensure(id string) *component.Component {
	if c, ok := r.registry.Get(id); ok {
		return c
	}
	return r.Register(id, component.Definition{})
}

// RegisterHook replaces the hook for phase on id, registering id first if
// needed.
func (r *Runtime) RegisterHook(id string, phase lifecycle.Phase, h component.EventHandler) *component.Component {
	c := r.ensure(id)
	c.SetHook(phase, h)
	return c
}

// ApplyMixin composes m onto id, registering id first if needed.
func (r *Runtime) ApplyMixin(id string, m component.Mixin) *component.Component {
	c := r.ensure(id)
	c.ApplyMixin(m)
	return c
}

// ImportComponent fetches a JSON or YAML definition document.
func (r *Runtime) ImportComponent(ctx context.Context, url string) (*component.DefinitionSpec, error) {
	body, err := r.loader.Fetch(ctx, url)
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeImport, "failed to import component", err).WithPath(url)
	}
	spec, err := component.ParseSpec(body, component.FormatOf(url))
	if err != nil {
		return nil, err
	}
	return spec, nil
}

// Apply registers id from an imported definition, resolving its handler
// names against the runtime handlers.
func (r *Runtime) Apply(id string, spec *component.DefinitionSpec) (*component.Component, error) {
	def, err := r.handlers.Resolve(spec)
	if err != nil {
		return nil, err
	}
	return r.Register(id, def), nil
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
