package runtime

import (
	"context"
	"maps"
	"strings"
	"time"

	"github.com/conneroisu/componentry/internal/component"
	"github.com/conneroisu/componentry/internal/dom"
	"github.com/conneroisu/componentry/internal/errors"
	"github.com/conneroisu/componentry/internal/lifecycle"
	"github.com/conneroisu/componentry/internal/loader"
)

// MetaKey is the reserved template field describing the owning component.
const MetaKey = "$component"

// LoadComponent fetches the fragment at path, renders it with params into
// the element with the given id and runs its inline scripts. The component
// is registered on first load. A failure fires the error phase, replaces
// the element content with the retry fallback and is returned.
func (r *Runtime) LoadComponent(ctx context.Context, id, path string, params map[string]any) (*dom.Element, error) {
	if params == nil {
		params = map[string]any{}
	}
	el := r.doc.GetElementByID(id)
	if el == nil {
		err := errors.ErrElementNotFound(id)
		r.logger.Error(ctx, err, "component load aborted", "path", path)
		return nil, err
	}

	c, ok := r.registry.Get(id)
	if !ok {
		c = r.Register(id, component.Definition{Path: path, Params: params})
	}
	c.SetSource(path, params)
	r.advance(ctx, c, component.StatusBeforeLoad)
	r.Trigger(id, lifecycle.PhaseBeforeLoad, BeforeLoadData{ComponentPath: path, Params: params})

	html, err := r.loader.Fragment(ctx, path)
	if err != nil {
		return nil, r.fail(ctx, c, err)
	}
	r.advance(ctx, c, component.StatusLoaded)
	r.Trigger(id, lifecycle.PhaseLoad, LoadData{HTML: html})

	if err := r.loader.LoadComponentResources(ctx, path); err != nil {
		return nil, r.fail(ctx, c, err)
	}

	data := maps.Clone(params)
	data[MetaKey] = map[string]any{"id": id, "path": path}
	r.advance(ctx, c, component.StatusBeforeRender)
	r.Trigger(id, lifecycle.PhaseBeforeRender, BeforeRenderData{TemplateData: data})

	tmpl, err := r.templates.Get(html)
	if err != nil {
		return nil, r.fail(ctx, c, errors.NewTemplateError("invalid fragment template", err).
			WithComponent(id).WithPath(path))
	}
	if el = r.doc.GetElementByID(id); el == nil {
		return nil, r.fail(ctx, c, errors.ErrElementNotFound(id))
	}
	if err := el.SetInnerHTML(tmpl.Render(data)); err != nil {
		return nil, r.fail(ctx, c, errors.NewTemplateError("rendered fragment is not valid HTML", err).
			WithComponent(id).WithPath(path))
	}
	r.runInlineScripts(ctx, id, el)

	r.advance(ctx, c, component.StatusRendered)
	r.Trigger(id, lifecycle.PhaseRender, RenderData{Element: el})
	el.DispatchEvent(dom.NewCustomEvent(EventLoaded, LoadedDetail{ComponentID: id, ComponentPath: path}))

	r.logger.Debug(ctx, "component rendered", "component", id, "path", path)
	return el, nil
}

func (r *Runtime) advance(ctx context.Context, c *component.Component, to component.Status) {
	if err := c.Transition(to); err != nil {
		r.logger.Warn(ctx, err, "unexpected component status", "component", c.ID())
	}
}

func (r *Runtime) fail(ctx context.Context, c *component.Component, err error) error {
	id, path := c.ID(), c.Path()
	r.errs.Handle(ctx, err, "component", id, "path", path)

	r.advance(ctx, c, component.StatusErrored)
	r.Trigger(id, lifecycle.PhaseError, ErrorData{Error: err, ComponentPath: path})

	if r.collector != nil {
		r.collector.Add(errors.ComponentError{
			Component: id,
			Path:      path,
			Message:   err.Error(),
			Severity:  errors.SeverityOf(err),
			Timestamp: time.Now(),
		})
	}

	if el := r.doc.GetElementByID(id); el != nil {
		fallback, ferr := component.RenderFallback(ctx, id, path, c.Params())
		if ferr == nil {
			ferr = el.SetInnerHTML(fallback)
		}
		if ferr != nil {
			r.logger.Error(ctx, ferr, "error fallback failed", "component", id)
		}
	}
	return err
}

// runInlineScripts hands the inline scripts of a rendered fragment to the
// script runner in document order.
func (r *Runtime) runInlineScripts(ctx context.Context, id string, el *dom.Element) {
	for _, script := range el.QuerySelectorAll("script") {
		if script.HasAttribute("src") || !executable(script.GetAttribute("type")) {
			continue
		}
		err := r.scripts.Run(ctx, loader.Script{Source: id, Code: script.TextContent(), Inline: true})
		if err != nil {
			r.logger.Error(ctx, err, "inline script failed", "component", id)
		}
	}
}

func executable(typ string) bool {
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "", "module", "text/javascript", "application/javascript", "text/x-template":
		return true
	}
	return false
}

// Preload warms the fragment cache and loads the resources of paths.
// Failures are logged only.
func (r *Runtime) Preload(ctx context.Context, paths []string) {
	r.loader.Preload(ctx, paths)
}

// LoadAll loads every component marker in the document. Markers without an
// id are skipped; the errors of failed loads are joined.
func (r *Runtime) LoadAll(ctx context.Context) error {
	var errs []error
	for _, el := range r.scope(nil, r.markers.Component) {
		m, ok := r.loadable(ctx, el, r.markers.Component)
		if !ok {
			continue
		}
		if _, err := r.LoadComponent(ctx, m.ID, m.Path, m.Params); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// loadNested loads the nested markers under el.
func (r *Runtime) loadNested(ctx context.Context, el *dom.Element) {
	for _, child := range el.QuerySelectorAll("[" + r.markers.Nested + "]") {
		m, ok := r.loadable(ctx, child, r.markers.Nested)
		if !ok {
			continue
		}
		_, _ = r.LoadComponent(ctx, m.ID, m.Path, m.Params)
	}
}

// Position values accepted by Include. Any other value is a selector for
// the element to insert before.
const (
	PositionAppend  = "append"
	PositionPrepend = "prepend"
)

// Include creates or updates the container containerID under parentID and
// loads path into it.
func (r *Runtime) Include(ctx context.Context, parentID, containerID, path string, params map[string]any, position string) (*dom.Element, error) {
	parent := r.doc.GetElementByID(parentID)
	if parent == nil {
		err := errors.ErrParentNotFound(parentID)
		r.logger.Error(ctx, err, "include aborted", "container", containerID)
		return nil, err
	}

	container := r.doc.GetElementByID(containerID)
	created := container == nil
	if created {
		container = r.doc.CreateElement("div")
		container.SetID(containerID)
	}
	container.SetAttribute(r.markers.Nested, path)
	for _, key := range sortedKeys(params) {
		container.SetAttribute(r.markers.ParamPrefix+key, encodeParamValue(params[key]))
	}

	if created {
		switch position {
		case "", PositionAppend:
			parent.AppendChild(container)
		case PositionPrepend:
			parent.Prepend(container)
		default:
			if target := parent.QuerySelector(position); target != nil && target.Parent() == parent {
				parent.InsertBefore(container, target)
			} else {
				parent.AppendChild(container)
			}
		}
	}

	return r.LoadComponent(ctx, containerID, path, params)
}

// Remove fires beforeRemove, destroys and unregisters the component, drops
// its state and removes its element. It reports false when no element has
// the id.
func (r *Runtime) Remove(id string) bool {
	el := r.doc.GetElementByID(id)
	if el == nil {
		r.logger.Warn(r.ctx, errors.ErrElementNotFound(id), "component not removed")
		return false
	}

	r.Trigger(id, lifecycle.PhaseBeforeRemove, map[string]any{})
	if c, ok := r.registry.Get(id); ok {
		c.Destroy()
		r.registry.Remove(id)
	}
	r.store.Delete(id)
	el.Remove()
	return true
}

// Retry loads a registered component again from its last path and params.
func (r *Runtime) Retry(ctx context.Context, id string) (*dom.Element, error) {
	c, ok := r.registry.Get(id)
	if !ok {
		return nil, errors.NewValidationError(errors.ErrCodeComponentMissing,
			"component "+id+" is not registered").WithComponent(id)
	}
	return r.LoadComponent(ctx, id, c.Path(), c.Params())
}
