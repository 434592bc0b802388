package runtime

import (
	"context"

	"github.com/conneroisu/componentry/internal/component"
	"github.com/conneroisu/componentry/internal/dom"
)

// Init installs the document listeners and the mutation observer, then
// loads every marker in the document and flushes the resulting mutations.
// Calling Init again only reloads.
func (r *Runtime) Init(ctx context.Context) error {
	r.ctx = ctx
	if !r.installed {
		r.install()
	}
	err := r.LoadAll(ctx)
	r.Flush(ctx)
	return err
}

func (r *Runtime) install() {
	r.installed = true
	r.teardown = append(r.teardown,
		r.doc.AddEventListener(EventMessage, r.routeMessage),
		r.doc.AddEventListener(EventLoaded, r.onLoaded),
		r.doc.AddEventListener("click", r.onClick),
		r.doc.Observe(r.observe),
	)
}

// Close removes the listeners and observer installed by Init.
func (r *Runtime) Close() {
	for _, off := range r.teardown {
		off()
	}
	r.teardown = nil
	r.installed = false
}

// Flush delivers queued DOM mutations. Markers added since the last flush
// are loaded, which may queue further mutations; Flush returns once the
// queue is drained.
func (r *Runtime) Flush(ctx context.Context) {
	r.ctx = ctx
	r.doc.FlushMutations()
}

func (r *Runtime) observe(records []dom.MutationRecord) {
	attr := r.markers.Component
	for _, rec := range records {
		for _, el := range rec.Added {
			candidates := el.QuerySelectorAll("[" + attr + "]")
			if el.HasAttribute(attr) {
				candidates = append([]*dom.Element{el}, candidates...)
			}
			for _, cand := range candidates {
				m, ok := r.loadable(r.ctx, cand, attr)
				if !ok {
					continue
				}
				_, _ = r.LoadComponent(r.ctx, m.ID, m.Path, m.Params)
			}
		}
	}
}

func (r *Runtime) onLoaded(ev *dom.Event) {
	detail, ok := ev.Detail.(LoadedDetail)
	if !ok {
		return
	}
	if el := r.doc.GetElementByID(detail.ComponentID); el != nil {
		r.loadNested(r.ctx, el)
	}
}

// onClick retries a failed component from its fallback button.
func (r *Runtime) onClick(ev *dom.Event) {
	for el := ev.Target; el != nil; el = el.Parent() {
		id, ok := el.LookupAttribute(component.RetryAttr)
		if !ok {
			continue
		}
		path := el.GetAttribute(component.RetryPathAttr)
		params, _ := ParseParamValue(el.GetAttribute(component.RetryParamsAttr)).(map[string]any)
		_, _ = r.LoadComponent(r.ctx, id, path, params)
		return
	}
}
