package lifecycle

import (
	"context"
	"fmt"

	"github.com/conneroisu/componentry/internal/dom"
	"github.com/conneroisu/componentry/internal/logging"
)

// Detail is the payload of the DOM custom events fired for lifecycle phases.
type Detail struct {
	ComponentID string `json:"componentId"`
	Data        any    `json:"data"`
}

// Lookup returns the hook table of a registered component.
type Lookup func(id string) (*Hooks, bool)

// Dispatcher delivers lifecycle notifications.
type Dispatcher struct {
	doc    *dom.Document
	lookup Lookup
	logger logging.Logger
}

// NewDispatcher builds a dispatcher over doc. lookup resolves component ids.
func NewDispatcher(doc *dom.Document, lookup Lookup, logger logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Dispatcher{doc: doc, lookup: lookup, logger: logger}
}

// Trigger delivers phase to component id: first its hooks, then a bubbling
// DOM event "component:<phase>" on its element. Unregistered ids are
// ignored. Hook failures are logged and never interrupt delivery.
func (d *Dispatcher) Trigger(id string, phase Phase, data any) {
	hooks, ok := d.lookup(id)
	if !ok {
		return
	}

	ev := Event{ComponentID: id, Phase: phase, Data: data}
	if err := d.fire(hooks, ev); err != nil {
		d.logger.Error(context.Background(), err, "lifecycle hook failed",
			"component", id, "phase", phase.String())
	}

	if el := d.doc.GetElementByID(id); el != nil {
		el.DispatchEvent(dom.NewCustomEvent(phase.EventName(), Detail{ComponentID: id, Data: data}))
	}
}

func (d *Dispatcher) fire(hooks *Hooks, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s hook: %v", ev.Phase.HookName(), r)
		}
	}()
	return hooks.Fire(ev)
}
