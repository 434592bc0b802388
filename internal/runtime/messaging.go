package runtime

import (
	"github.com/conneroisu/componentry/internal/bus"
	"github.com/conneroisu/componentry/internal/dom"
	"github.com/conneroisu/componentry/internal/lifecycle"
)

// SendMessage publishes a message on the bus under its action and
// dispatches a bubbling component:message event from the sender element,
// or the document when the sender has none. An empty receiver broadcasts.
func (r *Runtime) SendMessage(sender, receiver, action string, data any) bus.Message {
	msg := bus.NewMessage(sender, receiver, action, data)
	r.bus.Emit(bus.ActionEvent(action), msg)

	ev := dom.NewCustomEvent(EventMessage, msg)
	if el := r.doc.GetElementByID(sender); el != nil {
		el.DispatchEvent(ev)
	} else {
		r.doc.DispatchEvent(ev)
	}
	return msg
}

// routeMessage delivers component:message events as message phases.
func (r *Runtime) routeMessage(ev *dom.Event) {
	msg, ok := ev.Detail.(bus.Message)
	if !ok {
		return
	}
	data := MessageData{Sender: msg.Sender, Action: msg.Action, Data: msg.Data}
	if !msg.Broadcast() {
		if r.registry.Has(msg.Receiver) {
			r.Trigger(msg.Receiver, lifecycle.PhaseMessage, data)
		}
		return
	}
	for _, id := range r.registry.IDs() {
		if id != msg.Sender {
			r.Trigger(id, lifecycle.PhaseMessage, data)
		}
	}
}

// OnComponentAction subscribes to messages with action.
func (r *Runtime) OnComponentAction(action string, fn bus.Handler, opts bus.Options) bus.Handle {
	return r.bus.On(bus.ActionEvent(action), fn, opts)
}

// OnceComponentAction subscribes to the next message with action.
func (r *Runtime) OnceComponentAction(action string, fn bus.Handler, opts bus.Options) bus.Handle {
	return r.bus.Once(bus.ActionEvent(action), fn, opts)
}

// OffComponentAction removes one action subscription.
func (r *Runtime) OffComponentAction(action string, h bus.Handle) bool {
	return r.bus.Off(bus.ActionEvent(action), h)
}

// OffAllComponentAction removes every subscription to action.
func (r *Runtime) OffAllComponentAction(action string) {
	r.bus.OffAll(bus.ActionEvent(action))
}
