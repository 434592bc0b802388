package dom

// Event is a DOM event. Custom events carry their payload in Detail.
type Event struct {
	Type    string
	Detail  any
	Bubbles bool

	// Target is the element the event was dispatched on; nil when dispatched
	// on the document itself.
	Target *Element
	// CurrentTarget is the element whose listener is running; nil while the
	// document-level listeners run.
	CurrentTarget *Element

	stopped bool
}

// NewCustomEvent returns a bubbling event carrying detail.
func NewCustomEvent(eventType string, detail any) *Event {
	return &Event{Type: eventType, Detail: detail, Bubbles: true}
}

// StopPropagation prevents the event from reaching further ancestors.
func (ev *Event) StopPropagation() { ev.stopped = true }

// Listener handles a dispatched event.
type Listener func(ev *Event)

type listener struct {
	fn Listener
}

// AddEventListener registers fn on e and returns a function removing it.
func (e *Element) AddEventListener(eventType string, fn Listener) func() {
	nd := e.doc.dataFor(e.node)
	if nd.listeners == nil {
		nd.listeners = make(map[string][]*listener)
	}
	l := &listener{fn: fn}
	nd.listeners[eventType] = append(nd.listeners[eventType], l)
	return func() {
		nd.listeners[eventType] = without(nd.listeners[eventType], l)
	}
}

// AddEventListener registers a document-level listener.
func (d *Document) AddEventListener(eventType string, fn Listener) func() {
	l := &listener{fn: fn}
	d.listeners[eventType] = append(d.listeners[eventType], l)
	return func() {
		d.listeners[eventType] = without(d.listeners[eventType], l)
	}
}

// DispatchEvent runs the listeners of e and, for bubbling events, of every
// connected ancestor followed by the document.
func (e *Element) DispatchEvent(ev *Event) {
	ev.Target = e
	for cur := e; cur != nil; cur = cur.Parent() {
		ev.CurrentTarget = cur
		if nd, ok := e.doc.data[cur.node]; ok {
			e.doc.invoke(ev, nd.listeners[ev.Type])
		}
		if ev.stopped || !ev.Bubbles {
			return
		}
	}
	if e.IsConnected() {
		ev.CurrentTarget = nil
		e.doc.invoke(ev, e.doc.listeners[ev.Type])
	}
}

// DispatchEvent runs the document-level listeners only.
func (d *Document) DispatchEvent(ev *Event) {
	ev.Target = nil
	ev.CurrentTarget = nil
	d.invoke(ev, d.listeners[ev.Type])
}

func (d *Document) invoke(ev *Event, ls []*listener) {
	// Snapshot so listeners may add or remove listeners while dispatching.
	snapshot := make([]*listener, len(ls))
	copy(snapshot, ls)
	for _, l := range snapshot {
		d.safely(ev.Type, func() { l.fn(ev) })
	}
}

func (d *Document) safely(eventType string, fn func()) {
	defer func() {
		if r := recover(); r != nil && d.OnListenerPanic != nil {
			d.OnListenerPanic(eventType, r)
		}
	}()
	fn()
}

func without(ls []*listener, target *listener) []*listener {
	out := ls[:0:0]
	for _, l := range ls {
		if l != target {
			out = append(out, l)
		}
	}
	return out
}
