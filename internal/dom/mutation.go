package dom

import "golang.org/x/net/html"

// MutationRecord describes one child-list change.
type MutationRecord struct {
	Target  *Element
	Added   []*Element
	Removed []*Element
}

type observer struct {
	fn func([]MutationRecord)
}

// Observe registers fn to receive queued child-list mutations on every Flush.
// The returned function disconnects the observer.
func (d *Document) Observe(fn func([]MutationRecord)) func() {
	o := &observer{fn: fn}
	d.observers = append(d.observers, o)
	return func() {
		out := d.observers[:0:0]
		for _, x := range d.observers {
			if x != o {
				out = append(out, x)
			}
		}
		d.observers = out
	}
}

// PendingMutations reports how many records await delivery.
func (d *Document) PendingMutations() int {
	return len(d.pending)
}

// TakeRecords removes and returns the queued records.
func (d *Document) TakeRecords() []MutationRecord {
	records := d.pending
	d.pending = nil
	return records
}

// FlushMutations delivers queued records to observers. Records produced while
// observers run are delivered in a subsequent round, until the queue drains.
func (d *Document) FlushMutations() {
	for len(d.pending) > 0 {
		records := d.TakeRecords()
		if len(d.observers) == 0 {
			continue
		}
		observers := make([]*observer, len(d.observers))
		copy(observers, d.observers)
		for _, o := range observers {
			d.safely("mutation", func() { o.fn(records) })
		}
	}
}

func (d *Document) record(rec MutationRecord) {
	if len(rec.Added) == 0 && len(rec.Removed) == 0 {
		return
	}
	if len(d.observers) == 0 {
		return
	}
	d.pending = append(d.pending, rec)
}

func elementsOf(d *Document, nodes []*html.Node) []*Element {
	var out []*Element
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			out = append(out, d.wrap(n))
		}
	}
	return out
}
