package interval

import (
	"context"
	"sync"

	"github.com/henderiw/intervalcollection/pkg/valuetype"
)

// Hooks let a richer document model take part in materialising intervals.
type Hooks interface {
	// PrepareDeserialize runs in the prepare phase of a remote add, before
	// the interval exists. The returned value is handed to Deserialize.
	PrepareDeserialize(ctx context.Context, si SerializedInterval) (any, error)
	// Deserialize runs right after an interval was added to the index.
	Deserialize(interval *Interval, opCtx any)
}

// NopHooks is the default Hooks implementation.
type NopHooks struct{}

func (NopHooks) PrepareDeserialize(context.Context, SerializedInterval) (any, error) { return nil, nil }

func (NopHooks) Deserialize(*Interval, any) {}

// AddIntervalEvent is published on every add, local or remote. Interval is
// nil when the sequence could not materialise it. Op is nil for an add
// authored locally and not yet sequenced.
type AddIntervalEvent struct {
	Interval *Interval
	Local    bool
	Op       *valuetype.SequencedMessage
}

// Listener observes a SharedCollection.
type Listener interface {
	OnAddInterval(event AddIntervalEvent)
}

// ListenerFunc adapts a func to a Listener.
type ListenerFunc func(event AddIntervalEvent)

func (f ListenerFunc) OnAddInterval(event AddIntervalEvent) { f(event) }

type listeners struct {
	m      sync.RWMutex
	nextID int
	list   []listenerEntry
}

type listenerEntry struct {
	id       int
	listener Listener
}

func (r *listeners) subscribe(l Listener) func() {
	r.m.Lock()
	defer r.m.Unlock()

	id := r.nextID
	r.nextID++
	r.list = append(r.list, listenerEntry{id: id, listener: l})
	return func() {
		r.m.Lock()
		defer r.m.Unlock()
		for i, e := range r.list {
			if e.id == id {
				r.list = append(r.list[:i:i], r.list[i+1:]...)
				return
			}
		}
	}
}

// publish calls every listener synchronously, in subscription order.
func (r *listeners) publish(event AddIntervalEvent) {
	r.m.RLock()
	list := append([]listenerEntry(nil), r.list...)
	r.m.RUnlock()

	for _, e := range list {
		e.listener.OnAddInterval(event)
	}
}
