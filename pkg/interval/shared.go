package interval

import (
	"context"
	"errors"

	"github.com/go-logr/logr"
	"github.com/henderiw/intervalcollection/pkg/property"
	"github.com/henderiw/intervalcollection/pkg/sequence"
	"github.com/henderiw/intervalcollection/pkg/valuetype"
	"k8s.io/apimachinery/pkg/labels"
)

const (
	OpAdd    = "add"
	OpRemove = "remove"
)

var ErrNotInitialized = errors.New("interval collection not initialized")

type Option func(*SharedCollection)

func WithLogger(l logr.Logger) Option {
	return func(r *SharedCollection) {
		r.l = l
	}
}

func WithHooks(h Hooks) Option {
	return func(r *SharedCollection) {
		if h != nil {
			r.hooks = h
		}
	}
}

// SharedCollection is the replicated interval collection. It starts
// uninitialized, holding the serialized intervals it was loaded with, and
// becomes queryable once Initialize binds it to a sequence.
//
// A SharedCollection is driven from a single goroutine: local authoring and
// the host's process calls must not run concurrently.
type SharedCollection struct {
	emitter valuetype.OpEmitter
	client  sequence.Client
	local   *LocalCollection
	// savedSerializedIntervals holds the raw intervals until Initialize
	savedSerializedIntervals []SerializedInterval

	hooks     Hooks
	listeners listeners
	l         logr.Logger
}

func NewSharedCollection(emitter valuetype.OpEmitter, serializedIntervals []SerializedInterval, opts ...Option) *SharedCollection {
	r := &SharedCollection{
		emitter:                  emitter,
		savedSerializedIntervals: serializedIntervals,
		hooks:                    NopHooks{},
		l:                        logr.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetHooks replaces the hooks; used by hosts that load the collection
// before the document model is available.
func (r *SharedCollection) SetHooks(h Hooks) {
	if h == nil {
		h = NopHooks{}
	}
	r.hooks = h
}

func (r *SharedCollection) IsInitialized() bool {
	return r.local != nil
}

// Initialize binds the collection to a sequence and drains the saved
// intervals into the local index. Calling it again is a no-op.
func (r *SharedCollection) Initialize(client sequence.Client, label string) {
	if r.local != nil {
		return
	}
	r.client = client
	r.local = NewLocalCollection(client, label, r.l)

	saved := r.savedSerializedIntervals
	r.savedSerializedIntervals = nil
	for _, si := range saved {
		r.deserializeInterval(si, nil)
	}
	r.l.Info("initialized", "label", label, "saved", len(saved), "intervals", r.local.Len())
}

// Subscribe registers a listener; the returned func unsubscribes it.
func (r *SharedCollection) Subscribe(l Listener) func() {
	return r.listeners.subscribe(l)
}

// Add authors an interval locally: it is applied right away and an add op
// is emitted toward the sequencer.
func (r *SharedCollection) Add(start, end int, intervalType Type, props property.Set) error {
	if r.local == nil {
		return ErrNotInitialized
	}
	si := SerializedInterval{
		SequenceNumber: r.client.CurrentSeq(),
		StartPosition:  start,
		EndPosition:    end,
		IntervalType:   intervalType,
		Properties:     props,
	}
	r.AddSerialized(si, nil, true, nil)
	return nil
}

// AddSerialized materialises a serialized interval. msg is nil only for the
// initial local authoring call, which is the one case an op is emitted.
// Subscribers are notified in every case, after the index was updated.
func (r *SharedCollection) AddSerialized(si SerializedInterval, opCtx any, local bool, msg *valuetype.SequencedMessage) *Interval {
	if r.local == nil {
		r.l.V(1).Info("add before initialize, buffering", "start", si.StartPosition, "end", si.EndPosition)
		r.savedSerializedIntervals = append(r.savedSerializedIntervals, si)
		return nil
	}

	interval := r.deserializeInterval(si, opCtx)
	if interval != nil && msg == nil {
		r.emitter.Emit(OpAdd, si)
	}

	r.listeners.publish(AddIntervalEvent{Interval: interval, Local: local, Op: msg})
	return interval
}

// PrepareAdd is the prepare phase of a remote add.
func (r *SharedCollection) PrepareAdd(ctx context.Context, si SerializedInterval, local bool, msg *valuetype.SequencedMessage) (any, error) {
	return r.hooks.PrepareDeserialize(ctx, si)
}

// Remove is accepted on the wire but has no effect: evicting intervals and
// releasing their references is not defined for this collection.
func (r *SharedCollection) Remove(si SerializedInterval, submitEvent bool) {
	r.l.V(1).Info("remove ignored", "start", si.StartPosition, "end", si.EndPosition, "submit", submitEvent)
}

func (r *SharedCollection) deserializeInterval(si SerializedInterval, opCtx any) *Interval {
	interval, ok := r.local.AddInterval(si.StartPosition, si.EndPosition, si.IntervalType, si.Properties)
	if !ok {
		return nil
	}
	r.l.V(1).Info("deserialized", "seq", si.SequenceNumber, "start", si.StartPosition, "end", si.EndPosition, "type", si.IntervalType)
	r.hooks.Deserialize(interval, opCtx)
	return interval
}

func (r *SharedCollection) Len() int {
	if r.local == nil {
		return 0
	}
	return r.local.Len()
}

func (r *SharedCollection) FindOverlappingIntervals(start, end int) []*Interval {
	if r.local == nil {
		return []*Interval{}
	}
	return r.local.FindOverlappingIntervals(start, end)
}

func (r *SharedCollection) PreviousInterval(pos int) (*Interval, bool) {
	if r.local == nil {
		return nil, false
	}
	return r.local.PreviousInterval(pos)
}

func (r *SharedCollection) NextInterval(pos int) (*Interval, bool) {
	if r.local == nil {
		return nil, false
	}
	return r.local.NextInterval(pos)
}

func (r *SharedCollection) Map(fn func(interval *Interval)) {
	if r.local == nil {
		return
	}
	r.local.Map(fn)
}

func (r *SharedCollection) GetByLabel(selector labels.Selector) []*Interval {
	if r.local == nil {
		return []*Interval{}
	}
	return r.local.GetByLabel(selector)
}

// Serialize returns the snapshot form. An uninitialized collection returns
// the intervals it was loaded with.
func (r *SharedCollection) Serialize() []SerializedInterval {
	if r.local == nil {
		return append([]SerializedInterval{}, r.savedSerializedIntervals...)
	}
	return r.local.Serialize()
}
