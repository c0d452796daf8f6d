package interval

import (
	"github.com/go-logr/logr"
	"github.com/google/btree"
	"github.com/henderiw/intervalcollection/pkg/property"
	"github.com/henderiw/intervalcollection/pkg/sequence"
	"github.com/henderiw/intervalcollection/pkg/tree"
	"k8s.io/apimachinery/pkg/labels"
)

const transientLabel = "transient"

// endBucket groups the intervals whose end references compare equal.
type endBucket struct {
	end       sequence.Reference
	intervals []*Interval
}

func (r *endBucket) last() *Interval {
	return r.intervals[len(r.intervals)-1]
}

func endBucketLess(a, b *endBucket) bool {
	return a.end.Compare(b.end) < 0
}

// LocalCollection indexes the intervals of one collection twice: by
// interval order for overlap queries and by end reference for
// previous/next queries. AddInterval is the only insertion path and keeps
// both indexes in sync.
type LocalCollection struct {
	client  sequence.Client
	label   string
	tree    *tree.Tree[*Interval]
	endTree *btree.BTreeG[*endBucket]
	l       logr.Logger
}

func NewLocalCollection(client sequence.Client, label string, l logr.Logger) *LocalCollection {
	return &LocalCollection{
		client:  client,
		label:   label,
		tree:    tree.NewTree[*Interval](label),
		endTree: btree.NewG(16, endBucketLess),
		l:       l,
	}
}

func (r *LocalCollection) Label() string { return r.label }

// Len returns the number of indexed intervals.
func (r *LocalCollection) Len() int { return r.tree.Len() }

// CreateInterval creates an interval labelled with this collection's label
// without indexing it.
func (r *LocalCollection) CreateInterval(start, end int, intervalType Type) (*Interval, bool) {
	return CreateInterval(r.label, r.client, start, end, intervalType)
}

// AddInterval creates and indexes an interval. When the sequence cannot
// create the references nothing is indexed and false is returned.
// Transient intervals are returned but never indexed.
// TODO: de-duplicate intervals whose references compare equal
func (r *LocalCollection) AddInterval(start, end int, intervalType Type, props property.Set) (*Interval, bool) {
	interval, ok := r.CreateInterval(start, end, intervalType)
	if !ok {
		r.l.V(1).Info("no reference for interval", "label", r.label, "start", start, "end", end)
		return nil, false
	}
	interval.AddProperties(props, property.Overwrite)
	interval.Properties[property.RangeLabelsKey] = []string{r.label}
	if intervalType == Transient {
		return interval, true
	}

	r.tree.Put(interval)
	if b, ok := r.endTree.Get(&endBucket{end: interval.End}); ok {
		b.intervals = append(b.intervals, interval)
	} else {
		r.endTree.ReplaceOrInsert(&endBucket{end: interval.End, intervals: []*Interval{interval}})
	}
	return interval, true
}

// FindOverlappingIntervals returns every interval overlapping [start, end].
// An end past the last position is clamped to it.
func (r *LocalCollection) FindOverlappingIntervals(start, end int) []*Interval {
	if r.tree.IsEmpty() {
		return []*Interval{}
	}
	end = min(end, r.client.Length()-1)
	probe, ok := CreateInterval(transientLabel, r.client, start, end, Transient)
	if !ok {
		return []*Interval{}
	}
	return r.tree.Match(probe)
}

// PreviousInterval returns the interval with the greatest end at or before
// pos. A pos past the last position is clamped to it.
func (r *LocalCollection) PreviousInterval(pos int) (*Interval, bool) {
	pos = min(pos, r.client.Length()-1)
	probe, ok := CreateInterval(transientLabel, r.client, pos, pos, Transient)
	if !ok {
		return nil, false
	}
	var found *Interval
	r.endTree.DescendLessOrEqual(&endBucket{end: probe.End}, func(b *endBucket) bool {
		found = b.last()
		return false
	})
	return found, found != nil
}

// NextInterval returns the interval with the smallest end at or after pos.
func (r *LocalCollection) NextInterval(pos int) (*Interval, bool) {
	probe, ok := CreateInterval(transientLabel, r.client, pos, pos, Transient)
	if !ok {
		return nil, false
	}
	var found *Interval
	r.endTree.AscendGreaterOrEqual(&endBucket{end: probe.End}, func(b *endBucket) bool {
		found = b.last()
		return false
	})
	return found, found != nil
}

// Map calls fn on every interval in index order.
func (r *LocalCollection) Map(fn func(interval *Interval)) {
	r.tree.Map(fn)
}

// GetByLabel returns the intervals whose properties match the selector.
func (r *LocalCollection) GetByLabel(selector labels.Selector) []*Interval {
	intervals := []*Interval{}
	r.tree.Map(func(interval *Interval) {
		if selector.Matches(interval.Properties.Labels()) {
			intervals = append(intervals, interval)
		}
	})
	return intervals
}

// Serialize returns the serialized form of every non transient interval in
// start order.
func (r *LocalCollection) Serialize() []SerializedInterval {
	serialized := make([]SerializedInterval, 0, r.tree.Len())
	r.tree.Map(func(interval *Interval) {
		if interval.Type == Transient {
			return
		}
		serialized = append(serialized, interval.Serialize(r.client))
	})
	return serialized
}
