package interval

import (
	"fmt"

	"github.com/henderiw/intervalcollection/pkg/property"
	"github.com/henderiw/intervalcollection/pkg/sequence"
)

// Type tags how an interval is anchored in the sequence.
type Type int

const (
	Simple Type = iota
	Nest
	// Transient intervals are query probes; they are never indexed or persisted.
	Transient
)

func (r Type) String() string {
	switch r {
	case Simple:
		return "simple"
	case Nest:
		return "nest"
	case Transient:
		return "transient"
	}
	return fmt.Sprintf("type(%d)", int(r))
}

// referenceTypes returns the reference kinds used for the start and end of
// an interval of this type.
func (r Type) referenceTypes() (sequence.ReferenceType, sequence.ReferenceType) {
	switch r {
	case Nest:
		return sequence.NestBegin, sequence.NestEnd
	case Transient:
		return sequence.Transient, sequence.Transient
	}
	return sequence.RangeBegin, sequence.RangeEnd
}

// SerializedInterval is the wire and snapshot form of an interval. The
// positions are absolute offsets captured at SequenceNumber.
type SerializedInterval struct {
	SequenceNumber int          `json:"sequenceNumber" msgpack:"sequenceNumber"`
	StartPosition  int          `json:"startPosition" msgpack:"startPosition"`
	EndPosition    int          `json:"endPosition" msgpack:"endPosition"`
	IntervalType   Type         `json:"intervalType" msgpack:"intervalType"`
	Properties     property.Set `json:"properties,omitempty" msgpack:"properties,omitempty"`
}

// Interval is a range between two position references.
type Interval struct {
	Start      sequence.Reference
	End        sequence.Reference
	Type       Type
	Properties property.Set
}

func New(start, end sequence.Reference, intervalType Type, props property.Set) *Interval {
	r := &Interval{
		Start: start,
		End:   end,
		Type:  intervalType,
	}
	if props != nil {
		r.AddProperties(props, property.Overwrite)
	}
	return r
}

// CreateInterval creates the paired start and end references and wraps them
// in an interval labelled with label. It returns false when the sequence
// cannot produce either reference.
func CreateInterval(label string, client sequence.Client, start, end int, intervalType Type) (*Interval, bool) {
	beginRefType, endRefType := intervalType.referenceTypes()
	startRef, ok := client.CreateReference(start, beginRefType)
	if !ok {
		return nil, false
	}
	endRef, ok := client.CreateReference(end, endRefType)
	if !ok {
		return nil, false
	}
	client.PairReferences(startRef, endRef)

	rangeProp := property.Set{property.RangeLabelsKey: []string{label}}
	startRef.AddProperties(rangeProp, property.Overwrite)
	endRef.AddProperties(rangeProp, property.Overwrite)

	return New(startRef, endRef, intervalType, rangeProp.Clone()), true
}

// Compare orders intervals by start, then by end.
func (r *Interval) Compare(other *Interval) int {
	if c := r.Start.Compare(other.Start); c != 0 {
		return c
	}
	return r.End.Compare(other.End)
}

// Overlaps reports start < other.end and end >= other.start. The mix of a
// strict and a non strict bound is what range queries are built on.
func (r *Interval) Overlaps(other *Interval) bool {
	return r.Start.Compare(other.End) < 0 &&
		r.End.Compare(other.Start) >= 0
}

// Union returns a new interval spanning both; properties are not merged.
func (r *Interval) Union(other *Interval) *Interval {
	return &Interval{
		Start: sequence.Min(r.Start, other.Start),
		End:   sequence.Max(r.End, other.End),
		Type:  r.Type,
	}
}

// AddProperties merges props into the interval's properties.
func (r *Interval) AddProperties(props property.Set, combining property.Combining) {
	r.Properties = property.Add(r.Properties, props, combining)
}

// Clone returns an interval on the same references without properties.
func (r *Interval) Clone() *Interval {
	return &Interval{
		Start: r.Start,
		End:   r.End,
		Type:  r.Type,
	}
}

// OverlapsPos checks the interval against the integer range [start, end)
// with every sequenced op applied.
func (r *Interval) OverlapsPos(client sequence.Client, start, end int) bool {
	startPos := r.Start.ToPosition(sequence.UniversalSeq, client.ClientID())
	endPos := r.End.ToPosition(sequence.UniversalSeq, client.ClientID())
	return endPos > start && startPos < end
}

// Serialize resolves the references at the client's current sequence number.
func (r *Interval) Serialize(client sequence.Client) SerializedInterval {
	seq := client.CurrentSeq()
	si := SerializedInterval{
		SequenceNumber: seq,
		StartPosition:  r.Start.ToPosition(seq, client.ClientID()),
		EndPosition:    r.End.ToPosition(seq, client.ClientID()),
		IntervalType:   r.Type,
	}
	if len(r.Properties) > 0 {
		si.Properties = r.Properties.Clone()
	}
	return si
}

func (r *Interval) String() string {
	return fmt.Sprintf("%s %v-%v labels: %v", r.Type, r.Start, r.End, r.Properties.RangeLabels())
}
