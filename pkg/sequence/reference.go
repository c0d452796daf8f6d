package sequence

import (
	"math"

	"github.com/henderiw/intervalcollection/pkg/property"
)

const (
	// UniversalSeq resolves positions as if every sequenced op was applied.
	UniversalSeq = math.MaxInt
	// UnassignedSeq marks a local op that the sequencer has not acknowledged yet.
	UnassignedSeq = -1
)

// ReferenceType tells the engine what a position reference is anchoring.
type ReferenceType int

const (
	RangeBegin ReferenceType = iota
	RangeEnd
	NestBegin
	NestEnd
	Transient
)

func (r ReferenceType) String() string {
	switch r {
	case RangeBegin:
		return "rangeBegin"
	case RangeEnd:
		return "rangeEnd"
	case NestBegin:
		return "nestBegin"
	case NestEnd:
		return "nestEnd"
	case Transient:
		return "transient"
	}
	return "unknown"
}

// RefID identifies a position reference inside its engine.
type RefID string

// Reference is a stable handle into a mutable sequence. It survives
// insertions and deletions elsewhere in the sequence and is owned by the
// engine that created it.
type Reference interface {
	ID() RefID
	Type() ReferenceType
	// Compare returns -1, 0 or 1 following the document order of the anchors.
	Compare(other Reference) int
	// ToPosition resolves the reference to an absolute offset as seen by
	// clientID at sequence number seq.
	ToPosition(seq, clientID int) int
	// PairedID returns the id of the paired reference, empty if unpaired.
	PairedID() RefID
	Properties() property.Set
	AddProperties(props property.Set, combining property.Combining)
}

// Client is the capability surface of the sequence engine consumed by the
// interval collection.
type Client interface {
	// CreateReference returns false when no valid position exists, e.g. out
	// of range or on a detached sequence.
	CreateReference(pos int, refType ReferenceType) (Reference, bool)
	// PairReferences links a and b without either owning the other.
	PairReferences(a, b Reference)
	// Reference looks up a non-transient reference by id.
	Reference(id RefID) (Reference, bool)
	CurrentSeq() int
	ClientID() int
	// Length returns the number of positions visible to the local client.
	Length() int
}

// Min returns the reference that sorts first.
func Min(a, b Reference) Reference {
	if a.Compare(b) <= 0 {
		return a
	}
	return b
}

// Max returns the reference that sorts last.
func Max(a, b Reference) Reference {
	if a.Compare(b) >= 0 {
		return a
	}
	return b
}
