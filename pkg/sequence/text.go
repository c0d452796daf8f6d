package sequence

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/henderiw/intervalcollection/pkg/property"
)

// Stamp carries the sequencing metadata of an op applied to a Text.
// - Seq is the server assigned sequence number, UnassignedSeq for a local pending op
// - RefSeq is the sequence number the author had seen when creating the op
type Stamp struct {
	Seq      int
	RefSeq   int
	ClientID int
}

// item is a single character of the sequence. Removed items are kept as
// tombstones so references anchored to them stay comparable.
type item struct {
	id  string
	val rune
	ord int // index in Text.items, tombstones included

	insertSeq     int
	insertClient  int
	removed       bool
	removedSeq    int
	removedClient int
}

func (r *item) visible(seq, clientID int) bool {
	if !seenBy(r.insertSeq, r.insertClient, seq, clientID) {
		return false
	}
	if r.removed && seenBy(r.removedSeq, r.removedClient, seq, clientID) {
		return false
	}
	return true
}

func seenBy(opSeq, opClient, seq, clientID int) bool {
	if opClient == clientID {
		return true
	}
	return opSeq != UnassignedSeq && opSeq <= seq
}

// Text is an in-memory tombstoning character sequence implementing Client.
// It is not safe for concurrent use.
type Text struct {
	clientID   int
	currentSeq int
	items      []*item
	refs       map[RefID]*localReference
	detached   bool
	l          logr.Logger
}

type TextOption func(*Text)

func WithLogger(l logr.Logger) TextOption {
	return func(t *Text) {
		t.l = l
	}
}

// NewText returns a Text owned by clientID, seeded with initial content that
// every client sees at sequence number 0.
func NewText(clientID int, initial string, opts ...TextOption) *Text {
	t := &Text{
		clientID: clientID,
		refs:     map[RefID]*localReference{},
		l:        logr.Discard(),
	}
	for _, opt := range opts {
		opt(t)
	}
	for _, c := range initial {
		t.items = append(t.items, &item{
			id:           uuid.NewString(),
			val:          c,
			ord:          len(t.items),
			insertClient: -1,
		})
	}
	return t
}

func (t *Text) ClientID() int   { return t.clientID }
func (t *Text) CurrentSeq() int { return t.currentSeq }

// SetCurrentSeq advances the view of the local client.
func (t *Text) SetCurrentSeq(seq int) {
	if seq > t.currentSeq {
		t.currentSeq = seq
	}
}

// Detach marks the sequence as detached; no references can be created after.
func (t *Text) Detach() { t.detached = true }

func (t *Text) IsDetached() bool { return t.detached }

// Length returns the number of characters visible to the local client.
func (t *Text) Length() int {
	return t.lengthAt(t.currentSeq, t.clientID)
}

func (t *Text) lengthAt(seq, clientID int) int {
	l := 0
	for _, it := range t.items {
		if it.visible(seq, clientID) {
			l++
		}
	}
	return l
}

// String returns the text visible to the local client.
func (t *Text) String() string {
	var sb strings.Builder
	for _, it := range t.items {
		if it.visible(t.currentSeq, t.clientID) {
			sb.WriteRune(it.val)
		}
	}
	return sb.String()
}

// Insert inserts text at pos as seen by the author of the op.
func (t *Text) Insert(pos int, text string, stamp Stamp) error {
	if pos < 0 || pos > t.lengthAt(stamp.RefSeq, stamp.ClientID) {
		return fmt.Errorf("insert position %d out of range", pos)
	}
	idx := t.insertIndex(pos, stamp)
	newItems := make([]*item, 0, len(text))
	for _, c := range text {
		newItems = append(newItems, &item{
			id:           uuid.NewString(),
			val:          c,
			insertSeq:    stamp.Seq,
			insertClient: stamp.ClientID,
		})
	}
	t.items = append(t.items[:idx], append(newItems, t.items[idx:]...)...)
	t.renumber(idx)
	t.SetCurrentSeq(stamp.Seq)
	t.l.V(1).Info("insert", "pos", pos, "len", len(newItems), "seq", stamp.Seq, "client", stamp.ClientID)
	return nil
}

// Remove tombstones the characters in [start, end) as seen by the author of the op.
func (t *Text) Remove(start, end int, stamp Stamp) error {
	if start < 0 || end < start || end > t.lengthAt(stamp.RefSeq, stamp.ClientID) {
		return fmt.Errorf("remove range %d-%d out of range", start, end)
	}
	pos := 0
	for _, it := range t.items {
		if !it.visible(stamp.RefSeq, stamp.ClientID) {
			continue
		}
		if pos >= start && pos < end && !it.removed {
			it.removed = true
			it.removedSeq = stamp.Seq
			it.removedClient = stamp.ClientID
		}
		pos++
	}
	t.SetCurrentSeq(stamp.Seq)
	t.l.V(1).Info("remove", "start", start, "end", end, "seq", stamp.Seq, "client", stamp.ClientID)
	return nil
}

// Ack stamps the pending local ops with the sequence number assigned by the
// sequencer.
func (t *Text) Ack(seq int) {
	for _, it := range t.items {
		if it.insertClient == t.clientID && it.insertSeq == UnassignedSeq {
			it.insertSeq = seq
		}
		if it.removed && it.removedClient == t.clientID && it.removedSeq == UnassignedSeq {
			it.removedSeq = seq
		}
	}
	t.SetCurrentSeq(seq)
}

// itemIndex returns the slice index at which a character inserted at pos
// belongs, given the view (seq, clientID).
func (t *Text) itemIndex(pos, seq, clientID int) int {
	visible := 0
	for i, it := range t.items {
		if !it.visible(seq, clientID) {
			continue
		}
		if visible == pos {
			return i
		}
		visible++
	}
	return len(t.items)
}

// insertIndex returns the slice index at which text inserted at pos by the
// op stamped stamp belongs. The items between the author's neighbours that
// the author did not see are kept in insert sequence number order, pending
// local items last, so that concurrent inserts at the same position land in
// the same order on every replica.
func (t *Text) insertIndex(pos int, stamp Stamp) int {
	idx := 0
	if pos > 0 {
		idx = t.itemIndex(pos-1, stamp.RefSeq, stamp.ClientID) + 1
	}
	seq := orderSeq(stamp.Seq)
	for ; idx < len(t.items); idx++ {
		it := t.items[idx]
		if it.visible(stamp.RefSeq, stamp.ClientID) || orderSeq(it.insertSeq) > seq {
			break
		}
	}
	return idx
}

// orderSeq orders pending ops after every sequenced one.
func orderSeq(seq int) int {
	if seq == UnassignedSeq {
		return math.MaxInt
	}
	return seq
}

func (t *Text) renumber(from int) {
	for i := from; i < len(t.items); i++ {
		t.items[i].ord = i
	}
}

func (t *Text) CreateReference(pos int, refType ReferenceType) (Reference, bool) {
	if t.detached || pos < 0 {
		return nil, false
	}
	if pos >= t.Length() {
		return nil, false
	}
	anchor := t.items[t.itemIndex(pos, t.currentSeq, t.clientID)]
	ref := &localReference{
		id:      RefID(uuid.NewString()),
		refType: refType,
		anchor:  anchor,
		text:    t,
	}
	if refType != Transient {
		t.refs[ref.id] = ref
	}
	return ref, true
}

func (t *Text) PairReferences(a, b Reference) {
	ra, ok := t.refs[a.ID()]
	if !ok {
		ra, ok = a.(*localReference)
	}
	rb, okb := t.refs[b.ID()]
	if !okb {
		rb, okb = b.(*localReference)
	}
	if !ok || !okb {
		return
	}
	ra.paired = rb.id
	rb.paired = ra.id
}

func (t *Text) Reference(id RefID) (Reference, bool) {
	ref, ok := t.refs[id]
	if !ok {
		return nil, false
	}
	return ref, true
}

type localReference struct {
	id      RefID
	refType ReferenceType
	anchor  *item
	text    *Text
	paired  RefID
	props   property.Set
}

func (r *localReference) ID() RefID           { return r.id }
func (r *localReference) Type() ReferenceType { return r.refType }
func (r *localReference) PairedID() RefID     { return r.paired }

func (r *localReference) Properties() property.Set { return r.props }

func (r *localReference) AddProperties(props property.Set, combining property.Combining) {
	r.props = property.Add(r.props, props, combining)
}

func (r *localReference) Compare(other Reference) int {
	o, ok := other.(*localReference)
	if !ok || o.text != r.text {
		panic(fmt.Sprintf("cannot compare reference %s with a reference of another sequence", r.id))
	}
	switch {
	case r.anchor.ord < o.anchor.ord:
		return -1
	case r.anchor.ord > o.anchor.ord:
		return 1
	}
	return 0
}

func (r *localReference) ToPosition(seq, clientID int) int {
	pos := 0
	for _, it := range r.text.items[:r.anchor.ord] {
		if it.visible(seq, clientID) {
			pos++
		}
	}
	return pos
}

func (r *localReference) String() string {
	return fmt.Sprintf("%s@%d", r.refType, r.anchor.ord)
}
