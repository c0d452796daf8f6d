package interval

import (
	"testing"

	"github.com/go-logr/logr/testr"
	"github.com/google/go-cmp/cmp"
	"github.com/henderiw/intervalcollection/pkg/property"
	"github.com/henderiw/intervalcollection/pkg/sequence"
	"github.com/tj/assert"
	"k8s.io/apimachinery/pkg/labels"
)

// positions resolves intervals to start/end pairs at the client's view.
func positions(client sequence.Client, intervals []*Interval) [][2]int {
	ret := make([][2]int, 0, len(intervals))
	for _, i := range intervals {
		si := i.Serialize(client)
		ret = append(ret, [2]int{si.StartPosition, si.EndPosition})
	}
	return ret
}

func newTestLocal(t *testing.T, ranges ...[2]int) (*sequence.Text, *LocalCollection) {
	t.Helper()
	text := sequence.NewText(1, testText)
	c := NewLocalCollection(text, "label1", testr.New(t))
	for _, r := range ranges {
		if _, ok := c.AddInterval(r[0], r[1], Simple, nil); !ok {
			t.Fatalf("cannot add interval %v", r)
		}
	}
	return text, c
}

func TestFindOverlappingIntervals(t *testing.T) {
	ranges := [][2]int{{1, 3}, {4, 6}, {8, 12}}

	cases := map[string]struct {
		start    int
		end      int
		expected [][2]int
	}{
		"All": {
			start:    0,
			end:      15,
			expected: [][2]int{{1, 3}, {4, 6}, {8, 12}},
		},
		"EndTouchesProbeStart": {
			start:    3,
			end:      4,
			expected: [][2]int{{1, 3}},
		},
		"Middle": {
			start:    5,
			end:      8,
			expected: [][2]int{{4, 6}},
		},
		"LastEnd": {
			start:    12,
			end:      13,
			expected: [][2]int{{8, 12}},
		},
		"None": {
			start:    13,
			end:      14,
			expected: [][2]int{},
		},
		"EndPastLength": {
			start:    10,
			end:      len(testText) + 4,
			expected: [][2]int{{8, 12}},
		},
		"StartPastLength": {
			start:    len(testText),
			end:      len(testText) + 2,
			expected: [][2]int{},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			text, c := newTestLocal(t, ranges...)
			got := positions(text, c.FindOverlappingIntervals(tc.start, tc.end))
			if diff := cmp.Diff(tc.expected, got); diff != "" {
				t.Errorf("-want, +got:\n%s", diff)
			}
		})
	}
}

func TestFindOverlappingIntervalsEmpty(t *testing.T) {
	_, c := newTestLocal(t)
	got := c.FindOverlappingIntervals(0, 5)
	assert.NotNil(t, got)
	assert.Len(t, got, 0)
}

func TestPreviousNextInterval(t *testing.T) {
	ranges := [][2]int{{0, 2}, {1, 5}, {3, 9}}

	cases := map[string]struct {
		pos      int
		next     bool
		expected *[2]int
	}{
		"PreviousBetween": {
			pos:      6,
			expected: &[2]int{1, 5},
		},
		"NextBetween": {
			pos:      6,
			next:     true,
			expected: &[2]int{3, 9},
		},
		"PreviousOnEnd": {
			pos:      5,
			expected: &[2]int{1, 5},
		},
		"NextOnEnd": {
			pos:      5,
			next:     true,
			expected: &[2]int{1, 5},
		},
		"PreviousNone": {
			pos: 1,
		},
		"NextNone": {
			pos:  10,
			next: true,
		},
		"NextFirst": {
			pos:      0,
			next:     true,
			expected: &[2]int{0, 2},
		},
		"PreviousPastLength": {
			pos:      len(testText),
			expected: &[2]int{3, 9},
		},
		"NextPastLength": {
			pos:  len(testText),
			next: true,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			text, c := newTestLocal(t, ranges...)
			var got *Interval
			var ok bool
			if tc.next {
				got, ok = c.NextInterval(tc.pos)
			} else {
				got, ok = c.PreviousInterval(tc.pos)
			}
			if tc.expected == nil {
				assert.False(t, ok)
				assert.Nil(t, got)
				return
			}
			assert.True(t, ok)
			assert.Equal(t, [][2]int{*tc.expected}, positions(text, []*Interval{got}))
		})
	}
}

func TestQueriesToEndOfText(t *testing.T) {
	text, c := newTestLocal(t, [2]int{2, 4}, [2]int{10, 15})

	got := positions(text, c.FindOverlappingIntervals(12, text.Length()))
	assert.Equal(t, [][2]int{{10, 15}}, got)

	prev, ok := c.PreviousInterval(text.Length())
	assert.True(t, ok)
	assert.Equal(t, [][2]int{{10, 15}}, positions(text, []*Interval{prev}))
}

func TestDuplicateEnds(t *testing.T) {
	text, c := newTestLocal(t, [2]int{1, 6}, [2]int{3, 6})

	assert.Equal(t, 2, c.Len())
	got, ok := c.PreviousInterval(7)
	assert.True(t, ok)
	assert.Equal(t, [][2]int{{3, 6}}, positions(text, []*Interval{got}))
	assert.Len(t, c.FindOverlappingIntervals(6, 7), 2)
}

func TestAddInterval(t *testing.T) {
	_, c := newTestLocal(t)

	i, ok := c.AddInterval(2, 4, Nest, property.Set{"color": "red", property.RangeLabelsKey: []any{"other"}})
	assert.True(t, ok)
	assert.Equal(t, "red", i.Properties["color"])
	assert.Equal(t, []string{"label1"}, i.Properties.RangeLabels())
	assert.Equal(t, 1, c.Len())

	i, ok = c.AddInterval(2, 40, Simple, nil)
	assert.False(t, ok)
	assert.Nil(t, i)
	assert.Equal(t, 1, c.Len())
}

func TestTransientNotIndexed(t *testing.T) {
	_, c := newTestLocal(t)

	i, ok := c.AddInterval(2, 4, Transient, nil)
	assert.True(t, ok)
	assert.NotNil(t, i)
	assert.Equal(t, 0, c.Len())
	assert.Len(t, c.FindOverlappingIntervals(0, 10), 0)
	assert.Len(t, c.Serialize(), 0)
}

func TestLocalSerialize(t *testing.T) {
	text, c := newTestLocal(t, [2]int{5, 7}, [2]int{1, 3})

	expected := []SerializedInterval{
		{
			StartPosition: 1,
			EndPosition:   3,
			IntervalType:  Simple,
			Properties:    property.Set{property.RangeLabelsKey: []string{"label1"}},
		},
		{
			StartPosition: 5,
			EndPosition:   7,
			IntervalType:  Simple,
			Properties:    property.Set{property.RangeLabelsKey: []string{"label1"}},
		},
	}
	if diff := cmp.Diff(expected, c.Serialize()); diff != "" {
		t.Errorf("-want, +got:\n%s", diff)
	}

	// reloading the snapshot into a fresh collection gives the same snapshot
	other := NewLocalCollection(text, "label1", testr.New(t))
	for _, si := range c.Serialize() {
		_, ok := other.AddInterval(si.StartPosition, si.EndPosition, si.IntervalType, si.Properties)
		assert.True(t, ok)
	}
	if diff := cmp.Diff(c.Serialize(), other.Serialize()); diff != "" {
		t.Errorf("-want, +got:\n%s", diff)
	}
}

func TestIntervalsFollowEdits(t *testing.T) {
	text, c := newTestLocal(t, [2]int{4, 6})

	assert.NoError(t, text.Insert(0, "xyz", sequence.Stamp{Seq: 1, RefSeq: 0, ClientID: 2}))
	assert.Equal(t, [][2]int{{7, 9}}, positions(text, c.FindOverlappingIntervals(7, 8)))

	assert.NoError(t, text.Remove(0, 2, sequence.Stamp{Seq: 2, RefSeq: 1, ClientID: 2}))
	assert.Equal(t, [][2]int{{5, 7}}, positions(text, c.FindOverlappingIntervals(0, 6)))
	assert.Equal(t, 2, c.Serialize()[0].SequenceNumber)
}

func TestGetByLabel(t *testing.T) {
	_, c := newTestLocal(t)
	_, ok := c.AddInterval(1, 2, Simple, property.Set{"color": "red"})
	assert.True(t, ok)
	_, ok = c.AddInterval(3, 4, Simple, property.Set{"color": "blue"})
	assert.True(t, ok)

	cases := map[string]struct {
		selector labels.Selector
		expected int
	}{
		"Red": {
			selector: labels.SelectorFromSet(labels.Set{"color": "red"}),
			expected: 1,
		},
		"RangeLabel": {
			selector: labels.SelectorFromSet(labels.Set{property.RangeLabelsKey: "label1"}),
			expected: 2,
		},
		"Everything": {
			selector: labels.Everything(),
			expected: 2,
		},
		"Nothing": {
			selector: labels.SelectorFromSet(labels.Set{"color": "green"}),
			expected: 0,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Len(t, c.GetByLabel(tc.selector), tc.expected)
		})
	}
}

func TestMap(t *testing.T) {
	text, c := newTestLocal(t, [2]int{8, 9}, [2]int{1, 3}, [2]int{1, 2})

	var got []*Interval
	c.Map(func(i *Interval) {
		got = append(got, i)
	})
	assert.Equal(t, [][2]int{{1, 2}, {1, 3}, {8, 9}}, positions(text, got))
}
