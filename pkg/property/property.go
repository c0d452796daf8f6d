package property

import (
	"fmt"
	"sort"

	"k8s.io/apimachinery/pkg/labels"
)

// RangeLabelsKey is the reserved property naming the interval collections a
// range belongs to. Its value is a []string.
const RangeLabelsKey = "referenceRangeLabels"

// Set is a property bag attached to intervals and position references.
type Set map[string]any

// Clone returns a shallow copy of the set
// - slices stored under RangeLabelsKey are copied
func (r Set) Clone() Set {
	if r == nil {
		return nil
	}
	ret := make(Set, len(r))
	for k, v := range r {
		if l, ok := v.([]string); ok {
			v = append([]string(nil), l...)
		}
		ret[k] = v
	}
	return ret
}

// Keys returns the property keys in sorted order.
func (r Set) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RangeLabels returns the range labels stored in the set, if any.
func (r Set) RangeLabels() []string {
	switch v := r[RangeLabelsKey].(type) {
	case []string:
		return v
	case []any:
		// sets decoded from the wire lose the concrete slice type
		ret := make([]string, 0, len(v))
		for _, l := range v {
			if s, ok := l.(string); ok {
				ret = append(ret, s)
			}
		}
		return ret
	}
	return nil
}

// Labels returns a labels.Set view of the properties, so intervals can be
// selected with a labels.Selector.
// - string values are used as is
// - a single range label is exposed under RangeLabelsKey
// - all other values are skipped
func (r Set) Labels() labels.Set {
	ret := labels.Set{}
	for k, v := range r {
		switch v := v.(type) {
		case string:
			ret[k] = v
		case fmt.Stringer:
			ret[k] = v.String()
		}
	}
	if l := r.RangeLabels(); len(l) == 1 {
		ret[RangeLabelsKey] = l[0]
	}
	return ret
}

// Add merges newProps into oldProps and returns the result. oldProps is
// created when nil. Key collisions are resolved by the combining policy.
func Add(oldProps, newProps Set, combining Combining) Set {
	if oldProps == nil {
		oldProps = Set{}
	}
	for k, v := range newProps {
		existing, ok := oldProps[k]
		if !ok {
			if v != nil {
				oldProps[k] = v
			}
			continue
		}
		v = combining.combine(k, existing, v)
		if v == nil {
			delete(oldProps, k)
			continue
		}
		oldProps[k] = v
	}
	return oldProps
}
