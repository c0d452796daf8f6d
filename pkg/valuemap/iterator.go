package valuemap

// Iterator walks a snapshot of the map's keys in sorted order.
type Iterator struct {
	current int
	keys    []string
	table   map[string]*entry
}

func (r *Iterator) Entry() Entry {
	return r.table[r.keys[r.current]]
}

func (r *Iterator) Value() any {
	return r.table[r.keys[r.current]].value
}

func (r *Iterator) Key() string {
	return r.keys[r.current]
}

func (r *Iterator) Next() bool {
	r.current++
	return r.current < len(r.keys)
}
