package tree

// Item is a key of the tree.
// - Compare orders the keys
// - Union summarises a subtree, so a subtree can be skipped when its union does not overlap a probe
type Item[T any] interface {
	Compare(other T) int
	Overlaps(other T) bool
	Union(other T) T
}

// FilterFunc[T] is called on each result to see if it belongs in the resulting set
type FilterFunc[T any] func(payload T) bool

// treeIteratorNext is an indicator to know what Next() should return
// for the current node.
type treeIteratorNext int

const (
	nextLeft treeIteratorNext = iota
	nextSelf
	nextRight
	nextUp
)

// Tree is a height balanced binary tree whose nodes are augmented with the
// union of their subtree, which makes it usable as an interval overlap index.
// Equal keys are all kept; a new key goes after the keys it compares equal to.
type Tree[T Item[T]] struct {
	name  string        // name of the tree
	root  uint          // 0 when the tree is empty
	nodes []treeNode[T] // [0] is unused so that 0 can mean "no node"
}

func NewTree[T Item[T]](name string) *Tree[T] {
	return &Tree[T]{
		name:  name,
		nodes: make([]treeNode[T], 1),
	}
}

// Len returns the number of keys in the tree
func (r *Tree[T]) Len() int {
	return len(r.nodes) - 1
}

func (r *Tree[T]) IsEmpty() bool {
	return r.root == 0
}

// Put adds a key to the tree
func (r *Tree[T]) Put(key T) {
	r.nodes = append(r.nodes, treeNode[T]{Key: key, Span: key, Height: 1})
	r.root = r.insert(r.root, uint(len(r.nodes)-1))
}

func (r *Tree[T]) insert(nodeIndex, newNodeIndex uint) uint {
	if nodeIndex == 0 {
		return newNodeIndex
	}
	if r.nodes[newNodeIndex].Key.Compare(r.nodes[nodeIndex].Key) < 0 {
		r.nodes[nodeIndex].Left = r.insert(r.nodes[nodeIndex].Left, newNodeIndex)
	} else {
		r.nodes[nodeIndex].Right = r.insert(r.nodes[nodeIndex].Right, newNodeIndex)
	}
	return r.rebalance(nodeIndex)
}

// Match returns every key that overlaps the probe, in key order
func (r *Tree[T]) Match(probe T) []T {
	return r.MatchWithFilter(probe, nil)
}

// MatchWithFilter returns every key that overlaps the probe and passes the
// optional filter func, in key order
func (r *Tree[T]) MatchWithFilter(probe T, filterFunc FilterFunc[T]) []T {
	return r.match(nil, r.root, probe, filterFunc)
}

// ret is only appended to
func (r *Tree[T]) match(ret []T, nodeIndex uint, probe T, filterFunc FilterFunc[T]) []T {
	if nodeIndex == 0 {
		return ret
	}
	node := &r.nodes[nodeIndex]
	if !node.Span.Overlaps(probe) {
		// nothing in this subtree can overlap
		return ret
	}
	ret = r.match(ret, node.Left, probe, filterFunc)
	if node.Key.Overlaps(probe) && (filterFunc == nil || filterFunc(node.Key)) {
		ret = append(ret, node.Key)
	}
	return r.match(ret, node.Right, probe, filterFunc)
}

// Map calls fn on every key in key order
func (r *Tree[T]) Map(fn func(key T)) {
	iter := r.Iterate()
	for iter.Next() {
		fn(iter.Val())
	}
}

// Keys returns all keys in key order
func (r *Tree[T]) Keys() []T {
	keys := make([]T, 0, r.Len())
	r.Map(func(key T) {
		keys = append(keys, key)
	})
	return keys
}

// TreeIterator[T] is a stateful in-order iterator over a tree.
type TreeIterator[T Item[T]] struct {
	t           *Tree[T]
	nodeIndex   uint
	nodeHistory []uint
	next        treeIteratorNext
}

// Iterate returns an iterator to find all keys from a tree in order. It is
// important for the tree to not be modified while using the iterator.
func (r *Tree[T]) Iterate() *TreeIterator[T] {
	return &TreeIterator[T]{
		t:           r,
		nodeIndex:   r.root,
		nodeHistory: []uint{},
		next:        nextLeft,
	}
}

// Next jumps to the next key of a tree. It returns false if there
// is none.
func (iter *TreeIterator[T]) Next() bool {
	for {
		if iter.nodeIndex == 0 {
			return false
		}
		node := &iter.t.nodes[iter.nodeIndex]
		switch iter.next {
		case nextLeft:
			if node.Left != 0 {
				iter.nodeHistory = append(iter.nodeHistory, iter.nodeIndex)
				iter.nodeIndex = node.Left
				continue
			}
			iter.next = nextSelf
		case nextSelf:
			iter.next = nextRight
			return true
		case nextRight:
			if node.Right != 0 {
				iter.nodeHistory = append(iter.nodeHistory, iter.nodeIndex)
				iter.nodeIndex = node.Right
				iter.next = nextLeft
				continue
			}
			// We need to backtrack
			iter.next = nextUp
		case nextUp:
			nodeHistoryLen := len(iter.nodeHistory)
			if nodeHistoryLen == 0 {
				iter.nodeIndex = 0
				return false
			}
			previousIndex := iter.nodeHistory[nodeHistoryLen-1]
			previousNode := iter.t.nodes[previousIndex]
			iter.nodeHistory = iter.nodeHistory[:nodeHistoryLen-1]
			switch iter.nodeIndex {
			case previousNode.Left:
				iter.next = nextSelf
			case previousNode.Right:
				iter.next = nextUp
			default:
				panic("unexpected state")
			}
			iter.nodeIndex = previousIndex
		}
	}
}

// Val returns the key the iterator points at.
func (iter *TreeIterator[T]) Val() T {
	return iter.t.nodes[iter.nodeIndex].Key
}
