package tree

type treeNode[T Item[T]] struct {
	Left   uint // left node index: 0 for not set
	Right  uint // right node index: 0 for not set
	Height int
	Key    T
	// Span is the union of every key in the subtree rooted at this node
	Span T
}

func (r *Tree[T]) height(nodeIndex uint) int {
	if nodeIndex == 0 {
		return 0
	}
	return r.nodes[nodeIndex].Height
}

// update recomputes the height and span of a node from its children
func (r *Tree[T]) update(nodeIndex uint) {
	node := &r.nodes[nodeIndex]
	node.Height = 1 + max(r.height(node.Left), r.height(node.Right))
	node.Span = node.Key
	if node.Left != 0 {
		node.Span = node.Span.Union(r.nodes[node.Left].Span)
	}
	if node.Right != 0 {
		node.Span = node.Span.Union(r.nodes[node.Right].Span)
	}
}

func (r *Tree[T]) rotateLeft(nodeIndex uint) uint {
	right := r.nodes[nodeIndex].Right
	if right == 0 {
		panic("rotateLeft on a node without right child - should be impossible!")
	}
	r.nodes[nodeIndex].Right = r.nodes[right].Left
	r.nodes[right].Left = nodeIndex
	r.update(nodeIndex)
	r.update(right)
	return right
}

func (r *Tree[T]) rotateRight(nodeIndex uint) uint {
	left := r.nodes[nodeIndex].Left
	if left == 0 {
		panic("rotateRight on a node without left child - should be impossible!")
	}
	r.nodes[nodeIndex].Left = r.nodes[left].Right
	r.nodes[left].Right = nodeIndex
	r.update(nodeIndex)
	r.update(left)
	return left
}

// rebalance restores the height invariant at nodeIndex and returns the index
// of the node now rooting this subtree
func (r *Tree[T]) rebalance(nodeIndex uint) uint {
	r.update(nodeIndex)
	node := r.nodes[nodeIndex]
	balance := r.height(node.Left) - r.height(node.Right)
	switch {
	case balance > 1:
		left := r.nodes[node.Left]
		if r.height(left.Left) < r.height(left.Right) {
			r.nodes[nodeIndex].Left = r.rotateLeft(node.Left)
		}
		return r.rotateRight(nodeIndex)
	case balance < -1:
		right := r.nodes[node.Right]
		if r.height(right.Right) < r.height(right.Left) {
			r.nodes[nodeIndex].Right = r.rotateRight(node.Right)
		}
		return r.rotateLeft(nodeIndex)
	}
	return nodeIndex
}
