package lbvh

// Traverse walks the tree from the root.
// A node is entered only if shouldVisit returns true for its box; this includes the root
// and the leaves. onLeaf is called with the sorted position of every leaf that is entered.
//
// shouldVisit is evaluated when a node is taken off the stack, so a predicate that reads
// state updated by onLeaf (such as a best distance so far) prunes with the latest value.
// Left subtrees are entered before right subtrees, but callers should not rely on any order.
//
// Traverse does not modify the tree, and may be called concurrently.
func (t *Tree[T]) Traverse(shouldVisit func(box *AABB[T]) bool, onLeaf func(leaf int)) {
	if len(t.leafBoxes) == 0 {
		// Empty tree
		return
	}
	inner := int32(len(t.left))

	stack := make([]int32, 0, 64)
	stack = append(stack, 0)
	for len(stack) != 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !shouldVisit(t.nodeBox(int(node))) {
			continue
		}
		if node >= inner {
			onLeaf(int(node - inner))
			continue
		}
		// push right first, so that left is popped first
		stack = append(stack, t.right[node], t.left[node])
	}
}
