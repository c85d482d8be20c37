// Package lbvh builds linear bounding volume hierarchies over axis-aligned boxes,
// in parallel, and answers proximity queries against them.
//
// Leaves are ordered along a space-filling curve, the hierarchy is derived from the
// shared prefixes of the sorted curve codes (Karras 2012), and node boxes are filled in
// by a single bottom-up pass.
package lbvh

import "golang.org/x/exp/constraints"

// None marks the absence of a node, such as the parent of the root
const None = -1

// Tree is a linear bounding volume hierarchy, built by Build.
//
// Nodes share one address space. For a tree with N leaves, ids [0, N-1) are internal nodes
// and id N-1+k is leaf k. Leaves are numbered in curve order, not input order; use
// OriginalIndex to map a leaf back to the box that was passed to Build.
// The root is node 0, whenever N > 0.
//
// A Tree is immutable, and may be queried from many goroutines at once.
type Tree[T constraints.Float] struct {
	curve  Curve
	bounds AABB[T]

	leafBoxes  []AABB[T] // N, in curve order
	codes      []uint64  // N, ascending
	leafOrder  []int32   // N, sorted position -> original index
	parents    []int32   // 2N-1
	left       []int32   // N-1
	right      []int32   // N-1
	innerBoxes []AABB[T] // N-1
}

// Len returns the number of leaves
func (t *Tree[T]) Len() int {
	return len(t.leafBoxes)
}

// NumInner returns the number of internal nodes, which is Len()-1 for a non-empty tree
func (t *Tree[T]) NumInner() int {
	return len(t.left)
}

// Curve returns the space-filling curve the leaves were ordered by
func (t *Tree[T]) Curve() Curve {
	return t.curve
}

// Bounds returns the union of all input boxes. It is empty for an empty tree.
func (t *Tree[T]) Bounds() AABB[T] {
	return t.bounds
}

// Root returns the root node id, or false if the tree is empty
func (t *Tree[T]) Root() (int, bool) {
	return 0, len(t.leafBoxes) != 0
}

// IsLeaf returns true if node addresses a leaf
func (t *Tree[T]) IsLeaf(node int) bool {
	return node >= len(t.left)
}

// LeafOf converts a leaf node id into a leaf position in [0, Len())
func (t *Tree[T]) LeafOf(node int) int {
	return node - len(t.left)
}

// LeafNode converts a leaf position into its node id
func (t *Tree[T]) LeafNode(leaf int) int {
	return leaf + len(t.left)
}

// Children returns the two children of an internal node
func (t *Tree[T]) Children(node int) (left, right int) {
	return int(t.left[node]), int(t.right[node])
}

// Parent returns the parent of a node, or None for the root
func (t *Tree[T]) Parent(node int) int {
	return int(t.parents[node])
}

// NodeBox returns the bounding box of any node
func (t *Tree[T]) NodeBox(node int) AABB[T] {
	return *t.nodeBox(node)
}

func (t *Tree[T]) nodeBox(node int) *AABB[T] {
	inner := len(t.left)
	if node >= inner {
		return &t.leafBoxes[node-inner]
	}
	return &t.innerBoxes[node]
}

// LeafBox returns the box of a leaf, by sorted position
func (t *Tree[T]) LeafBox(leaf int) AABB[T] {
	return t.leafBoxes[leaf]
}

// Code returns the curve code of a leaf, by sorted position
func (t *Tree[T]) Code(leaf int) uint64 {
	return t.codes[leaf]
}

// OriginalIndex maps a leaf position to the index of the box that was given to Build
func (t *Tree[T]) OriginalIndex(leaf int) int {
	return int(t.leafOrder[leaf])
}
