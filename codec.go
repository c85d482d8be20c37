package lbvh

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/exp/constraints"
)

const codecVersion = 1

// wireTree is the serialized form of a Tree.
// Node boxes are stored, so a decoded tree needs no rebuild.
type wireTree[T constraints.Float] struct {
	Version    int       `cbor:"1,keyasint"`
	Curve      Curve     `cbor:"2,keyasint"`
	Bounds     AABB[T]   `cbor:"3,keyasint"`
	LeafBoxes  []AABB[T] `cbor:"4,keyasint"`
	Codes      []uint64  `cbor:"5,keyasint"`
	LeafOrder  []int32   `cbor:"6,keyasint"`
	Parents    []int32   `cbor:"7,keyasint"`
	Left       []int32   `cbor:"8,keyasint"`
	Right      []int32   `cbor:"9,keyasint"`
	InnerBoxes []AABB[T] `cbor:"10,keyasint"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	decMode, err = cbor.DecOptions{
		MaxArrayElements: 2147483647,
		MaxMapPairs:      1024,
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

// MarshalBinary serializes the tree as CBOR
func (t *Tree[T]) MarshalBinary() ([]byte, error) {
	w := wireTree[T]{
		Version:    codecVersion,
		Curve:      t.curve,
		Bounds:     t.bounds,
		LeafBoxes:  t.leafBoxes,
		Codes:      t.codes,
		LeafOrder:  t.leafOrder,
		Parents:    t.parents,
		Left:       t.left,
		Right:      t.right,
		InnerBoxes: t.innerBoxes,
	}
	return encMode.Marshal(&w)
}

// UnmarshalBinary replaces the tree with one produced by MarshalBinary.
// The structure is checked before it is accepted, so that queries on the result cannot
// index out of range or loop forever. Errors wrap ErrCorruptTree.
func (t *Tree[T]) UnmarshalBinary(data []byte) error {
	var w wireTree[T]
	if err := decMode.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptTree, err)
	}
	if err := w.validate(); err != nil {
		return err
	}
	*t = Tree[T]{
		curve:      w.Curve,
		bounds:     w.Bounds,
		leafBoxes:  w.LeafBoxes,
		codes:      w.Codes,
		leafOrder:  w.LeafOrder,
		parents:    w.Parents,
		left:       w.Left,
		right:      w.Right,
		innerBoxes: w.InnerBoxes,
	}
	return nil
}

func (w *wireTree[T]) validate() error {
	corrupt := func(format string, args ...any) error {
		return fmt.Errorf("%w: %v", ErrCorruptTree, fmt.Sprintf(format, args...))
	}
	if w.Version != codecVersion {
		return corrupt("unsupported version %v", w.Version)
	}
	if w.Curve.codeBits() == 0 {
		return corrupt("unknown curve %v", int(w.Curve))
	}
	n := len(w.LeafBoxes)
	inner := max(n-1, 0)
	nodes := max(2*n-1, 0)
	if len(w.Codes) != n || len(w.LeafOrder) != n || len(w.Parents) != nodes ||
		len(w.Left) != inner || len(w.Right) != inner || len(w.InnerBoxes) != inner {
		return corrupt("array lengths do not match %v leaves", n)
	}

	seen := make([]bool, n)
	for i, o := range w.LeafOrder {
		if o < 0 || int(o) >= n || seen[o] {
			return corrupt("leaf order entry %v is not a permutation", i)
		}
		seen[o] = true
	}
	for i := 1; i < n; i++ {
		if w.Codes[i] < w.Codes[i-1] {
			return corrupt("codes are not sorted at %v", i)
		}
	}

	// Every node except the root must be the child of exactly one internal node,
	// and that node must be its recorded parent.
	if nodes != 0 && w.Parents[0] != None {
		return corrupt("root has a parent")
	}
	childOf := make([]int32, nodes)
	for i := range childOf {
		childOf[i] = None
	}
	for i := 0; i < inner; i++ {
		for _, c := range [2]int32{w.Left[i], w.Right[i]} {
			if c <= 0 || int(c) >= nodes || childOf[c] != None || w.Parents[c] != int32(i) {
				return corrupt("bad child %v of node %v", c, i)
			}
			childOf[c] = int32(i)
		}
	}
	// Parent links must lead to the root without revisiting a node
	reachesRoot := make([]bool, nodes)
	for i := 1; i < nodes; i++ {
		steps := 0
		for node := int32(i); node != 0 && !reachesRoot[node]; node = w.Parents[node] {
			if steps++; steps > nodes {
				return corrupt("cycle through node %v", i)
			}
		}
		reachesRoot[i] = true
	}
	return nil
}
