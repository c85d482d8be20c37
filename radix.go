package lbvh

import (
	"math/bits"
	"sync/atomic"

	"golang.org/x/exp/constraints"
)

// delta returns the length of the common prefix of the codes at positions a and b.
// It returns -1 when b is out of range, which stops range expansion at the ends of the array.
// Equal codes are told apart by comparing the positions themselves, and that count is
// offset by codeBits so that it is longer than any real code prefix.
func delta(a, b int, codes []uint64, codeBits int) int {
	if b < 0 || b >= len(codes) {
		return -1
	}
	x := codes[a] ^ codes[b]
	if x == 0 {
		return clz(uint64(a)^uint64(b), codeBits) + codeBits
	}
	return clz(x, codeBits)
}

// clz counts leading zeros in the low 'width' bits of x
func clz(x uint64, width int) int {
	if width == 32 {
		return bits.LeadingZeros32(uint32(x))
	}
	return bits.LeadingZeros64(x)
}

// buildTopology computes the children of every internal node, and the parent of every node,
// from the sorted codes. This is Karras' algorithm from "Maximizing Parallelism in the
// Construction of BVHs, Octrees, and k-d Trees" (HPG 2012).
// Each internal node is computed independently.
func buildTopology(exec Executor, codes []uint64, codeBits int, parents, left, right []int32) {
	inner := len(codes) - 1
	if inner < 1 {
		if len(parents) != 0 {
			parents[0] = None
		}
		return
	}

	exec.For(inner, func(i int) {
		// direction of the range owned by node i
		d := 1
		if delta(i, i+1, codes, codeBits)-delta(i, i-1, codes, codeBits) < 0 {
			d = -1
		}

		// upper bound for the length of the range
		minDelta := delta(i, i-d, codes, codeBits)
		lmax := 2
		for delta(i, i+lmax*d, codes, codeBits) > minDelta {
			lmax *= 2
		}

		// binary search for the other end
		l := 0
		for t := lmax / 2; t >= 1; t /= 2 {
			if delta(i, i+(l+t)*d, codes, codeBits) > minDelta {
				l += t
			}
		}
		j := i + l*d

		// binary search for the split position
		deltaNode := delta(i, j, codes, codeBits)
		s := 0
		for div := 2; ; div *= 2 {
			t := (l + div - 1) / div
			if delta(i, i+(s+t)*d, codes, codeBits) > deltaNode {
				s += t
			}
			if t == 1 {
				break
			}
		}
		split := i + s*d + min(d, 0)

		if min(i, j) == split {
			left[i] = int32(split + inner)
		} else {
			left[i] = int32(split)
		}
		if max(i, j) == split+1 {
			right[i] = int32(split + 1 + inner)
		} else {
			right[i] = int32(split + 1)
		}
		parents[left[i]] = int32(i)
		parents[right[i]] = int32(i)

		if i == 0 {
			parents[0] = None
		}
	})
}

// propagateBoxes fills in the box of every internal node, walking up from each leaf.
// Every internal node has exactly two children, so a per-node counter lets the first walk
// to arrive stop, and the second (which knows both children are done) compute the union.
// Each internal box is therefore written exactly once.
func propagateBoxes[T constraints.Float](exec Executor, t *Tree[T]) {
	inner := len(t.left)
	if inner == 0 {
		return
	}
	counters := make([]atomic.Int32, inner)

	exec.For(len(t.leafBoxes), func(i int) {
		node := t.parents[inner+i]
		for node != None {
			if counters[node].Add(1) == 1 {
				// the sibling subtree is still being built, and its walk will continue from here
				return
			}
			box := *t.nodeBox(int(t.left[node]))
			box.Union(t.nodeBox(int(t.right[node])))
			t.innerBoxes[node] = box
			node = t.parents[node]
		}
	})
}
