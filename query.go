package lbvh

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Search for all boxes that overlap the given query box.
// The results are the indices the boxes were given to Build.
func (t *Tree[T]) Search(query AABB[T]) []int {
	results := []int{}
	return t.SearchFast(query, results)
}

// SearchFast accepts a 'results' as input. If you are performing millions of queries,
// then reusing a 'results' slice will reduce the number of allocations.
func (t *Tree[T]) SearchFast(query AABB[T], results []int) []int {
	results = results[:0]
	t.Traverse(func(box *AABB[T]) bool {
		return box.Overlaps(&query)
	}, func(leaf int) {
		results = append(results, int(t.leafOrder[leaf]))
	})
	return results
}

// RayCast returns every box hit by the ray, in no particular order.
// Results are appended to 'results' after truncating it, as with SearchFast.
func (t *Tree[T]) RayCast(ray Ray[T], results []int) []int {
	results = results[:0]
	t.Traverse(func(box *AABB[T]) bool {
		hit, _ := box.IntersectRay(&ray)
		return hit
	}, func(leaf int) {
		results = append(results, int(t.leafOrder[leaf]))
	})
	return results
}

// Nearest is the result of a closest point query
type Nearest[T constraints.Float] struct {
	Index  int      // Index of the box, as given to Build
	SqDist float64  // Squared distance from the query point
	Point  Point[T] // Closest point on the box. Zero when a custom distance is used.
}

// ClosestPoint finds the box nearest to p, measuring from p to the closest point on each box.
// For a tree built over points (degenerate boxes), this is the nearest point, and
// Nearest.Point is its position.
// When several boxes are equally close, the result is one of them.
// Returns false only if the tree is empty.
func (t *Tree[T]) ClosestPoint(p Point[T]) (Nearest[T], bool) {
	return t.NearestFunc(p, nil)
}

// NearestFunc finds the primitive nearest to p.
// sqDist(index) must return the squared distance from p to primitive 'index' (as given to Build),
// and must never be less than the squared distance from p to that primitive's box.
// If sqDist is nil, the box distance is used.
func (t *Tree[T]) NearestFunc(p Point[T], sqDist func(index int) float64) (Nearest[T], bool) {
	best := Nearest[T]{Index: None, SqDist: math.Inf(1)}
	t.Traverse(func(box *AABB[T]) bool {
		return box.SqDistance(p) <= best.SqDist
	}, func(leaf int) {
		index := int(t.leafOrder[leaf])
		if sqDist != nil {
			if d := sqDist(index); d < best.SqDist || (d == best.SqDist && best.Index == None) {
				best = Nearest[T]{Index: index, SqDist: d}
			}
			return
		}
		box := &t.leafBoxes[leaf]
		if d := box.SqDistance(p); d < best.SqDist || (d == best.SqDist && best.Index == None) {
			best = Nearest[T]{Index: index, SqDist: d, Point: box.ClosestPoint(p)}
		}
	})
	return best, best.Index != None
}

// ClosestPoints runs ClosestPoint for every query point, using exec to run queries in parallel.
// Entries for which no result exists (an empty tree) have Index = None.
// If exec is nil, a default PoolExecutor is used.
func (t *Tree[T]) ClosestPoints(exec Executor, points []Point[T]) []Nearest[T] {
	if exec == nil {
		exec = NewPoolExecutor()
	}
	out := make([]Nearest[T], len(points))
	exec.For(len(points), func(i int) {
		out[i], _ = t.ClosestPoint(points[i])
	})
	return out
}
