package lbvh

import (
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
)

// Point is a 2D or 3D coordinate. 2D points leave Z at zero.
type Point[T constraints.Float] [3]T

// Point2 returns a 2D point (Z = 0)
func Point2[T constraints.Float](x, y T) Point[T] {
	return Point[T]{x, y, 0}
}

// AABB is an axis-aligned bounding box.
// The zero extent in Z is how 2D boxes are represented.
type AABB[T constraints.Float] struct {
	Min Point[T]
	Max Point[T]
}

// EmptyBox returns a box with +Inf minima and -Inf maxima, which contains nothing.
// Include and Union grow it.
func EmptyBox[T constraints.Float]() AABB[T] {
	inf := T(math.Inf(1))
	return AABB[T]{
		Min: Point[T]{inf, inf, inf},
		Max: Point[T]{-inf, -inf, -inf},
	}
}

// NewBox2 creates a 2D box. The corners may be given in any order.
func NewBox2[T constraints.Float](minX, minY, maxX, maxY T) AABB[T] {
	b := EmptyBox[T]()
	b.Include(Point[T]{minX, minY, 0})
	b.Include(Point[T]{maxX, maxY, 0})
	return b
}

// NewBox3 creates a 3D box. The corners may be given in any order.
func NewBox3[T constraints.Float](minX, minY, minZ, maxX, maxY, maxZ T) AABB[T] {
	b := EmptyBox[T]()
	b.Include(Point[T]{minX, minY, minZ})
	b.Include(Point[T]{maxX, maxY, maxZ})
	return b
}

// PointBox returns the degenerate box that holds only p
func PointBox[T constraints.Float](p Point[T]) AABB[T] {
	return AABB[T]{Min: p, Max: p}
}

// BoxesFromFlat converts a flat coordinate array into boxes.
// Each box occupies 2*dims values: the min corner followed by the max corner.
// dims must be 2 or 3.
func BoxesFromFlat[T constraints.Float](coords []T, dims int) ([]AABB[T], error) {
	if dims != 2 && dims != 3 {
		return nil, fmt.Errorf("%w: dims must be 2 or 3, got %v", ErrInvalidInput, dims)
	}
	stride := 2 * dims
	if len(coords)%stride != 0 {
		return nil, fmt.Errorf("%w: %v coordinates is not a multiple of %v", ErrInvalidInput, len(coords), stride)
	}
	boxes := make([]AABB[T], len(coords)/stride)
	for i := range boxes {
		c := coords[i*stride : (i+1)*stride]
		var lo, hi Point[T]
		copy(lo[:dims], c[:dims])
		copy(hi[:dims], c[dims:])
		boxes[i] = EmptyBox[T]()
		boxes[i].Include(lo)
		boxes[i].Include(hi)
	}
	return boxes, nil
}

// IsEmpty returns true if the box has not had anything included in it
func (a *AABB[T]) IsEmpty() bool {
	return a.Min[0] > a.Max[0] || a.Min[1] > a.Max[1] || a.Min[2] > a.Max[2]
}

// Include grows the box to contain p.
// NaN coordinates are ignored, so a NaN never replaces a bound.
func (a *AABB[T]) Include(p Point[T]) {
	for d := 0; d < 3; d++ {
		if p[d] < a.Min[d] {
			a.Min[d] = p[d]
		}
		if p[d] > a.Max[d] {
			a.Max[d] = p[d]
		}
	}
}

// Union grows the box to contain b. As with Include, NaN bounds in b are ignored.
func (a *AABB[T]) Union(b *AABB[T]) {
	for d := 0; d < 3; d++ {
		if b.Min[d] < a.Min[d] {
			a.Min[d] = b.Min[d]
		}
		if b.Max[d] > a.Max[d] {
			a.Max[d] = b.Max[d]
		}
	}
}

// ClosestPoint returns the point of the box nearest to p, which is p itself when p is inside
func (a *AABB[T]) ClosestPoint(p Point[T]) Point[T] {
	for d := 0; d < 3; d++ {
		if p[d] < a.Min[d] {
			p[d] = a.Min[d]
		} else if p[d] > a.Max[d] {
			p[d] = a.Max[d]
		}
	}
	return p
}

// Center returns the midpoint of the box
func (a *AABB[T]) Center() Point[T] {
	return Point[T]{
		(a.Min[0] + a.Max[0]) / 2,
		(a.Min[1] + a.Max[1]) / 2,
		(a.Min[2] + a.Max[2]) / 2,
	}
}

// Overlaps returns true if the two boxes touch or intersect
func (a *AABB[T]) Overlaps(b *AABB[T]) bool {
	return b.Max[0] >= a.Min[0] && b.Min[0] <= a.Max[0] &&
		b.Max[1] >= a.Min[1] && b.Min[1] <= a.Max[1] &&
		b.Max[2] >= a.Min[2] && b.Min[2] <= a.Max[2]
}

// Contains returns true if p lies inside or on the boundary of the box
func (a *AABB[T]) Contains(p Point[T]) bool {
	return p[0] >= a.Min[0] && p[0] <= a.Max[0] &&
		p[1] >= a.Min[1] && p[1] <= a.Max[1] &&
		p[2] >= a.Min[2] && p[2] <= a.Max[2]
}

// SqDistance returns the squared distance from p to the closest point of the box.
// It is zero when p is inside.
func (a *AABB[T]) SqDistance(p Point[T]) float64 {
	sum := 0.0
	for d := 0; d < 3; d++ {
		v := float64(p[d])
		if lo := float64(a.Min[d]); v < lo {
			sum += (lo - v) * (lo - v)
		} else if hi := float64(a.Max[d]); v > hi {
			sum += (v - hi) * (v - hi)
		}
	}
	return sum
}

// SqDistancePoints is the squared euclidean distance between two points
func SqDistancePoints[T constraints.Float](a, b Point[T]) float64 {
	sum := 0.0
	for d := 0; d < 3; d++ {
		v := float64(a[d]) - float64(b[d])
		sum += v * v
	}
	return sum
}

// Ray is a half-line, with the reciprocal direction precomputed for slab tests
type Ray[T constraints.Float] struct {
	Origin Point[T]
	Dir    Point[T]

	inv      [3]float64
	parallel [3]bool
}

// NewRay prepares a ray for repeated box tests
func NewRay[T constraints.Float](origin, dir Point[T]) Ray[T] {
	r := Ray[T]{Origin: origin, Dir: dir}
	for d := 0; d < 3; d++ {
		if math.Abs(float64(dir[d])) < 1e-12 {
			r.parallel[d] = true
		} else {
			r.inv[d] = 1 / float64(dir[d])
		}
	}
	return r
}

// IntersectRay performs a slab test.
// It returns whether the ray hits the box and the ray parameter of the entry point
// (zero or negative if the origin is inside the box).
func (a *AABB[T]) IntersectRay(r *Ray[T]) (bool, float64) {
	if a.IsEmpty() {
		return false, 0
	}
	tmin, tmax := math.Inf(-1), math.Inf(1)
	for d := 0; d < 3; d++ {
		o := float64(r.Origin[d])
		lo, hi := float64(a.Min[d]), float64(a.Max[d])
		if r.parallel[d] {
			if o < lo || o > hi {
				return false, 0
			}
			continue
		}
		t1 := (lo - o) * r.inv[d]
		t2 := (hi - o) * r.inv[d]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = max(tmin, t1)
		tmax = min(tmax, t2)
	}
	if tmax < 0 || tmin > tmax {
		return false, 0
	}
	return true, tmin
}
