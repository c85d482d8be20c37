package lbvh

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/exp/constraints"
)

// reduceChunk is the number of boxes each task of the bounds reduction unions
const reduceChunk = 1024

// Builder holds the configuration for building trees.
// It can also collect boxes one at a time, with Reserve, Add and Finish.
type Builder[T constraints.Float] struct {
	Curve    Curve       // Default CurveMorton32
	Executor Executor    // Default NewPoolExecutor()
	Logger   *zap.Logger // Default zap.NewNop()

	boxes []AABB[T]
}

// NewBuilder creates a Builder with default settings
func NewBuilder[T constraints.Float]() *Builder[T] {
	return &Builder[T]{
		Curve:    CurveMorton32,
		Executor: NewPoolExecutor(),
		Logger:   zap.NewNop(),
	}
}

// Build creates a tree from boxes, using default settings
func Build[T constraints.Float](boxes []AABB[T]) (*Tree[T], error) {
	return NewBuilder[T]().Build(boxes, len(boxes))
}

// Reserve enough space for the given number of boxes
func (b *Builder[T]) Reserve(size int) {
	if size > cap(b.boxes) {
		boxes := make([]AABB[T], len(b.boxes), size)
		copy(boxes, b.boxes)
		b.boxes = boxes
	}
}

// Add a new box, and return its index.
// The index of the box is zero based, and corresponds 1:1 with the insertion of order of the boxes.
// This is the index that queries return.
func (b *Builder[T]) Add(box AABB[T]) int {
	b.boxes = append(b.boxes, box)
	return len(b.boxes) - 1
}

// Finish builds a tree from the boxes that were added.
// The builder is reset, so it can be reused.
func (b *Builder[T]) Finish() (*Tree[T], error) {
	boxes := b.boxes
	b.boxes = nil
	return b.Build(boxes, len(boxes))
}

// Build creates a tree over the first n boxes.
// The input is not modified, and the result does not depend on the Executor.
func (b *Builder[T]) Build(boxes []AABB[T], n int) (*Tree[T], error) {
	log := b.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if err := b.validate(boxes, n); err != nil {
		log.Debug("rejected lbvh input", zap.Int("n", n), zap.Int("boxes", len(boxes)), zap.Error(err))
		return nil, err
	}
	exec := b.Executor
	if exec == nil {
		exec = NewPoolExecutor()
	}

	start := time.Now()
	t := newTree[T](b.Curve, n)
	if n == 0 {
		return t, nil
	}

	// copy, so that we don't reorder the input, and fix up any inverted corners
	input := make([]AABB[T], n)
	exec.For(n, func(i int) {
		input[i] = EmptyBox[T]()
		input[i].Include(boxes[i].Min)
		input[i].Include(boxes[i].Max)
	})

	t.bounds = reduceBounds(exec, input)
	codes := computeCodes(exec, b.Curve, input, &t.bounds)
	t.codes, t.leafOrder = sortByCode(exec, codes)
	t.leafBoxes = reorder(exec, t.leafOrder, input)

	buildTopology(exec, t.codes, b.Curve.codeBits(), t.parents, t.left, t.right)
	propagateBoxes(exec, t)

	log.Debug("built lbvh",
		zap.Int("leaves", n),
		zap.Stringer("curve", b.Curve),
		zap.Int("workers", workerCount(exec)),
		zap.Duration("elapsed", time.Since(start)))
	return t, nil
}

func (b *Builder[T]) validate(boxes []AABB[T], n int) error {
	if n < 0 {
		return fmt.Errorf("%w: negative box count %v", ErrInvalidInput, n)
	}
	if n > len(boxes) {
		return fmt.Errorf("%w: box count %v exceeds %v supplied boxes", ErrInvalidInput, n, len(boxes))
	}
	if n > math.MaxInt32/2 {
		return fmt.Errorf("%w: %v boxes is too many", ErrInvalidInput, n)
	}
	if b.Curve.codeBits() == 0 {
		return fmt.Errorf("%w: unknown curve %v", ErrInvalidInput, int(b.Curve))
	}
	if b.Curve == CurveHilbert {
		for i := 0; i < n; i++ {
			if boxes[i].Min[2] != 0 || boxes[i].Max[2] != 0 {
				return fmt.Errorf("%w: the hilbert curve is 2D only, but box %v has a Z extent", ErrInvalidInput, i)
			}
		}
	}
	return nil
}

func newTree[T constraints.Float](curve Curve, n int) *Tree[T] {
	t := &Tree[T]{
		curve:  curve,
		bounds: EmptyBox[T](),
	}
	if n == 0 {
		return t
	}
	t.parents = make([]int32, 2*n-1)
	t.left = make([]int32, n-1)
	t.right = make([]int32, n-1)
	t.innerBoxes = make([]AABB[T], n-1)
	return t
}

// reduceBounds computes the union of all boxes.
// Each task reduces one chunk, and the partial results are combined in chunk order.
func reduceBounds[T constraints.Float](exec Executor, boxes []AABB[T]) AABB[T] {
	nchunks := (len(boxes) + reduceChunk - 1) / reduceChunk
	partial := make([]AABB[T], nchunks)
	exec.For(nchunks, func(c int) {
		box := EmptyBox[T]()
		end := min((c+1)*reduceChunk, len(boxes))
		for i := c * reduceChunk; i < end; i++ {
			box.Union(&boxes[i])
		}
		partial[c] = box
	})
	bounds := EmptyBox[T]()
	for i := range partial {
		bounds.Union(&partial[i])
	}
	return bounds
}

// computeCodes maps the center of each box into the unit cube defined by bounds,
// and returns the curve code of each.
// An axis with zero (or non-finite) extent maps to coordinate 0.
func computeCodes[T constraints.Float](exec Executor, curve Curve, boxes []AABB[T], bounds *AABB[T]) []uint64 {
	var invExtent [3]float64
	for d := 0; d < 3; d++ {
		extent := float64(bounds.Max[d]) - float64(bounds.Min[d])
		if extent > 0 && !math.IsInf(extent, 0) {
			invExtent[d] = 1 / extent
		}
	}
	lo := bounds.Min

	codes := make([]uint64, len(boxes))
	exec.For(len(boxes), func(i int) {
		c := boxes[i].Center()
		x := (float64(c[0]) - float64(lo[0])) * invExtent[0]
		y := (float64(c[1]) - float64(lo[1])) * invExtent[1]
		z := (float64(c[2]) - float64(lo[2])) * invExtent[2]
		codes[i] = curve.encode(x, y, z)
	})
	return codes
}
