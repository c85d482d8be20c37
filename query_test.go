package lbvh

import (
	"math"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/constraints"
)

func TestClosestPointSimple(t *testing.T) {
	tree, err := Build([]AABB[float64]{
		PointBox(Point2[float64](0, 0)),
		PointBox(Point2[float64](10, 0)),
		PointBox(Point2[float64](0, 10)),
	})
	require.NoError(t, err)

	nearest, ok := tree.ClosestPoint(Point2[float64](1, 1))
	require.True(t, ok)
	require.Equal(t, 0, nearest.Index)
	require.Equal(t, 2.0, nearest.SqDist)
	require.Equal(t, Point2[float64](0, 0), nearest.Point)

	nearest, ok = tree.ClosestPoint(Point2[float64](9, 2))
	require.True(t, ok)
	require.Equal(t, 1, nearest.Index)
	require.Equal(t, 5.0, nearest.SqDist)
}

func TestClosestPointEmpty(t *testing.T) {
	tree, err := Build[float32](nil)
	require.NoError(t, err)
	nearest, ok := tree.ClosestPoint(Point2[float32](1, 1))
	require.False(t, ok)
	require.Equal(t, None, nearest.Index)

	all := tree.ClosestPoints(nil, []Point[float32]{{1, 1, 0}, {2, 2, 0}})
	require.Equal(t, None, all[0].Index)
	require.Equal(t, None, all[1].Index)
}

func TestClosestPointBruteForce(t *testing.T) {
	testClosestPointBruteForce[float32](t)
	testClosestPointBruteForce[float64](t)
}

func testClosestPointBruteForce[TFloat constraints.Float](t *testing.T) {
	rng := rand.New(rand.NewSource(0))
	points := make([]AABB[TFloat], 2000)
	for i := range points {
		points[i] = PointBox(Point[TFloat]{TFloat(rng.Float64() * 100), TFloat(rng.Float64() * 100), TFloat(rng.Float64() * 100)})
	}
	tree, err := Build(points)
	require.NoError(t, err)

	queries := make([]Point[TFloat], 500)
	for i := range queries {
		queries[i] = Point[TFloat]{TFloat(rng.Float64()*120 - 10), TFloat(rng.Float64()*120 - 10), TFloat(rng.Float64()*120 - 10)}
	}
	batch := tree.ClosestPoints(&PoolExecutor{Workers: 4, Grain: 1}, queries)

	for qi, q := range queries {
		best := math.Inf(1)
		for i := range points {
			best = min(best, points[i].SqDistance(q))
		}
		nearest, ok := tree.ClosestPoint(q)
		require.True(t, ok)
		require.Equal(t, best, nearest.SqDist)
		require.Equal(t, best, points[nearest.Index].SqDistance(q))
		require.Equal(t, points[nearest.Index].Min, nearest.Point)
		require.Equal(t, nearest, batch[qi])
	}
}

func TestNearestFunc(t *testing.T) {
	// small squares around each point; the exact distance is to the center
	rng := rand.New(rand.NewSource(1))
	centers := make([]Point[float64], 1000)
	boxes := make([]AABB[float64], len(centers))
	for i := range centers {
		centers[i] = Point2(rng.Float64()*50, rng.Float64()*50)
		boxes[i] = NewBox2(centers[i][0]-0.3, centers[i][1]-0.3, centers[i][0]+0.3, centers[i][1]+0.3)
	}
	tree, err := Build(boxes)
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		q := Point2(rng.Float64()*50, rng.Float64()*50)
		nearest, ok := tree.NearestFunc(q, func(index int) float64 {
			return SqDistancePoints(q, centers[index])
		})
		require.True(t, ok)

		best := math.Inf(1)
		for _, c := range centers {
			best = min(best, SqDistancePoints(q, c))
		}
		require.Equal(t, best, nearest.SqDist)
		require.Equal(t, Point[float64]{}, nearest.Point)
	}
}

func TestClosestPointOnBox(t *testing.T) {
	tree, err := Build([]AABB[float64]{
		NewBox2[float64](0, 0, 2, 2),
		NewBox2[float64](10, 10, 12, 12),
	})
	require.NoError(t, err)

	nearest, ok := tree.ClosestPoint(Point2[float64](5, 1))
	require.True(t, ok)
	require.Equal(t, 0, nearest.Index)
	require.Equal(t, 9.0, nearest.SqDist)
	require.Equal(t, Point2[float64](2, 1), nearest.Point)

	nearest, ok = tree.ClosestPoint(Point2[float64](11, 11))
	require.True(t, ok)
	require.Equal(t, 1, nearest.Index)
	require.Equal(t, 0.0, nearest.SqDist)
	require.Equal(t, Point2[float64](11, 11), nearest.Point)
}

func TestTraversePrunes(t *testing.T) {
	tree := buildSquare[float64](t, 64)
	visits := 0
	leaves := 0
	q := NewBox2[float64](10.2, 10.2, 10.3, 10.3)
	tree.Traverse(func(box *AABB[float64]) bool {
		visits++
		return box.Overlaps(&q)
	}, func(leaf int) {
		leaves++
	})
	require.Equal(t, 1, leaves)
	// a pruned walk looks at far fewer than all 2N-1 nodes
	require.Less(t, visits, 200)
}

func TestEmpty(t *testing.T) {
	testEmpty[float32](t)
	testEmpty[float64](t)
}

func testEmpty[TFloat constraints.Float](t *testing.T) {
	tree, err := NewBuilder[TFloat]().Finish()
	require.NoError(t, err)
	require.Equal(t, 0, len(tree.Search(NewBox2[TFloat](0, 0, 1, 1))))
}

func TestBasic(t *testing.T) {
	testBasic[float32](t, CurveMorton32)
	testBasic[float64](t, CurveMorton32)
	testBasic[float64](t, CurveMorton64)
	testBasic[float64](t, CurveHilbert)
}

func testBasic[TFloat constraints.Float](t *testing.T, curve Curve) {
	f := NewBuilder[TFloat]()
	f.Curve = curve
	boxes := []AABB[TFloat]{}
	dim := 100
	f.Reserve(int(dim * dim))
	index := 0
	for x := TFloat(0); x < TFloat(dim); x++ {
		for y := TFloat(0); y < TFloat(dim); y++ {
			box := NewBox2(x+0.1, y+0.1, x+0.9, y+0.9)
			boxes = append(boxes, box)
			checkIndex := f.Add(box)
			require.Equal(t, index, checkIndex)
			index++
		}
	}
	tree, err := f.Finish()
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(0))

	totalResults := 0
	nSamples := 1000
	maxQueryWindow := 5
	pad := TFloat(3)
	for i := 0; i < nSamples; i++ {
		minx := TFloat(rng.Float32())*TFloat(dim) - pad
		miny := TFloat(rng.Float32())*TFloat(dim) - pad
		maxx := minx + TFloat(rng.Float32())*TFloat(maxQueryWindow)
		maxy := miny + TFloat(rng.Float32())*TFloat(maxQueryWindow)
		qbox := NewBox2(minx, miny, maxx, maxy)
		results := tree.Search(qbox)
		totalResults += len(results)
		// brute force validation that there are no false negatives, and no false positives
		expect := []int{}
		for j := range boxes {
			if boxes[j].Overlaps(&qbox) {
				expect = append(expect, j)
			}
		}
		sort.Ints(results)
		require.Equal(t, expect, results)
	}
	require.Greater(t, totalResults, 0)
	require.Less(t, totalResults, (maxQueryWindow+3)*(maxQueryWindow+3)*nSamples) // +3 is just padding
}

func TestRayCast(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	boxes := randomBoxes[float64](rng, 3000, 3)
	tree, err := Build(boxes)
	require.NoError(t, err)

	results := []int{}
	for i := 0; i < 100; i++ {
		origin := Point[float64]{rng.Float64()*1000 - 500, rng.Float64()*1000 - 500, rng.Float64()*1000 - 500}
		dir := Point[float64]{rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()}
		if i%10 == 0 {
			// axis aligned rays exercise the parallel slab case
			dir = Point[float64]{0, 0, 1}
		}
		ray := NewRay(origin, dir)
		results = tree.RayCast(ray, results)

		expect := []int{}
		for j := range boxes {
			if hit, _ := boxes[j].IntersectRay(&ray); hit {
				expect = append(expect, j)
			}
		}
		sort.Ints(results)
		require.Equal(t, expect, results)
	}
}

func buildSquare[TFloat constraints.Float](tb testing.TB, sideLength int) *Tree[TFloat] {
	f := NewBuilder[TFloat]()
	f.Reserve(int(sideLength * sideLength))
	for x := TFloat(0); x < TFloat(sideLength); x++ {
		for y := TFloat(0); y < TFloat(sideLength); y++ {
			f.Add(NewBox2(x+0.1, y+0.1, x+0.9, y+0.9))
		}
	}
	tree, err := f.Finish()
	require.NoError(tb, err)
	return tree
}

func BenchmarkInsert32(b *testing.B) {
	benchmarkInsert[float32](b)
}

func BenchmarkInsert64(b *testing.B) {
	benchmarkInsert[float64](b)
}

func benchmarkInsert[TFloat constraints.Float](b *testing.B) {
	dim := 1000
	start := time.Now()
	buildSquare[TFloat](b, dim)
	end := time.Now()
	b.Logf("Time to insert %v elements: %.0f milliseconds", dim*dim, end.Sub(start).Seconds()*1000)
}

func BenchmarkQuery32(b *testing.B) {
	benchmarkQuery[float32](b)
}

func BenchmarkQuery64(b *testing.B) {
	benchmarkQuery[float64](b)
}

func benchmarkQuery[TFloat constraints.Float](b *testing.B) {
	dim := 1000
	tree := buildSquare[TFloat](b, dim)

	start := time.Now()
	nquery := 1000 * 1000
	sx := 0
	sy := 0
	results := []int{}
	nresults := 0
	for i := 0; i < nquery; i++ {
		minx := TFloat(sx % dim)
		miny := TFloat(sy % dim)
		results = tree.SearchFast(NewBox2(minx, miny, minx+5, miny+5), results)
		nresults += len(results)
		sx++
		sy++
	}
	elapsedS := time.Since(start).Seconds()
	b.Logf("Time per query, returning average of %.0f elements: %.2f nanoseconds\n", float64(nresults)/float64(nquery), elapsedS*1e9/float64(nquery))
}

func BenchmarkClosestPoint(b *testing.B) {
	tree := buildSquare[float64](b, 1000)
	rng := rand.New(rand.NewSource(0))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tree.ClosestPoint(Point2(rng.Float64()*1000, rng.Float64()*1000))
	}
}
