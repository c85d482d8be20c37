package lbvh

import (
	"runtime"
	"sync"
)

// Executor runs body(i) for every i in [0, n).
// There is no ordering guarantee between calls, and For returns only once every call has returned.
// Every build stage and batch query is expressed in terms of this one primitive.
type Executor interface {
	For(n int, body func(i int))
}

// SerialExecutor runs everything on the calling goroutine
type SerialExecutor struct{}

func (SerialExecutor) For(n int, body func(i int)) {
	for i := 0; i < n; i++ {
		body(i)
	}
}

// PoolExecutor splits the index range into contiguous blocks, one goroutine per block.
type PoolExecutor struct {
	Workers int // Default runtime.NumCPU()
	Grain   int // Minimum indices per goroutine. Default 512
}

// NewPoolExecutor returns a PoolExecutor that uses every CPU
func NewPoolExecutor() *PoolExecutor {
	return &PoolExecutor{
		Workers: runtime.NumCPU(),
		Grain:   512,
	}
}

func (p *PoolExecutor) For(n int, body func(i int)) {
	if n <= 0 {
		return
	}
	workers := p.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	grain := max(p.Grain, 1)
	workers = min(workers, (n+grain-1)/grain)
	if workers <= 1 {
		SerialExecutor{}.For(n, body)
		return
	}

	per, rem := n/workers, n%workers
	var wg sync.WaitGroup
	wg.Add(workers)
	start := 0
	for w := 0; w < workers; w++ {
		// the first 'rem' workers take one extra index
		count := per
		if w < rem {
			count++
		}
		go func(begin, end int) {
			defer wg.Done()
			for i := begin; i < end; i++ {
				body(i)
			}
		}(start, start+count)
		start += count
	}
	wg.Wait()
}

func (p *PoolExecutor) workerCount() int {
	if p.Workers < 1 {
		return runtime.NumCPU()
	}
	return p.Workers
}

// workerCount reports how many goroutines an executor may use, for logging
func workerCount(e Executor) int {
	switch x := e.(type) {
	case *PoolExecutor:
		return x.workerCount()
	case SerialExecutor, *SerialExecutor:
		return 1
	}
	return 0
}
