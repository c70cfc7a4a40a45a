// Package workerspool limits the number of goroutines used by the native kernels to split their work.
package workerspool

import (
	"sync"
)

// Pool of workers. A nil *Pool is valid and runs everything inline.
type Pool struct {
	// maxParallelism is a soft target on the limit of parallel work to do.
	// The actual number of goroutines is higher than that, since callers also run part of the work.
	maxParallelism int
	mu             sync.Mutex
	numRunning     int
}

// New returns a new Pool with the given parallelism. If maxParallelism is 0 parallelism is disabled, and if
// it is negative parallelism is unlimited.
func New(maxParallelism int) *Pool {
	return &Pool{maxParallelism: maxParallelism}
}

// IsEnabled returns whether parallelism is enabled.
func (p *Pool) IsEnabled() bool {
	return p != nil && p.maxParallelism != 0
}

// IsUnlimited returns whether parallelism is unlimited.
func (p *Pool) IsUnlimited() bool {
	return p != nil && p.maxParallelism < 0
}

// MaxParallelism is a soft-target for parallelism. 0 means disabled, -1 unlimited.
func (p *Pool) MaxParallelism() int {
	if p == nil {
		return 0
	}
	return p.maxParallelism
}

// NumRunning returns the number of tasks currently running in the pool's goroutines.
func (p *Pool) NumRunning() int {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.numRunning
}

// lockedIsFull returns whether all available workers are in use.
//
// It must be called with Pool.mu acquired.
func (p *Pool) lockedIsFull() bool {
	if p.maxParallelism == 0 {
		return true
	} else if p.maxParallelism < 0 {
		return false
	}
	return p.numRunning >= p.maxParallelism
}

// StartIfAvailable runs the task in a separate goroutine, if there are workers left.
// It returns true if it found a worker to run the task, false otherwise.
//
// It's up to the caller to synchronize the end of the task.
func (p *Pool) StartIfAvailable(task func()) bool {
	if !p.IsEnabled() {
		return false
	}
	if p.IsUnlimited() {
		go task()
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lockedIsFull() {
		return false
	}
	p.numRunning++
	go func() {
		defer func() {
			p.mu.Lock()
			p.numRunning--
			p.mu.Unlock()
		}()
		task()
	}()
	return true
}

// Split calls fn over the range [0, n), split into contiguous chunks of at least minChunk items.
// Chunks for which there is a free worker run in parallel, the others (including the first one) run in the
// calling goroutine. It returns when all chunks are done.
//
// fn must be safe to call concurrently for disjoint ranges.
func (p *Pool) Split(n, minChunk int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	numChunks := 1
	if p.IsEnabled() {
		numChunks = n / max(minChunk, 1)
		if !p.IsUnlimited() {
			// The calling goroutine also works on one chunk.
			numChunks = min(numChunks, p.maxParallelism+1)
		}
	}
	if numChunks <= 1 {
		fn(0, n)
		return
	}
	chunkSize := (n + numChunks - 1) / numChunks
	var wg sync.WaitGroup
	for start := chunkSize; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		wg.Add(1)
		task := func() {
			defer wg.Done()
			fn(start, end)
		}
		if !p.StartIfAvailable(task) {
			task()
		}
	}
	fn(0, chunkSize)
	wg.Wait()
}
