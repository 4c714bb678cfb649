package workers

import (
	"context"
	"runtime"
)

// Count returns a worker count scaled from the CPUs available to the process.
// It respects container CPU limits via GOMAXPROCS (Go 1.19+).
//
// The limit parameter caps the result; use 0 for no limit. The result is
// always at least 1.
func Count(multiplier float64, limit int) int {
	workers := int(float64(runtime.GOMAXPROCS(0)) * multiplier)

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}

// ForCPU returns worker count for CPU-bound tasks (1 per CPU), such as ffmpeg
// re-encodes. The limit parameter caps the maximum number of workers.
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// Pool bounds how many units of work run at once. The zero value is not
// usable; create one with NewPool.
type Pool struct {
	slots chan struct{}
}

// NewPool returns a Pool admitting at most size concurrent holders.
// Sizes below 1 are raised to 1.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{slots: make(chan struct{}, size)}
}

// Acquire blocks until a slot is free or ctx is done. On success the caller
// must call the returned release func exactly once.
func (p *Pool) Acquire(ctx context.Context) (release func(), err error) {
	select {
	case p.slots <- struct{}{}:
		return func() { <-p.slots }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Size returns the maximum number of concurrent holders.
func (p *Pool) Size() int {
	return cap(p.slots)
}

// InUse returns the number of slots currently held.
func (p *Pool) InUse() int {
	return len(p.slots)
}
