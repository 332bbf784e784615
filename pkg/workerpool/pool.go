package workerpool

import (
	"context"
	"sync"
)

// Pool runs submitted jobs on a bounded number of goroutines.
type Pool struct {
	semaphore chan struct{}
	wg        sync.WaitGroup
}

// New creates a Pool. A size below 1 is treated as 1, which runs jobs one
// after another.
func New(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		semaphore: make(chan struct{}, size),
	}
}

// Submit blocks until a slot is free, then runs job in its own goroutine.
// It gives up waiting when ctx is done and reports whether the job was
// scheduled.
func (p *Pool) Submit(ctx context.Context, job func()) bool {
	select {
	case p.semaphore <- struct{}{}:
	case <-ctx.Done():
		return false
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() { <-p.semaphore }()
		job()
	}()
	return true
}

// Wait blocks until all submitted jobs have completed.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Map runs fn for every index in [0, n) on a pool of the given size and
// returns the results in index order, independent of completion order.
func Map[T any](ctx context.Context, size, n int, fn func(ctx context.Context, i int) T) []T {
	results := make([]T, n)
	pool := New(size)
	for i := 0; i < n; i++ {
		i := i
		if !pool.Submit(ctx, func() { results[i] = fn(ctx, i) }) {
			break
		}
	}
	pool.Wait()
	return results
}
