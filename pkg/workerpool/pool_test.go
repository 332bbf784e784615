package workerpool

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

// peakConcurrency submits jobs to a pool of the given size and returns the
// largest number seen running at once.
func peakConcurrency(size, jobs int) int64 {
	pool := New(size)

	var running, peak int64
	for i := 0; i < jobs; i++ {
		pool.Submit(context.Background(), func() {
			n := atomic.AddInt64(&running, 1)
			for {
				p := atomic.LoadInt64(&peak)
				if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt64(&running, -1)
		})
	}
	pool.Wait()
	return peak
}

func TestPoolBoundsConcurrency(t *testing.T) {
	tests := []struct {
		size int
		want int64
	}{
		{-3, 1},
		{0, 1},
		{1, 1},
		{2, 2},
	}
	for _, tt := range tests {
		peak := peakConcurrency(tt.size, 20)
		if peak > tt.want {
			t.Errorf("New(%d) peak concurrency = %d, want <= %d", tt.size, peak, tt.want)
		}
		if peak < 1 {
			t.Errorf("New(%d) peak concurrency = %d, want >= 1", tt.size, peak)
		}
	}
}

func TestMapPreservesIndexOrder(t *testing.T) {
	got := Map(context.Background(), 4, 50, func(_ context.Context, i int) int {
		// later indexes finish first
		time.Sleep(time.Duration(50-i) * 50 * time.Microsecond)
		return i * i
	})

	if len(got) != 50 {
		t.Fatalf("len = %d, want 50", len(got))
	}
	for i, v := range got {
		if v != i*i {
			t.Errorf("result[%d] = %d, want %d", i, v, i*i)
		}
	}
}

func TestSubmitCancelled(t *testing.T) {
	pool := New(1)
	release := make(chan struct{})
	pool.Submit(context.Background(), func() { <-release })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if pool.Submit(ctx, func() {}) {
		t.Error("Submit should refuse work once the context is done")
	}

	close(release)
	pool.Wait()
}
