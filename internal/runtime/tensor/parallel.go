package tensor

import (
	"sync"
	"sync/atomic"
)

// defaultWorkers is the fan-out ParallelFor uses when the caller passes 0.
// Zero means unset and reads as 1.
var defaultWorkers atomic.Int64

// SetWorkers sets the process-wide fan-out. Values below 1 become 1.
func SetWorkers(n int) {
	defaultWorkers.Store(int64(max(n, 1)))
}

// Workers returns the process-wide fan-out.
func Workers() int {
	return int(max(defaultWorkers.Load(), 1))
}

// Span is the half-open index range [Lo, Hi).
type Span struct {
	Lo, Hi int
}

// Split cuts [0,n) into at most parts contiguous spans of near-equal size.
// Earlier spans take the remainder, so sizes differ by at most one.
func Split(n, parts int) []Span {
	if n <= 0 {
		return nil
	}

	parts = min(max(parts, 1), n)
	size, extra := n/parts, n%parts

	spans := make([]Span, parts)
	lo := 0

	for i := range spans {
		hi := lo + size
		if i < extra {
			hi++
		}

		spans[i] = Span{Lo: lo, Hi: hi}
		lo = hi
	}

	return spans
}

// ParallelFor runs fn once per span of Split(n, workers), each span on its
// own goroutine, and returns when all have finished. workers <= 0 uses
// Workers(). Spans are disjoint, so fn may write its own indices of a shared
// slice without locking.
func ParallelFor(n, workers int, fn func(lo, hi int)) {
	if workers <= 0 {
		workers = Workers()
	}

	spans := Split(n, workers)
	if len(spans) == 1 {
		fn(spans[0].Lo, spans[0].Hi)
		return
	}

	var wg sync.WaitGroup
	for _, s := range spans {
		wg.Go(func() { fn(s.Lo, s.Hi) })
	}

	wg.Wait()
}
