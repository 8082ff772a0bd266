package tensor

import (
	"slices"
	"sync/atomic"
	"testing"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name  string
		n     int
		parts int
		want  []Span
	}{
		{"empty range", 0, 4, nil},
		{"single part", 5, 1, []Span{{0, 5}}},
		{"even split", 6, 3, []Span{{0, 2}, {2, 4}, {4, 6}}},
		{"remainder goes first", 7, 3, []Span{{0, 3}, {3, 5}, {5, 7}}},
		{"more parts than items", 2, 8, []Span{{0, 1}, {1, 2}}},
		{"non-positive parts", 3, 0, []Span{{0, 3}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Split(tt.n, tt.parts); !slices.Equal(got, tt.want) {
				t.Fatalf("Split(%d, %d) = %v; want %v", tt.n, tt.parts, got, tt.want)
			}
		})
	}
}

func TestParallelForVisitsEachIndexOnce(t *testing.T) {
	for _, workers := range []int{0, 1, 3, 8, 100} {
		hits := make([]int32, 37)

		ParallelFor(len(hits), workers, func(lo, hi int) {
			for i := lo; i < hi; i++ {
				atomic.AddInt32(&hits[i], 1)
			}
		})

		for i, h := range hits {
			if h != 1 {
				t.Fatalf("workers=%d: index %d visited %d times", workers, i, h)
			}
		}
	}
}

func TestParallelForEmptyRange(t *testing.T) {
	ParallelFor(0, 4, func(lo, hi int) {
		t.Fatalf("fn called with [%d, %d) for an empty range", lo, hi)
	})
}

func TestSetWorkersClamps(t *testing.T) {
	defer SetWorkers(1)

	SetWorkers(-3)
	if Workers() != 1 {
		t.Fatalf("Workers() = %d after SetWorkers(-3), want 1", Workers())
	}

	SetWorkers(4)
	if Workers() != 4 {
		t.Fatalf("Workers() = %d, want 4", Workers())
	}
}
