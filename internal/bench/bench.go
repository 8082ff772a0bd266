// Package bench provides benchmarking primitives for the wordgen bench command.
package bench

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/pprof"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Run result and stats
// ---------------------------------------------------------------------------

// RunResult holds the timing of a single workload run.
type RunResult struct {
	Index      int
	Cold       bool // true for the first run
	Duration   time.Duration
	Items      int // lines encoded or words generated
	Throughput float64
}

// Stats holds aggregate timing statistics across all runs.
type Stats struct {
	Min            time.Duration
	Max            time.Duration
	Mean           time.Duration
	MeanThroughput float64
}

// ComputeStats calculates min, max and mean over a slice of durations.
func ComputeStats(durations []time.Duration) Stats {
	if len(durations) == 0 {
		return Stats{}
	}

	mn, mx := durations[0], durations[0]

	var sum time.Duration
	for _, d := range durations {
		mn = min(mn, d)
		mx = max(mx, d)
		sum += d
	}

	return Stats{
		Min:  mn,
		Max:  mx,
		Mean: sum / time.Duration(len(durations)),
	}
}

// Summarize computes Stats over runs, including mean throughput.
func Summarize(runs []RunResult) Stats {
	durations := make([]time.Duration, len(runs))

	var throughput float64
	for i, r := range runs {
		durations[i] = r.Duration
		throughput += r.Throughput
	}

	s := ComputeStats(durations)
	if len(runs) > 0 {
		s.MeanThroughput = throughput / float64(len(runs))
	}

	return s
}

// CalcThroughput returns items per second. Zero durations yield 0.
func CalcThroughput(items int, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}

	return float64(items) / d.Seconds()
}

// ---------------------------------------------------------------------------
// Runner
// ---------------------------------------------------------------------------

// Workload performs one benchmark iteration and reports how many items it
// processed.
type Workload func(ctx context.Context) (int, error)

// Run executes w runs times. Each run is labelled with stage for CPU
// profiles.
func Run(ctx context.Context, stage string, runs int, w Workload) ([]RunResult, error) {
	if runs < 1 {
		return nil, fmt.Errorf("runs must be >= 1, got %d", runs)
	}

	results := make([]RunResult, 0, runs)

	for i := range runs {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		var (
			items int
			err   error
		)

		start := time.Now()

		pprof.Do(ctx, pprof.Labels("stage", stage), func(ctx context.Context) {
			items, err = w(ctx)
		})

		elapsed := time.Since(start)

		if err != nil {
			return results, fmt.Errorf("run %d: %w", i+1, err)
		}

		results = append(results, RunResult{
			Index:      i,
			Cold:       i == 0,
			Duration:   elapsed,
			Items:      items,
			Throughput: CalcThroughput(items, elapsed),
		})
	}

	return results, nil
}

// StartCPUProfile writes a CPU profile to path until the returned stop
// function is called. An empty path disables profiling.
func StartCPUProfile(path string) (func(), error) {
	if path == "" {
		return func() {}, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create cpuprofile: %w", err)
	}

	if err := pprof.StartCPUProfile(f); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("start cpuprofile: %w", err)
	}

	return func() {
		pprof.StopCPUProfile()
		_ = f.Close()
	}, nil
}

// ---------------------------------------------------------------------------
// Throughput threshold gate
// ---------------------------------------------------------------------------

// ErrBelowThreshold is returned when mean throughput misses the gate.
var ErrBelowThreshold = errors.New("throughput below threshold")

// CheckThroughputThreshold returns an error if mean < threshold.
// A threshold of 0 disables the gate.
func CheckThroughputThreshold(mean, threshold float64) error {
	if threshold <= 0 {
		return nil
	}

	if mean < threshold {
		return fmt.Errorf("%w: mean %.1f items/s, want >= %.1f", ErrBelowThreshold, mean, threshold)
	}

	return nil
}

// ---------------------------------------------------------------------------
// Output formatters
// ---------------------------------------------------------------------------

// FormatTable writes a human-readable ASCII table of bench results to w.
func FormatTable(runs []RunResult, stats Stats, w io.Writer) {
	sb := &strings.Builder{}

	fmt.Fprintf(sb, "%-5s  %-5s  %10s  %8s  %12s\n", "Run", "Cold", "MS", "Items", "Items/s")
	fmt.Fprintln(sb, strings.Repeat("-", 48))

	for _, r := range runs {
		cold := ""
		if r.Cold {
			cold = "yes"
		}

		fmt.Fprintf(sb, "%-5d  %-5s  %10.1f  %8d  %12.1f\n",
			r.Index+1,
			cold,
			float64(r.Duration.Microseconds())/1000,
			r.Items,
			r.Throughput,
		)
	}

	fmt.Fprintln(sb, strings.Repeat("-", 48))
	fmt.Fprintf(sb, "%-5s  %-5s  %10.1f  %8s  %12s  (min)\n", "", "", float64(stats.Min.Microseconds())/1000, "", "")
	fmt.Fprintf(sb, "%-5s  %-5s  %10.1f  %8s  %12.1f  (mean)\n", "", "", float64(stats.Mean.Microseconds())/1000, "", stats.MeanThroughput)
	fmt.Fprintf(sb, "%-5s  %-5s  %10.1f  %8s  %12s  (max)\n", "", "", float64(stats.Max.Microseconds())/1000, "", "")

	fmt.Fprint(w, sb.String())
}

type jsonReport struct {
	Runs  []jsonRun `json:"runs"`
	Stats jsonStats `json:"stats"`
}

type jsonRun struct {
	Index      int     `json:"index"`
	Cold       bool    `json:"cold"`
	DurationMS float64 `json:"duration_ms"`
	Items      int     `json:"items"`
	Throughput float64 `json:"items_per_sec"`
}

type jsonStats struct {
	MinMS          float64 `json:"min_ms"`
	MeanMS         float64 `json:"mean_ms"`
	MaxMS          float64 `json:"max_ms"`
	MeanThroughput float64 `json:"mean_items_per_sec"`
}

// FormatJSON writes a JSON report of bench results to w.
func FormatJSON(runs []RunResult, stats Stats, w io.Writer) {
	jr := jsonReport{
		Runs: make([]jsonRun, len(runs)),
		Stats: jsonStats{
			MinMS:          float64(stats.Min.Microseconds()) / 1000,
			MeanMS:         float64(stats.Mean.Microseconds()) / 1000,
			MaxMS:          float64(stats.Max.Microseconds()) / 1000,
			MeanThroughput: stats.MeanThroughput,
		},
	}

	for i, r := range runs {
		jr.Runs[i] = jsonRun{
			Index:      r.Index,
			Cold:       r.Cold,
			DurationMS: float64(r.Duration.Microseconds()) / 1000,
			Items:      r.Items,
			Throughput: r.Throughput,
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(jr)
}
