package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/wabradshaw/wordgenerator/internal/bench"
	"github.com/wabradshaw/wordgenerator/internal/config"
	"github.com/wabradshaw/wordgenerator/internal/dataset"
)

const (
	workloadEncode   = "encode"
	workloadGenerate = "generate"
)

type benchOptions struct {
	Workload      string
	Runs          int
	Batches       int
	Format        string
	MinThroughput float64
	CPUProfile    string
}

func newBenchCmd() *cobra.Command {
	var opts benchOptions

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark batch encoding or word sampling throughput",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			return runBenchCmd(cmd.Context(), cfg, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.Workload, "workload", workloadEncode, "Workload: encode|generate")
	cmd.Flags().IntVar(&opts.Runs, "runs", 5, "Number of runs")
	cmd.Flags().IntVar(&opts.Batches, "batches", 4, "Batch windows encoded per run (encode workload)")
	cmd.Flags().StringVar(&opts.Format, "format", "table", "Output format: table|json")
	cmd.Flags().Float64Var(&opts.MinThroughput, "min-throughput", 0, "Exit non-zero if mean items/s falls below this value (0 = disabled)")
	cmd.Flags().StringVar(&opts.CPUProfile, "cpuprofile", "", "Write a CPU profile to this path")

	return cmd
}

func runBenchCmd(ctx context.Context, cfg config.Config, opts benchOptions, out io.Writer) error {
	if opts.Runs < 1 {
		return fmt.Errorf("--runs must be at least 1")
	}

	if opts.Format != "table" && opts.Format != "json" {
		return fmt.Errorf("--format must be 'table' or 'json'")
	}

	workload, cleanup, err := buildWorkload(cfg, opts)
	if err != nil {
		return err
	}
	defer cleanup()

	stop, err := bench.StartCPUProfile(opts.CPUProfile)
	if err != nil {
		return err
	}

	results, err := bench.Run(ctx, opts.Workload, opts.Runs, workload)

	stop()

	if err != nil {
		return err
	}

	stats := bench.Summarize(results)

	switch opts.Format {
	case "json":
		bench.FormatJSON(results, stats, out)
	default:
		bench.FormatTable(results, stats, out)
	}

	return bench.CheckThroughputThreshold(stats.MeanThroughput, opts.MinThroughput)
}

func buildWorkload(cfg config.Config, opts benchOptions) (bench.Workload, func(), error) {
	switch opts.Workload {
	case workloadEncode:
		w, err := encodeWorkload(cfg, opts.Batches)
		return w, func() {}, err
	case workloadGenerate:
		gen, err := newGenerator(cfg)
		if err != nil {
			return nil, nil, err
		}

		w := func(ctx context.Context) (int, error) {
			words, err := gen.Generate(ctx, cfg.Sampling.Count, cfg.Sampling.MaxSteps)
			return len(words), err
		}

		return w, gen.Close, nil
	default:
		return nil, nil, fmt.Errorf("--workload must be %q or %q", workloadEncode, workloadGenerate)
	}
}

// encodeWorkload builds the first batches windows of the corpus per run and
// reports the number of corpus lines consumed.
func encodeWorkload(cfg config.Config, batches int) (bench.Workload, error) {
	if batches < 1 {
		return nil, fmt.Errorf("--batches must be at least 1")
	}

	if cfg.Dataset.BatchSize < 1 {
		return nil, fmt.Errorf("dataset batch size must be >= 1, got %d", cfg.Dataset.BatchSize)
	}

	enc, _, err := newEncoder(cfg, slog.New(slog.DiscardHandler))
	if err != nil {
		return nil, err
	}

	lines, err := loadCorpus(cfg)
	if err != nil {
		return nil, err
	}

	batches = min(batches, dataset.Batches(lines, cfg.Dataset.BatchSize))

	return func(ctx context.Context) (int, error) {
		items := 0

		for n := range batches {
			if err := ctx.Err(); err != nil {
				return items, err
			}

			window := dataset.Window(lines, n, cfg.Dataset.BatchSize)
			if _, err := enc.BuildBatch(window); err != nil {
				return items, err
			}

			items += len(window)
		}

		return items, nil
	}, nil
}
