package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/wabradshaw/wordgenerator/internal/config"
	"github.com/wabradshaw/wordgenerator/internal/corpus"
	"github.com/wabradshaw/wordgenerator/internal/dataset"
	"github.com/wabradshaw/wordgenerator/internal/generator"
	"github.com/wabradshaw/wordgenerator/internal/progress"
	"github.com/wabradshaw/wordgenerator/internal/tokenizer"
	"github.com/wabradshaw/wordgenerator/internal/vocab"
)

func newEncodeCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode the corpus into safetensors training batches",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			sum, err := runEncode(cmd.Context(), cfg, encodeOptions{Limit: limit, Logger: slog.Default()})
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(),
				"wrote %d batches to %s (%d sequences kept, %d dropped) in %s\n",
				sum.Batches, sum.Dir, sum.Kept, sum.Dropped, progress.FormatDuration(sum.Elapsed))

			return err
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Stop after this many batches (0 = all)")

	return cmd
}

type encodeOptions struct {
	Limit  int
	Logger *slog.Logger
}

type encodeSummary struct {
	Dir     string
	Lines   int
	Batches int
	Kept    int
	Dropped int
	Elapsed time.Duration
}

// newEncoder builds the dataset encoder for the configured token set.
func newEncoder(cfg config.Config, logger *slog.Logger) (*dataset.Encoder, vocab.Kind, error) {
	kind, err := generator.KindFromConfig(cfg.Vocab.TokenSet)
	if err != nil {
		return nil, 0, err
	}

	v, err := vocab.ForKind(kind)
	if err != nil {
		return nil, 0, err
	}

	tok, err := tokenizer.New(v, kind)
	if err != nil {
		return nil, 0, err
	}

	enc, err := dataset.NewEncoder(tok, v, dataset.Options{
		MaxLength: cfg.Dataset.MaxLength,
		Workers:   cfg.Dataset.Workers,
		Logger:    logger,
	})
	if err != nil {
		return nil, 0, err
	}

	return enc, kind, nil
}

// loadCorpus reads the configured dictionary, shuffled when enabled.
func loadCorpus(cfg config.Config) ([]string, error) {
	lines, err := corpus.LoadFile(cfg.Paths.Corpus, cfg.Corpus.HeaderLines)
	if err != nil {
		return nil, err
	}

	if cfg.Corpus.Shuffle {
		lines = corpus.Shuffle(lines, cfg.Corpus.Seed)
	}

	return lines, nil
}

func runEncode(ctx context.Context, cfg config.Config, opts encodeOptions) (encodeSummary, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.Dataset.BatchSize < 1 {
		return encodeSummary{}, fmt.Errorf("dataset batch size must be >= 1, got %d", cfg.Dataset.BatchSize)
	}

	enc, kind, err := newEncoder(cfg, logger)
	if err != nil {
		return encodeSummary{}, err
	}

	lines, err := loadCorpus(cfg)
	if err != nil {
		return encodeSummary{}, err
	}

	dir := cfg.Paths.OutputDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return encodeSummary{}, fmt.Errorf("create output dir: %w", err)
	}

	total := dataset.Batches(lines, cfg.Dataset.BatchSize)
	if opts.Limit > 0 {
		total = min(total, opts.Limit)
	}

	sum := encodeSummary{Dir: dir, Lines: len(lines)}
	tracker := progress.NewTracker(total)

	for n := range total {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		b, err := enc.BuildBatch(dataset.Window(lines, n, cfg.Dataset.BatchSize))
		if err != nil {
			return sum, fmt.Errorf("batch %d: %w", n, err)
		}

		path := filepath.Join(dir, fmt.Sprintf("batch-%05d.safetensors", n))

		err = dataset.WriteBatch(path, b, map[string]string{
			"batch":     strconv.Itoa(n),
			"token_set": kind.String(),
			"seed":      strconv.FormatUint(cfg.Corpus.Seed, 10),
		})
		if err != nil {
			return sum, err
		}

		sum.Batches++
		sum.Kept += b.Size()
		sum.Dropped += b.Dropped

		est := tracker.Done(n)
		logger.Info("batch written",
			"batch", n,
			"of", total,
			"kept", b.Size(),
			"dropped", b.Dropped,
			"remaining", progress.FormatDuration(est.Remaining),
			"predicted_end", est.End.Format(time.RFC3339),
		)
	}

	sum.Elapsed = tracker.Done(max(total-1, 0)).Elapsed

	return sum, nil
}
