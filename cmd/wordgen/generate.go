package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/wabradshaw/wordgenerator/internal/config"
	"github.com/wabradshaw/wordgenerator/internal/generator"
	"github.com/wabradshaw/wordgenerator/internal/ipa"
)

// wordGenerator is the slice of generator.Service the CLI uses.
type wordGenerator interface {
	Generate(ctx context.Context, count, maxSteps int) ([]string, error)
	IPACapable() bool
	Close()
}

var newGenerator = func(cfg config.Config) (wordGenerator, error) {
	return generator.NewService(cfg, slog.Default())
}

func newGenerateCmd() *cobra.Command {
	var withIPA bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Sample invented words from the step model",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			return runGenerate(cmd.Context(), cfg, withIPA, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&withIPA, "ipa", false, "Print an IPA rendering next to each word (phonemes-split only)")

	return cmd
}

func runGenerate(ctx context.Context, cfg config.Config, withIPA bool, out io.Writer) error {
	if cfg.Sampling.Count < 1 || cfg.Sampling.MaxSteps < 1 {
		return fmt.Errorf("sampling count and max steps must be >= 1, got %d and %d",
			cfg.Sampling.Count, cfg.Sampling.MaxSteps)
	}

	gen, err := newGenerator(cfg)
	if err != nil {
		return err
	}
	defer gen.Close()

	if withIPA && !gen.IPACapable() {
		return errors.New("--ipa requires the phonemes-split token set")
	}

	words, err := gen.Generate(ctx, cfg.Sampling.Count, cfg.Sampling.MaxSteps)
	if err != nil {
		return err
	}

	for _, w := range words {
		line := w

		if withIPA {
			glyphs, err := ipa.Map(w)
			if err != nil {
				return fmt.Errorf("render %q as ipa: %w", w, err)
			}

			line = w + "\t" + glyphs
		}

		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}

	return nil
}
