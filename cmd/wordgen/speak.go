package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wabradshaw/wordgenerator/internal/config"
	"github.com/wabradshaw/wordgenerator/internal/generator"
	"github.com/wabradshaw/wordgenerator/internal/speech"
	"github.com/wabradshaw/wordgenerator/internal/vocab"
)

// errSpeakNeedsSpelling rejects --generate under a phoneme token set, whose
// words pocket-tts would read out symbol by symbol.
var errSpeakNeedsSpelling = errors.New("--generate needs a spelling token set")

type speakOptions struct {
	Words     []string
	Generate  bool
	Out       string
	Gap       time.Duration
	Normalize bool
}

func newSpeakCmd() *cobra.Command {
	var opts speakOptions

	cmd := &cobra.Command{
		Use:   "speak [WORD...]",
		Short: "Read words aloud through pocket-tts into one WAV",
		Long: "Read words aloud through pocket-tts into one WAV. Without arguments,\n" +
			"--generate samples sampling.count words from the step model first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			opts.Words = args

			return runSpeak(cmd.Context(), cfg, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&opts.Generate, "generate", false, "Sample the words from the step model")
	cmd.Flags().StringVar(&opts.Out, "out", "words.wav", "Output WAV path ('-' for stdout)")
	cmd.Flags().DurationVar(&opts.Gap, "gap", 300*time.Millisecond, "Silence between words")
	cmd.Flags().BoolVar(&opts.Normalize, "normalize", false, "Peak-normalize the combined audio")

	return cmd
}

func runSpeak(ctx context.Context, cfg config.Config, opts speakOptions, stdout io.Writer) error {
	words := opts.Words

	if opts.Generate {
		if len(words) > 0 {
			return errors.New("pass words or --generate, not both")
		}

		kind, err := generator.KindFromConfig(cfg.Vocab.TokenSet)
		if err != nil {
			return err
		}

		if kind.Mode() != vocab.ModeLexemes {
			return fmt.Errorf("token set %q: %w", cfg.Vocab.TokenSet, errSpeakNeedsSpelling)
		}

		gen, err := newGenerator(cfg)
		if err != nil {
			return err
		}
		defer gen.Close()

		words, err = gen.Generate(ctx, cfg.Sampling.Count, cfg.Sampling.MaxSteps)
		if err != nil {
			return err
		}
	}

	if len(words) == 0 {
		return errors.New("no words to speak")
	}

	sp := speech.NewSpeaker(cfg.Speech,
		speech.WithGap(opts.Gap),
		speech.WithNormalize(opts.Normalize),
		speech.WithStderr(os.Stderr),
		speech.WithLogger(slog.Default()),
	)

	wav, err := sp.Speak(ctx, words)
	if err != nil {
		return err
	}

	return writeWAVOutput(opts.Out, wav, stdout)
}

func writeWAVOutput(path string, data []byte, stdout io.Writer) error {
	if strings.TrimSpace(path) == "" || path == "-" {
		_, err := stdout.Write(data)
		return err
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	slog.Info("wrote speech", "path", path, "bytes", len(data))

	return nil
}
