package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wabradshaw/wordgenerator/internal/config"
	"github.com/wabradshaw/wordgenerator/internal/corpus"
	"github.com/wabradshaw/wordgenerator/internal/ipa"
	"github.com/wabradshaw/wordgenerator/internal/tokenizer"
	"github.com/wabradshaw/wordgenerator/internal/vocab"
)

func newIPACmd() *cobra.Command {
	var fromCorpus bool

	cmd := &cobra.Command{
		Use:   "ipa [ARPABET...]",
		Short: "Render ARPAbet pronunciations as IPA",
		Long: "Render ARPAbet pronunciations as IPA. Each argument is one pronunciation;\n" +
			"without arguments, lines are read from stdin. Fused stress digits (AE1) are split.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			if fromCorpus {
				return mapCorpus(cfg, out, slog.Default())
			}

			inputs := args
			if len(inputs) == 0 {
				inputs, err = readLines(cmd.InOrStdin())
				if err != nil {
					return err
				}
			}

			for _, in := range inputs {
				glyphs, err := mapPronunciation(in)
				if err != nil {
					return err
				}

				if _, err := fmt.Fprintln(out, glyphs); err != nil {
					return err
				}
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&fromCorpus, "corpus", false, "Map every entry of the configured corpus")

	return cmd
}

var splitStress = mustSplitStressTokenizer()

type splitTokenizer struct {
	vocab *vocab.Vocabulary
	tok   tokenizer.Tokenizer
}

func mustSplitStressTokenizer() splitTokenizer {
	v, err := vocab.ForKind(vocab.KindPhonemesSplitStress)
	if err != nil {
		panic(err)
	}

	tok, err := tokenizer.New(v, vocab.KindPhonemesSplitStress)
	if err != nil {
		panic(err)
	}

	return splitTokenizer{vocab: v, tok: tok}
}

// mapPronunciation splits fused stress digits off their vowels and maps the
// result. Inputs the phoneme vocabulary rejects go to ipa.Map unchanged so the
// error names the offending symbol.
func mapPronunciation(in string) (string, error) {
	in = strings.Join(strings.Fields(in), " ")

	if ids, err := splitStress.tok.Encode(in); err == nil {
		if symbols, err := tokenizer.Decode(splitStress.vocab, ids); err == nil {
			in = splitStress.tok.Render(symbols)
		}
	}

	return ipa.Map(in)
}

// mapCorpus writes "WORD\tIPA" for every corpus entry. Entries without a
// pronunciation or with a symbol the mapper does not know are skipped and
// counted in a single warning.
func mapCorpus(cfg config.Config, out io.Writer, log *slog.Logger) error {
	lines, err := corpus.LoadFile(cfg.Paths.Corpus, cfg.Corpus.HeaderLines)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(out)

	var malformed, unmapped int

	for _, line := range lines {
		entry, err := corpus.ParseEntry(line)
		if err != nil {
			malformed++
			continue
		}

		glyphs, err := mapPronunciation(entry.Pronunciation)
		if err != nil {
			unmapped++
			continue
		}

		if _, err := fmt.Fprintf(w, "%s\t%s\n", entry.Word, glyphs); err != nil {
			return err
		}
	}

	if malformed+unmapped > 0 {
		log.Warn("skipped corpus entries",
			slog.String("corpus", cfg.Paths.Corpus),
			slog.Int("malformed", malformed),
			slog.Int("unmapped", unmapped),
		)
	}

	return w.Flush()
}

func readLines(r io.Reader) ([]string, error) {
	if r == nil {
		r = os.Stdin
	}

	var lines []string

	s := bufio.NewScanner(r)
	for s.Scan() {
		if line := strings.TrimSpace(s.Text()); line != "" {
			lines = append(lines, line)
		}
	}

	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}

	return lines, nil
}
