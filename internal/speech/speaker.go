// Package speech reads generated words aloud through the pocket-tts CLI and
// stitches the per-word clips into a single WAV.
package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/wabradshaw/wordgenerator/internal/config"
)

// DefaultExecutable is the pocket-tts binary looked up on PATH.
const DefaultExecutable = "pocket-tts"

// CLIOptions configures one pocket-tts generate call.
type CLIOptions struct {
	ExecutablePath string
	ConfigPath     string
	Voice          string
	Quiet          bool
	Text           string
	Stderr         io.Writer
}

// Runner synthesizes one piece of text into WAV bytes.
type Runner func(ctx context.Context, opts CLIOptions) ([]byte, error)

// SynthesizeViaCLI pipes opts.Text through `pocket-tts generate` and returns
// the WAV it writes to stdout.
func SynthesizeViaCLI(ctx context.Context, opts CLIOptions) ([]byte, error) {
	exe := opts.ExecutablePath
	if exe == "" {
		exe = DefaultExecutable
	}

	if strings.TrimSpace(opts.Text) == "" {
		return nil, errors.New("speech: empty input text")
	}

	args := []string{"generate", "--text", "-", "--output-path", "-"}
	if opts.Voice != "" {
		args = append(args, "--voice", opts.Voice)
	}

	if opts.ConfigPath != "" {
		args = append(args, "--config", opts.ConfigPath)
	}

	if opts.Quiet {
		args = append(args, "--quiet")
	}

	cmd := exec.CommandContext(ctx, exe, args...)
	cmd.Stdin = strings.NewReader(opts.Text)
	cmd.Stderr = opts.Stderr

	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("speech: %s generate: %w", exe, err)
	}

	return out.Bytes(), nil
}

// Speaker turns a list of words into one WAV with a pause between words.
type Speaker struct {
	cli       CLIOptions
	run       Runner
	gap       time.Duration
	normalize bool
	logger    *slog.Logger
}

// Option configures a Speaker.
type Option func(*Speaker)

// WithRunner replaces the pocket-tts subprocess.
func WithRunner(r Runner) Option {
	return func(s *Speaker) { s.run = r }
}

// WithGap sets the silence inserted between words.
func WithGap(d time.Duration) Option {
	return func(s *Speaker) { s.gap = d }
}

// WithNormalize peak-normalizes the final clip.
func WithNormalize(on bool) Option {
	return func(s *Speaker) { s.normalize = on }
}

// WithStderr forwards pocket-tts diagnostics.
func WithStderr(w io.Writer) Option {
	return func(s *Speaker) { s.cli.Stderr = w }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Speaker) { s.logger = l }
}

// NewSpeaker builds a Speaker from the speech configuration.
func NewSpeaker(cfg config.SpeechConfig, opts ...Option) *Speaker {
	s := &Speaker{
		cli: CLIOptions{
			ExecutablePath: cfg.CLIPath,
			ConfigPath:     cfg.CLIConfigPath,
			Voice:          cfg.Voice,
			Quiet:          cfg.Quiet,
		},
		run:    SynthesizeViaCLI,
		gap:    300 * time.Millisecond,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Speak synthesizes each word in order. Empty words are skipped.
func (s *Speaker) Speak(ctx context.Context, words []string) ([]byte, error) {
	clips := make([][]byte, 0, len(words))

	for i, word := range words {
		text := SpokenForm(word)
		if text == "" {
			continue
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		opts := s.cli
		opts.Text = text

		start := time.Now()

		clip, err := s.run(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("word %d (%q): %w", i+1, word, err)
		}

		s.logger.Debug("word synthesized", "word", word, "bytes", len(clip), "duration_ms", time.Since(start).Milliseconds())

		clips = append(clips, clip)
	}

	if len(clips) == 0 {
		return nil, errors.New("speech: no speakable words")
	}

	gap := int(s.gap.Seconds() * SampleRate)

	merged, err := Concat(clips, gap)
	if err != nil {
		return nil, err
	}

	if !s.normalize {
		return merged, nil
	}

	samples, err := DecodeWAV(merged)
	if err != nil {
		return nil, err
	}

	return EncodeWAV(PeakNormalize(samples))
}

// SpokenForm prepares a generated spelling for a text-to-speech engine:
// lower case, with a trailing period so each word is read as a sentence.
func SpokenForm(word string) string {
	word = strings.TrimSpace(word)
	if word == "" {
		return ""
	}

	return strings.ToLower(word) + "."
}
