// Package sampler generates words by repeatedly stepping a recurrent model and
// drawing the next symbol from each predicted distribution.
package sampler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"

	"github.com/wabradshaw/wordgenerator/internal/runtime/tensor"
	"github.com/wabradshaw/wordgenerator/internal/vocab"
)

// Stepper is a model that consumes one time step at a time and keeps its
// recurrent state between calls.
type Stepper interface {
	// Step takes a B×V one-hot batch and returns B×V distributions.
	Step(ctx context.Context, input *tensor.Tensor) (*tensor.Tensor, error)
	// Reset clears the recurrent state.
	Reset()
}

// Renderer joins symbols into display text.
type Renderer interface {
	Render(symbols []string) string
}

// Options configures a Sampler.
type Options struct {
	// Policy defaults to Categorical.
	Policy Policy
	// Seed makes generation reproducible. Nil draws a random seed.
	Seed   *uint64
	Logger *slog.Logger
}

// Sampler is not safe for concurrent use: the stepper carries state.
type Sampler struct {
	vocab   *vocab.Vocabulary
	stepper Stepper
	policy  Policy
	rng     *rand.Rand
	logger  *slog.Logger
}

// New builds a Sampler over v and st.
func New(v *vocab.Vocabulary, st Stepper, opts Options) (*Sampler, error) {
	if v == nil || st == nil {
		return nil, errors.New("sampler: vocabulary and stepper are required")
	}

	policy := opts.Policy
	if policy == nil {
		policy = Categorical{Retries: DefaultRetries}
	}

	seed := rand.Uint64()
	if opts.Seed != nil {
		seed = *opts.Seed
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Sampler{
		vocab:   v,
		stepper: st,
		policy:  policy,
		rng:     rand.New(rand.NewPCG(seed, 0)),
		logger:  logger,
	}, nil
}

// Generate samples count sequences of at most maxSteps symbols. Each sequence
// ends before its first END; one that never reaches END is returned whole.
func (s *Sampler) Generate(ctx context.Context, count, maxSteps int) ([][]string, error) {
	if count < 0 || maxSteps < 0 {
		return nil, fmt.Errorf("sampler: count and max steps must be >= 0, got %d and %d", count, maxSteps)
	}

	if count == 0 {
		return [][]string{}, nil
	}

	width := s.vocab.Size()
	next := make([]int, count)
	for i := range next {
		next[i] = vocab.StartIndex
	}

	s.stepper.Reset()

	dist, err := s.step(ctx, next, width)
	if err != nil {
		return nil, err
	}

	drawn := make([][]int, count)

	for step := range maxSteps {
		for i := range count {
			row, err := dist.Row(i)
			if err != nil {
				return nil, err
			}

			idx, err := s.policy.Sample(row, s.rng)
			if err != nil {
				return nil, fmt.Errorf("sampler: sample %d step %d: %w", i, step, err)
			}

			drawn[i] = append(drawn[i], idx)
			next[i] = idx
		}

		if step == maxSteps-1 {
			break
		}

		if dist, err = s.step(ctx, next, width); err != nil {
			return nil, err
		}
	}

	out := make([][]string, count)
	for i, ids := range drawn {
		if cut := slices.Index(ids, vocab.EndIndex); cut >= 0 {
			ids = ids[:cut]
		}

		out[i] = make([]string, len(ids))
		for j, id := range ids {
			if out[i][j], err = s.vocab.SymbolAt(id); err != nil {
				return nil, err
			}
		}
	}

	s.logger.Debug("generation complete", "count", count, "max_steps", maxSteps)

	return out, nil
}

// GenerateStrings is Generate followed by r.Render on every sequence.
func (s *Sampler) GenerateStrings(ctx context.Context, r Renderer, count, maxSteps int) ([]string, error) {
	seqs, err := s.Generate(ctx, count, maxSteps)
	if err != nil {
		return nil, err
	}

	words := make([]string, len(seqs))
	for i, seq := range seqs {
		words[i] = r.Render(seq)
	}

	return words, nil
}

func (s *Sampler) step(ctx context.Context, indices []int, width int) (*tensor.Tensor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	input, err := tensor.OneHot(indices, width)
	if err != nil {
		return nil, err
	}

	out, err := s.stepper.Step(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("sampler: step model: %w", err)
	}

	if shape := out.Shape(); len(shape) != 2 || shape[0] != int64(len(indices)) || shape[1] != int64(width) {
		return nil, fmt.Errorf("sampler: step returned shape %v, want [%d %d]", shape, len(indices), width)
	}

	return out, nil
}
