// Package dataset turns windows of corpus lines into teacher-forcing batches:
// one-hot inputs shifted right behind START, one-hot labels, and the masks that
// keep padding out of the loss.
package dataset

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/wabradshaw/wordgenerator/internal/runtime/tensor"
	"github.com/wabradshaw/wordgenerator/internal/tokenizer"
	"github.com/wabradshaw/wordgenerator/internal/vocab"
)

// DropReason says why a corpus line did not make it into a batch.
type DropReason int

const (
	Accepted DropReason = iota
	// Rejected lines have no usable field for the active tokenizer.
	Rejected
	// TooLong lines encode to more than MaxLength symbols.
	TooLong
)

func (r DropReason) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	case TooLong:
		return "too-long"
	default:
		return fmt.Sprintf("DropReason(%d)", int(r))
	}
}

// Sequence is the tokenization result for one line of a window.
type Sequence struct {
	Line   int
	Tokens []int
	Reason DropReason
}

// Kept reports whether the sequence enters the batch.
func (s Sequence) Kept() bool {
	return s.Reason == Accepted
}

// Options configures an Encoder.
type Options struct {
	// MaxLength is the longest sequence kept, excluding START and END.
	MaxLength int
	// Workers bounds tokenization goroutines; 0 uses tensor.Workers().
	Workers int
	Logger  *slog.Logger
}

// Encoder builds batches for one tokenizer and vocabulary.
type Encoder struct {
	tok       tokenizer.Tokenizer
	vocab     *vocab.Vocabulary
	maxLength int
	workers   int
	logger    *slog.Logger
}

// NewEncoder validates opts and returns an Encoder.
func NewEncoder(tok tokenizer.Tokenizer, v *vocab.Vocabulary, opts Options) (*Encoder, error) {
	if tok == nil || v == nil {
		return nil, errors.New("dataset: tokenizer and vocabulary are required")
	}

	if opts.MaxLength < 1 {
		return nil, fmt.Errorf("dataset: max length must be >= 1, got %d", opts.MaxLength)
	}

	if opts.Workers < 0 {
		return nil, fmt.Errorf("dataset: workers must be >= 0, got %d", opts.Workers)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Encoder{
		tok:       tok,
		vocab:     v,
		maxLength: opts.MaxLength,
		workers:   opts.Workers,
		logger:    logger,
	}, nil
}

// Tokenize encodes every line, one contiguous chunk per worker. The result is
// indexed like lines. An encode failure after a field was accepted means the
// tokenizer and vocabulary disagree; the failure on the lowest line wins.
func (e *Encoder) Tokenize(lines []string) ([]Sequence, error) {
	seqs := make([]Sequence, len(lines))
	errs := make([]error, len(lines))

	tensor.ParallelFor(len(lines), e.workers, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			seqs[i], errs[i] = e.tokenizeLine(i, lines[i])
		}
	})

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("dataset: line %d: %w", i, err)
		}
	}

	return seqs, nil
}

func (e *Encoder) tokenizeLine(i int, line string) (Sequence, error) {
	field, ok := e.tok.RelevantField(line)
	if !ok {
		return Sequence{Line: i, Reason: Rejected}, nil
	}

	ids, err := e.tok.Encode(field)
	if err != nil {
		return Sequence{}, err
	}

	if len(ids) > e.maxLength {
		return Sequence{Line: i, Tokens: ids, Reason: TooLong}, nil
	}

	return Sequence{Line: i, Tokens: ids, Reason: Accepted}, nil
}

// BuildBatch encodes lines and lays the kept sequences out as a Batch. Dropped
// lines are not replaced, so the batch may hold fewer rows than lines.
func (e *Encoder) BuildBatch(lines []string) (*Batch, error) {
	seqs, err := e.Tokenize(lines)
	if err != nil {
		return nil, err
	}

	kept := make([]Sequence, 0, len(seqs))
	for _, s := range seqs {
		if s.Kept() {
			kept = append(kept, s)
		}
	}

	b, err := newBatch(len(kept), e.vocab.Size(), e.maxLength)
	if err != nil {
		return nil, err
	}

	b.Dropped = len(seqs) - len(kept)

	for row, s := range kept {
		b.Lines[row] = s.Line
		b.Lengths[row] = len(s.Tokens)
	}

	tensor.ParallelFor(len(kept), e.workers, func(lo, hi int) {
		for row := lo; row < hi; row++ {
			b.fillRow(row, kept[row].Tokens)
		}
	})

	e.logger.Debug("batch built", "lines", len(lines), "kept", b.Size(), "dropped", b.Dropped)

	return b, nil
}
