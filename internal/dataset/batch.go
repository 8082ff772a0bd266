package dataset

import (
	"fmt"

	"github.com/wabradshaw/wordgenerator/internal/runtime/tensor"
	"github.com/wabradshaw/wordgenerator/internal/vocab"
)

// Batch holds a window of encoded sequences.
//
// Input and Label are B×V×T one-hot tensors and the masks are B×T, where
// T = MaxLength+1. Row b of the input is START followed by the sequence; row b
// of the label is the sequence followed by END. Positions after the first END
// are padded with END and masked out.
type Batch struct {
	Input     *tensor.Tensor
	Label     *tensor.Tensor
	InputMask *tensor.Tensor
	LabelMask *tensor.Tensor

	// Lengths holds the sequence length of each row.
	Lengths []int
	// Lines holds the window-relative line index each row came from.
	Lines []int
	// Dropped counts window lines that were rejected or too long.
	Dropped int
}

func newBatch(rows, width, maxLength int) (*Batch, error) {
	b, v, t := int64(rows), int64(width), int64(maxLength+1)

	input, err := tensor.Zeros([]int64{b, v, t})
	if err != nil {
		return nil, fmt.Errorf("dataset: allocate input: %w", err)
	}

	label, err := tensor.Zeros([]int64{b, v, t})
	if err != nil {
		return nil, fmt.Errorf("dataset: allocate label: %w", err)
	}

	inMask, err := tensor.Zeros([]int64{b, t})
	if err != nil {
		return nil, fmt.Errorf("dataset: allocate input mask: %w", err)
	}

	labelMask, err := tensor.Zeros([]int64{b, t})
	if err != nil {
		return nil, fmt.Errorf("dataset: allocate label mask: %w", err)
	}

	return &Batch{
		Input:     input,
		Label:     label,
		InputMask: inMask,
		LabelMask: labelMask,
		Lengths:   make([]int, rows),
		Lines:     make([]int, rows),
	}, nil
}

// Size is the number of rows actually encoded.
func (b *Batch) Size() int { return len(b.Lengths) }

// Steps is the time dimension, MaxLength+1.
func (b *Batch) Steps() int {
	shape := b.InputMask.Shape()
	if len(shape) != 2 {
		return 0
	}

	return int(shape[1])
}

// VocabSize is the one-hot width.
func (b *Batch) VocabSize() int {
	shape := b.Input.Shape()
	if len(shape) != 3 {
		return 0
	}

	return int(shape[1])
}

// fillRow writes one sequence. Rows are disjoint, so rows may be filled
// concurrently.
func (b *Batch) fillRow(row int, seq []int) {
	r := int64(row)
	m := int64(b.Steps() - 1)
	l := int64(len(seq))
	end := int64(vocab.EndIndex)

	b.Input.Set(1, r, vocab.StartIndex, 0)
	b.InputMask.Set(1, r, 0)

	for t, c := range seq {
		ti, ci := int64(t), int64(c)
		b.Input.Set(1, r, ci, ti+1)
		b.Label.Set(1, r, ci, ti)
		b.InputMask.Set(1, r, ti+1)
		b.LabelMask.Set(1, r, ti)
	}

	// END is a real prediction target when the word is shorter than M.
	if l < m {
		b.Input.Set(1, r, end, l+1)
		b.Label.Set(1, r, end, l)
		b.InputMask.Set(1, r, l+1)
		b.LabelMask.Set(1, r, l)
	}

	for t := l + 1; t < m; t++ {
		b.Input.Set(1, r, end, t+1)
		b.Label.Set(1, r, end, t)
	}

	b.Label.Set(1, r, end, m)
	b.LabelMask.Set(0, r, m)
}

// Window returns the lines of batch batchNumber, clamped to the end of lines.
func Window(lines []string, batchNumber, batchSize int) []string {
	if batchNumber < 0 || batchSize <= 0 {
		return nil
	}

	start := batchNumber * batchSize
	if start >= len(lines) {
		return nil
	}

	return lines[start:min(start+batchSize, len(lines))]
}

// Batches is the number of windows needed to cover lines.
func Batches(lines []string, batchSize int) int {
	if batchSize <= 0 {
		return 0
	}

	return (len(lines) + batchSize - 1) / batchSize
}
