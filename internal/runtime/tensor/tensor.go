// Package tensor holds the dense float32 arrays exchanged between the batch
// encoder, the sampler and the model runtimes: one-hot construction, indexed
// access and a last-axis softmax.
package tensor

import (
	"errors"
	"fmt"
	"math"
)

// Tensor is a dense, row-major float32 array.
type Tensor struct {
	shape []int64
	data  []float32
}

// New creates a tensor from data and shape. Both slices are copied.
func New(data []float32, shape []int64) (*Tensor, error) {
	n, err := size(shape)
	if err != nil {
		return nil, err
	}

	if len(data) != n {
		return nil, fmt.Errorf("tensor: %d values for shape %v, want %d", len(data), shape, n)
	}

	return &Tensor{shape: clone(shape), data: clone(data)}, nil
}

// Zeros creates a zero-filled tensor.
func Zeros(shape []int64) (*Tensor, error) {
	n, err := size(shape)
	if err != nil {
		return nil, err
	}

	return &Tensor{shape: clone(shape), data: make([]float32, n)}, nil
}

// OneHot builds a [len(indices), width] matrix whose row r is 1 at
// indices[r] and 0 elsewhere.
func OneHot(indices []int, width int) (*Tensor, error) {
	if width < 1 {
		return nil, fmt.Errorf("tensor: one-hot width %d", width)
	}

	t, err := Zeros([]int64{int64(len(indices)), int64(width)})
	if err != nil {
		return nil, err
	}

	for r, idx := range indices {
		if idx < 0 || idx >= width {
			return nil, fmt.Errorf("tensor: one-hot index %d outside [0, %d)", idx, width)
		}

		t.data[r*width+idx] = 1
	}

	return t, nil
}

func (t *Tensor) Shape() []int64 {
	if t == nil {
		return nil
	}

	return clone(t.shape)
}

// Data returns a copy of the elements.
func (t *Tensor) Data() []float32 {
	if t == nil {
		return nil
	}

	return clone(t.data)
}

// RawData returns the backing slice. Callers must not write to it.
func (t *Tensor) RawData() []float32 {
	if t == nil {
		return nil
	}

	return t.data
}

// At returns the element at coord. Like slice indexing it panics when coord
// is out of range.
func (t *Tensor) At(coord ...int64) float32 {
	return t.data[t.index(coord)]
}

// Set stores v at coord.
func (t *Tensor) Set(v float32, coord ...int64) {
	t.data[t.index(coord)] = v
}

// Row returns the i-th slice along the first dimension as a view into the
// tensor.
func (t *Tensor) Row(i int) ([]float32, error) {
	if t == nil || len(t.shape) == 0 {
		return nil, errors.New("tensor: row of a scalar")
	}

	rows := int(t.shape[0])
	if i < 0 || i >= rows {
		return nil, fmt.Errorf("tensor: row %d outside [0, %d)", i, rows)
	}

	w := len(t.data) / rows

	return t.data[i*w : (i+1)*w : (i+1)*w], nil
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	if t == nil {
		return nil
	}

	return &Tensor{shape: clone(t.shape), data: clone(t.data)}
}

func (t *Tensor) index(coord []int64) int64 {
	if len(coord) != len(t.shape) {
		panic(fmt.Sprintf("tensor: %d-d coordinate for a %d-d tensor", len(coord), len(t.shape)))
	}

	var off int64

	for axis, c := range coord {
		dim := t.shape[axis]
		if c < 0 || c >= dim {
			panic(fmt.Sprintf("tensor: coordinate %v outside shape %v", coord, t.shape))
		}

		off = off*dim + c
	}

	return off
}

// Softmax returns a copy of x with every last-axis slice turned into a
// probability distribution. Step models that export logits go through it
// before sampling.
func Softmax(x *Tensor) (*Tensor, error) {
	if x == nil || len(x.shape) == 0 {
		return nil, errors.New("tensor: softmax needs rank >= 1")
	}

	width := int(x.shape[len(x.shape)-1])
	if width < 1 {
		return nil, fmt.Errorf("tensor: softmax over empty axis %v", x.shape)
	}

	out := x.Clone()

	for lo := 0; lo < len(out.data); lo += width {
		if err := softmaxInPlace(out.data[lo : lo+width]); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// softmaxInPlace shifts by the row maximum before exponentiating.
func softmaxInPlace(row []float32) error {
	peak := float32(math.Inf(-1))
	for _, v := range row {
		peak = max(peak, v)
	}

	var total float64

	for k, v := range row {
		e := math.Exp(float64(v - peak))
		row[k] = float32(e)
		total += e
	}

	if total == 0 || math.IsNaN(total) {
		return errors.New("tensor: softmax row does not normalize")
	}

	scale := float32(1 / total)
	for k := range row {
		row[k] *= scale
	}

	return nil
}

func size(shape []int64) (int, error) {
	n := int64(1)

	for _, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("tensor: negative dimension in shape %v", shape)
		}

		if d != 0 && n > int64(math.MaxInt)/d {
			return 0, fmt.Errorf("tensor: shape %v is too large", shape)
		}

		n *= d
	}

	return int(n), nil
}

func clone[T any](s []T) []T {
	return append([]T(nil), s...)
}
