package onnx

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/wabradshaw/wordgenerator/internal/runtime/tensor"
)

// DType names the element type of a graph value.
type DType string

const (
	DTypeFloat32 DType = "float32"
	DTypeInt64   DType = "int64"
)

var errNilTensor = errors.New("nil tensor")

// Tensor is a value fed to or fetched from a step graph. Exactly one of the
// backing slices is set, matching dtype.
type Tensor struct {
	dtype DType
	shape []int64
	f32   []float32
	i64   []int64
}

// NewTensor copies data into a graph value of the given shape.
func NewTensor[T float32 | int64](data []T, shape []int64) (*Tensor, error) {
	n, err := numElements(shape)
	if err != nil {
		return nil, err
	}

	if n != len(data) {
		return nil, fmt.Errorf("shape %v expects %d elements, got %d", shape, n, len(data))
	}

	t := &Tensor{shape: append([]int64(nil), shape...)}

	switch d := any(data).(type) {
	case []float32:
		t.dtype, t.f32 = DTypeFloat32, append(make([]float32, 0, n), d...)
	case []int64:
		t.dtype, t.i64 = DTypeInt64, append(make([]int64, 0, n), d...)
	}

	return t, nil
}

// NewZeroTensor allocates a zero-filled value of a manifest dtype name such
// as "float", "tensor(float)" or "int64".
func NewZeroTensor(dtype string, shape []int64) (*Tensor, error) {
	dt, err := parseDType(dtype)
	if err != nil {
		return nil, err
	}

	n, err := numElements(shape)
	if err != nil {
		return nil, err
	}

	if dt == DTypeInt64 {
		return NewTensor(make([]int64, n), shape)
	}

	return NewTensor(make([]float32, n), shape)
}

// FromRuntime copies a runtime tensor into a float32 graph value. A nil shape
// keeps the runtime tensor's shape.
func FromRuntime(t *tensor.Tensor, shape []int64) (*Tensor, error) {
	if shape == nil {
		shape = t.Shape()
	}

	return NewTensor(t.Data(), shape)
}

// ToRuntime copies a float32 graph value into a runtime tensor. A nil shape
// keeps the graph value's shape.
func ToRuntime(t *Tensor, shape []int64) (*tensor.Tensor, error) {
	data, err := t.Float32s()
	if err != nil {
		return nil, err
	}

	if shape == nil {
		shape = t.Shape()
	}

	return tensor.New(data, shape)
}

func (t *Tensor) DType() DType { return t.dtype }

func (t *Tensor) Shape() []int64 { return append([]int64(nil), t.shape...) }

// Data returns a copy of the backing slice as []float32 or []int64.
func (t *Tensor) Data() any {
	if t.dtype == DTypeInt64 {
		return append([]int64(nil), t.i64...)
	}

	return append([]float32(nil), t.f32...)
}

// Float32s returns a copy of a float32 value's elements.
func (t *Tensor) Float32s() ([]float32, error) {
	if t == nil {
		return nil, errNilTensor
	}

	if t.dtype != DTypeFloat32 {
		return nil, fmt.Errorf("want float32 tensor, got %s", t.dtype)
	}

	return append([]float32(nil), t.f32...), nil
}

// Int64s returns a copy of an int64 value's elements.
func (t *Tensor) Int64s() ([]int64, error) {
	if t == nil {
		return nil, errNilTensor
	}

	if t.dtype != DTypeInt64 {
		return nil, fmt.Errorf("want int64 tensor, got %s", t.dtype)
	}

	return append([]int64(nil), t.i64...), nil
}

func parseDType(raw string) (DType, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if inner, ok := strings.CutPrefix(name, "tensor("); ok {
		name = strings.TrimSuffix(inner, ")")
	}

	switch name {
	case "", "float", "float32":
		return DTypeFloat32, nil
	case "int64", "long":
		return DTypeInt64, nil
	}

	return "", fmt.Errorf("unsupported tensor dtype %q", raw)
}

// resolveShape turns a manifest shape into concrete dimensions. The symbolic
// dimension named batchDim takes the value batch and any other symbol is 1.
// JSON numbers arrive as float64 and must be whole and positive.
func resolveShape(shape []any, batchDim string, batch int64) ([]int64, error) {
	out := make([]int64, len(shape))

	for i, dim := range shape {
		if sym, ok := dim.(string); ok {
			sym = strings.TrimSpace(sym)
			if sym == "" {
				return nil, fmt.Errorf("shape[%d] has empty symbolic dimension", i)
			}

			out[i] = 1
			if sym == batchDim {
				out[i] = batch
			}

			continue
		}

		n, err := fixedDim(dim)
		if err != nil {
			return nil, fmt.Errorf("shape[%d]: %w", i, err)
		}

		out[i] = n
	}

	return out, nil
}

func fixedDim(dim any) (int64, error) {
	var n int64

	switch v := dim.(type) {
	case float64:
		if v != math.Trunc(v) || v < 1 || v > math.MaxInt32 {
			return 0, fmt.Errorf("%v is not a positive integer", v)
		}

		n = int64(v)
	case int:
		n = int64(v)
	case int64:
		n = v
	default:
		return 0, fmt.Errorf("unsupported type %T", dim)
	}

	if n < 1 {
		return 0, fmt.Errorf("%d is not a positive integer", n)
	}

	return n, nil
}

func numElements(shape []int64) (int, error) {
	n := 1

	for i, dim := range shape {
		if dim < 1 {
			return 0, fmt.Errorf("shape[%d]=%d is not positive", i, dim)
		}

		if int64(n) > int64(math.MaxInt)/dim {
			return 0, fmt.Errorf("shape %v overflows element count", shape)
		}

		n *= int(dim)
	}

	return n, nil
}
