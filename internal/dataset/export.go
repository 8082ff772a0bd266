package dataset

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wabradshaw/wordgenerator/internal/runtime/tensor"
	"github.com/wabradshaw/wordgenerator/internal/safetensors"
)

// Tensor names used in exported batch files.
const (
	TensorInput     = "input"
	TensorLabel     = "label"
	TensorInputMask = "input_mask"
	TensorLabelMask = "label_mask"
	TensorLengths   = "lengths"
)

var batchTensors = []string{TensorInput, TensorLabel, TensorInputMask, TensorLabelMask, TensorLengths}

// WriteBatch stores b as a safetensors file. extra is merged into the file
// metadata next to the batch's own counters.
func WriteBatch(path string, b *Batch, extra map[string]string) error {
	lengths := make([]float32, len(b.Lengths))
	for i, l := range b.Lengths {
		lengths[i] = float32(l)
	}

	meta := map[string]string{
		"dropped":    strconv.Itoa(b.Dropped),
		"size":       strconv.Itoa(b.Size()),
		"steps":      strconv.Itoa(b.Steps()),
		"vocab_size": strconv.Itoa(b.VocabSize()),
	}
	for k, v := range extra {
		meta[k] = v
	}

	tensors := []safetensors.Tensor{
		toStored(TensorInput, b.Input),
		toStored(TensorLabel, b.Label),
		toStored(TensorInputMask, b.InputMask),
		toStored(TensorLabelMask, b.LabelMask),
		{Name: TensorLengths, Shape: []int64{int64(len(lengths))}, Data: lengths},
	}

	if err := safetensors.WriteFile(path, tensors, meta); err != nil {
		return fmt.Errorf("dataset: write batch: %w", err)
	}

	return nil
}

// ReadBatch loads a batch written by WriteBatch. Line indices are not stored
// and come back as -1. Every tensor must agree with the [B, V, M+1] input.
func ReadBatch(path string) (*Batch, map[string]string, error) {
	store, err := safetensors.OpenStore(path)
	if err != nil {
		return nil, nil, fmt.Errorf("dataset: read batch: %w", err)
	}
	defer store.Close()

	var missing []string

	for _, name := range batchTensors {
		if !store.Has(name) {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("dataset: read batch %s: missing %s (have %s)",
			path, strings.Join(missing, ", "), strings.Join(store.Names(), ", "))
	}

	input, err := store.Tensor(TensorInput)
	if err != nil {
		return nil, nil, fmt.Errorf("dataset: read batch %s: %w", path, err)
	}

	if len(input.Shape) != 3 {
		return nil, nil, fmt.Errorf("dataset: read batch %s: input has rank %d, want 3", path, len(input.Shape))
	}

	rows, steps := input.Shape[0], input.Shape[2]

	want := map[string][]int64{
		TensorInput:     input.Shape,
		TensorLabel:     input.Shape,
		TensorInputMask: {rows, steps},
		TensorLabelMask: {rows, steps},
	}

	load := func(name string) (*tensor.Tensor, error) {
		st, err := store.TensorWithShape(name, want[name])
		if err != nil {
			return nil, err
		}

		return tensor.New(st.Data, st.Shape)
	}

	b := &Batch{}

	for name, dst := range map[string]**tensor.Tensor{
		TensorInput:     &b.Input,
		TensorLabel:     &b.Label,
		TensorInputMask: &b.InputMask,
		TensorLabelMask: &b.LabelMask,
	} {
		if *dst, err = load(name); err != nil {
			return nil, nil, fmt.Errorf("dataset: read batch %s: %w", path, err)
		}
	}

	lengths, err := store.TensorWithShape(TensorLengths, []int64{rows})
	if err != nil {
		return nil, nil, fmt.Errorf("dataset: read batch %s: %w", path, err)
	}

	b.Lengths = make([]int, len(lengths.Data))
	b.Lines = make([]int, len(lengths.Data))

	for i, l := range lengths.Data {
		b.Lengths[i] = int(l)
		b.Lines[i] = -1
	}

	meta := store.Metadata()
	if d, ok := meta["dropped"]; ok {
		if b.Dropped, err = strconv.Atoi(d); err != nil {
			return nil, nil, fmt.Errorf("dataset: read batch %s: bad dropped count %q", path, d)
		}
	}

	return b, meta, nil
}

func toStored(name string, t *tensor.Tensor) safetensors.Tensor {
	return safetensors.Tensor{Name: name, Shape: t.Shape(), Data: t.RawData()}
}
