package onnx

import (
	"context"
	"errors"
	"fmt"

	"github.com/wabradshaw/wordgenerator/internal/runtime/tensor"
)

// StepModel runs a recurrent graph one time step at a time, carrying the
// manifest's state outputs into the next call. It is not safe for concurrent
// use.
type StepModel struct {
	manifest Manifest
	runner   GraphRunner

	batch int64
	state map[string]*Tensor
}

// NewStepModel binds a manifest to an open graph runner. The StepModel owns
// the runner and closes it on Close.
func NewStepModel(m Manifest, r GraphRunner) (*StepModel, error) {
	if r == nil {
		return nil, errors.New("onnx: step model needs a graph runner")
	}

	if m.OutputKind == "" {
		m.OutputKind = OutputProbabilities
	}

	return &StepModel{manifest: m, runner: r}, nil
}

// LoadStepModel reads the manifest at manifestPath and opens its graph.
func LoadStepModel(manifestPath string, cfg RunnerConfig) (*StepModel, error) {
	m, err := LoadManifest(manifestPath)
	if err != nil {
		return nil, err
	}

	r, err := NewRunner(m, cfg)
	if err != nil {
		return nil, err
	}

	return NewStepModel(m, r)
}

func (s *StepModel) Manifest() Manifest {
	return s.manifest
}

// Reset drops the recurrent state. The next Step starts from zeros.
func (s *StepModel) Reset() {
	s.state = nil
	s.batch = 0
}

// Step feeds a [B, V] one-hot batch through the graph and returns [B, V]
// probabilities.
func (s *StepModel) Step(ctx context.Context, input *tensor.Tensor) (*tensor.Tensor, error) {
	shape := input.Shape()
	if len(shape) != 2 {
		return nil, fmt.Errorf("onnx: step input must be [batch vocab], got %v", shape)
	}

	batch, width := shape[0], shape[1]

	if s.state == nil || s.batch != batch {
		if err := s.initState(batch); err != nil {
			return nil, err
		}
	}

	inShape := shape
	if len(s.manifest.Input.Shape) > 0 {
		resolved, err := resolveShape(s.manifest.Input.Shape, BatchDim, batch)
		if err != nil {
			return nil, fmt.Errorf("onnx: input %q: %w", s.manifest.Input.Name, err)
		}

		inShape = resolved
	}

	in, err := FromRuntime(input, inShape)
	if err != nil {
		return nil, fmt.Errorf("onnx: input %q: %w", s.manifest.Input.Name, err)
	}

	feeds := make(map[string]*Tensor, len(s.state)+1)
	feeds[s.manifest.Input.Name] = in

	for name, v := range s.state {
		feeds[name] = v
	}

	outputs, err := s.runner.Run(ctx, feeds)
	if err != nil {
		return nil, err
	}

	raw, ok := outputs[s.manifest.Output.Name]
	if !ok {
		return nil, fmt.Errorf("onnx: graph %q returned no %q output", s.runner.Name(), s.manifest.Output.Name)
	}

	dist, err := ToRuntime(raw, []int64{batch, width})
	if err != nil {
		return nil, fmt.Errorf("onnx: output %q: %w", s.manifest.Output.Name, err)
	}

	if s.manifest.OutputKind == OutputLogits {
		dist, err = tensor.Softmax(dist)
		if err != nil {
			return nil, fmt.Errorf("onnx: output %q: %w", s.manifest.Output.Name, err)
		}
	}

	// A step either advances every recurrent value or none of them.
	state := make(map[string]*Tensor, len(s.manifest.State))

	for _, b := range s.manifest.State {
		next, ok := outputs[b.Output]
		if !ok {
			return nil, fmt.Errorf("onnx: graph %q returned no state output %q", s.runner.Name(), b.Output)
		}

		state[b.Input] = next
	}

	s.state = state

	return dist, nil
}

// Close releases the graph runner.
func (s *StepModel) Close() {
	if s.runner != nil {
		s.runner.Close()
	}
}

func (s *StepModel) initState(batch int64) error {
	state := make(map[string]*Tensor, len(s.manifest.State))

	for _, b := range s.manifest.State {
		shape, err := resolveShape(b.Shape, BatchDim, batch)
		if err != nil {
			return fmt.Errorf("onnx: state %q: %w", b.Input, err)
		}

		zero, err := NewZeroTensor(b.DType, shape)
		if err != nil {
			return fmt.Errorf("onnx: state %q: %w", b.Input, err)
		}

		state[b.Input] = zero
	}

	s.state = state
	s.batch = batch

	return nil
}
