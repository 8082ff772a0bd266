//go:build windows

package onnx

import (
	"context"
	"fmt"
)

// Runner is a placeholder on windows, where ORT cannot be loaded via purego.
type Runner struct {
	graph string
}

// NewRunner reports ErrRunnerUnavailable.
func NewRunner(meta Manifest, _ RunnerConfig) (*Runner, error) {
	return nil, fmt.Errorf("graph %q: %w", meta.Name, ErrRunnerUnavailable)
}

func (r *Runner) Run(context.Context, map[string]*Tensor) (map[string]*Tensor, error) {
	return nil, fmt.Errorf("graph %q: %w", r.graph, ErrRunnerUnavailable)
}

func (r *Runner) Close() {}

func (r *Runner) Name() string { return r.graph }
