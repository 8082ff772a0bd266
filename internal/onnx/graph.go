package onnx

import (
	"context"
	"errors"
)

// DefaultAPIVersion is the ORT C API version requested when none is set.
const DefaultAPIVersion = 23

var (
	// ErrRunnerClosed is returned by Run after Close.
	ErrRunnerClosed = errors.New("onnx runner is closed")
	// ErrRunnerUnavailable is returned on platforms without purego ORT loading.
	ErrRunnerUnavailable = errors.New("onnx runner is unavailable on this platform")
)

// RunnerConfig selects the ORT shared library a Runner loads.
type RunnerConfig struct {
	LibraryPath string
	APIVersion  uint32
}

// GraphRunner is the minimal contract StepModel needs from a graph session.
// Runner satisfies it; tests substitute scripted graphs.
type GraphRunner interface {
	Run(ctx context.Context, inputs map[string]*Tensor) (map[string]*Tensor, error)
	Name() string
	Close()
}

var _ GraphRunner = (*Runner)(nil)
