//go:build !windows

package onnx

import (
	"context"
	"fmt"

	ort "github.com/shota3506/onnxruntime-purego/onnxruntime"
)

// Runner owns one ORT session over a step graph. Handles are released in the
// reverse order they were acquired.
type Runner struct {
	graph   string
	rt      *ort.Runtime
	sess    *ort.Session
	release []func()
}

// NewRunner loads the ORT library named by cfg and opens the graph file the
// manifest points at.
func NewRunner(meta Manifest, cfg RunnerConfig) (*Runner, error) {
	api := cfg.APIVersion
	if api == 0 {
		api = DefaultAPIVersion
	}

	r := &Runner{graph: meta.Name}

	rt, err := ort.NewRuntime(cfg.LibraryPath, api)
	if err != nil {
		return nil, r.abort("load library "+cfg.LibraryPath, err)
	}

	r.rt = rt
	r.release = append(r.release, func() { _ = rt.Close() })

	env, err := rt.NewEnv("wordgen-"+meta.Name, ort.LoggingLevelWarning)
	if err != nil {
		return nil, r.abort("create env", err)
	}

	r.release = append(r.release, func() { env.Close() })

	sess, err := rt.NewSession(env, meta.Path, nil)
	if err != nil {
		return nil, r.abort("open "+meta.Path, err)
	}

	r.sess = sess
	r.release = append(r.release, func() { sess.Close() })

	return r, nil
}

// Run feeds inputs through the graph and returns every graph output.
func (r *Runner) Run(ctx context.Context, inputs map[string]*Tensor) (map[string]*Tensor, error) {
	if r.sess == nil {
		return nil, fmt.Errorf("graph %q: %w", r.graph, ErrRunnerClosed)
	}

	feeds := make(map[string]*ort.Value, len(inputs))
	defer closeValues(feeds)

	for name, t := range inputs {
		v, err := toValue(r.rt, t)
		if err != nil {
			return nil, fmt.Errorf("graph %q: input %q: %w", r.graph, name, err)
		}

		feeds[name] = v
	}

	fetched, err := r.sess.Run(ctx, feeds)
	if err != nil {
		return nil, fmt.Errorf("graph %q: run: %w", r.graph, err)
	}
	defer closeValues(fetched)

	out := make(map[string]*Tensor, len(fetched))

	for name, v := range fetched {
		t, err := fromValue(v)
		if err != nil {
			return nil, fmt.Errorf("graph %q: output %q: %w", r.graph, name, err)
		}

		out[name] = t
	}

	return out, nil
}

// Close releases the session, env and library. Later calls do nothing.
func (r *Runner) Close() {
	for i := len(r.release) - 1; i >= 0; i-- {
		r.release[i]()
	}

	r.release = nil
	r.sess = nil
	r.rt = nil
}

// Name returns the graph name from the manifest.
func (r *Runner) Name() string {
	return r.graph
}

func (r *Runner) abort(step string, err error) error {
	r.Close()
	return fmt.Errorf("graph %q: %s: %w", r.graph, step, err)
}

func toValue(rt *ort.Runtime, t *Tensor) (*ort.Value, error) {
	switch data := t.Data().(type) {
	case []float32:
		return ort.NewTensorValue(rt, data, t.Shape())
	case []int64:
		return ort.NewTensorValue(rt, data, t.Shape())
	default:
		return nil, fmt.Errorf("no ORT mapping for %s tensors", t.DType())
	}
}

func fromValue(v *ort.Value) (*Tensor, error) {
	kind, err := v.GetTensorElementType()
	if err != nil {
		return nil, fmt.Errorf("element type: %w", err)
	}

	switch kind {
	case ort.ONNXTensorElementDataTypeFloat:
		return readValue[float32](v)
	case ort.ONNXTensorElementDataTypeInt64:
		return readValue[int64](v)
	default:
		return nil, fmt.Errorf("no tensor mapping for ORT element type %d", kind)
	}
}

func readValue[T float32 | int64](v *ort.Value) (*Tensor, error) {
	data, shape, err := ort.GetTensorData[T](v)
	if err != nil {
		return nil, err
	}

	return NewTensor(data, shape)
}

func closeValues(values map[string]*ort.Value) {
	for _, v := range values {
		if v != nil {
			v.Close()
		}
	}
}
