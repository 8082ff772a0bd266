package onnx

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// BatchDim is the symbolic dimension that takes the runtime batch size.
const BatchDim = "batch"

// OutputKind says how a graph's output row must be read.
type OutputKind string

const (
	OutputProbabilities OutputKind = "probabilities"
	OutputLogits        OutputKind = "logits"
)

type NodeInfo struct {
	Name  string `json:"name"`
	DType string `json:"dtype"`
	Shape []any  `json:"shape"`
}

// StateBinding feeds a graph output back into a graph input on the next
// step. Shape describes the zero state used after a reset.
type StateBinding struct {
	Input  string `json:"input"`
	Output string `json:"output"`
	DType  string `json:"dtype"`
	Shape  []any  `json:"shape"`
}

// Manifest describes a single-step recurrent graph.
type Manifest struct {
	Name       string         `json:"name"`
	Filename   string         `json:"filename"`
	TokenSet   string         `json:"token_set"`
	Input      NodeInfo       `json:"input"`
	Output     NodeInfo       `json:"output"`
	OutputKind OutputKind     `json:"output_kind"`
	State      []StateBinding `json:"state"`

	// Path is Filename resolved against the manifest directory.
	Path string `json:"-"`
}

// LoadManifest reads and validates a step model manifest. The graph file
// must exist.
func LoadManifest(manifestPath string) (Manifest, error) {
	if manifestPath == "" {
		return Manifest{}, errors.New("manifest path is required")
	}

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return Manifest{}, fmt.Errorf("read ONNX manifest: %w", err)
	}

	m, err := ParseManifest(data)
	if err != nil {
		return Manifest{}, err
	}

	graphPath := m.Filename
	if !filepath.IsAbs(graphPath) {
		graphPath = filepath.Join(filepath.Dir(manifestPath), graphPath)
	}

	m.Path = filepath.Clean(graphPath)
	if _, err := os.Stat(m.Path); err != nil {
		return Manifest{}, fmt.Errorf("graph file for %q: %w", m.Name, err)
	}

	slog.Info(
		"loaded ONNX manifest",
		"name", m.Name,
		"path", m.Path,
		"token_set", m.TokenSet,
		"input", m.Input.Name,
		"output", m.Output.Name,
		"state", stateNames(m.State),
	)

	return m, nil
}

// ParseManifest decodes manifest JSON and fills defaults. Path is left empty.
func ParseManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("decode ONNX manifest: %w", err)
	}

	if m.Name == "" {
		m.Name = strings.TrimSuffix(filepath.Base(m.Filename), filepath.Ext(m.Filename))
	}

	if m.Filename == "" {
		return Manifest{}, errors.New("manifest has empty filename")
	}

	if m.Input.Name == "" || m.Output.Name == "" {
		return Manifest{}, fmt.Errorf("manifest %q must name its input and output", m.Name)
	}

	switch m.OutputKind {
	case "":
		m.OutputKind = OutputProbabilities
	case OutputProbabilities, OutputLogits:
	default:
		return Manifest{}, fmt.Errorf("manifest %q has unknown output_kind %q", m.Name, m.OutputKind)
	}

	seen := map[string]bool{m.Input.Name: true}
	for i, s := range m.State {
		if s.Input == "" || s.Output == "" {
			return Manifest{}, fmt.Errorf("manifest %q state[%d] needs input and output names", m.Name, i)
		}

		if seen[s.Input] {
			return Manifest{}, fmt.Errorf("manifest %q binds input %q twice", m.Name, s.Input)
		}

		if s.Output == m.Output.Name {
			return Manifest{}, fmt.Errorf("manifest %q state[%d] reuses the distribution output %q", m.Name, i, s.Output)
		}

		if _, err := parseDType(s.DType); err != nil {
			return Manifest{}, fmt.Errorf("manifest %q state %q: %w", m.Name, s.Input, err)
		}

		seen[s.Input] = true
	}

	return m, nil
}

func stateNames(state []StateBinding) string {
	if len(state) == 0 {
		return ""
	}

	names := make([]string, 0, len(state))
	for _, s := range state {
		names = append(names, s.Input+"<-"+s.Output)
	}

	return strings.Join(names, ",")
}
