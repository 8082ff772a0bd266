// Package safetensors reads and writes the safetensors container: an 8-byte
// little-endian header length, a JSON header describing every tensor, then the
// raw little-endian tensor bytes. Only F32 tensors are supported.
package safetensors

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"slices"
	"sort"
	"strings"
)

const (
	dtypeF32    = "F32"
	metadataKey = "__metadata__"
)

type headerEntry struct {
	DType   string  `json:"dtype"`
	Shape   []int64 `json:"shape"`
	Offsets [2]int  `json:"data_offsets"`
}

type storeEntry struct {
	shape      []int64
	start, end int
}

// Store gives named access to the tensors of one safetensors payload.
type Store struct {
	raw      []byte
	entries  map[string]storeEntry
	names    []string
	metadata map[string]string
}

// OpenStore reads path into memory and indexes its tensors.
func OpenStore(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("safetensors: read %s: %w", path, err)
	}

	return OpenStoreFromBytes(data)
}

// OpenStoreFromBytes indexes an in-memory payload. The store keeps data.
func OpenStoreFromBytes(data []byte) (*Store, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("safetensors: file too short (%d bytes)", len(data))
	}

	headerLen := binary.LittleEndian.Uint64(data[:8])
	if headerLen > uint64(len(data)-8) {
		return nil, fmt.Errorf("safetensors: header length %d exceeds file size %d", headerLen, len(data))
	}

	headerEnd := 8 + int(headerLen)

	var header map[string]json.RawMessage
	if err := json.Unmarshal(data[8:headerEnd], &header); err != nil {
		return nil, fmt.Errorf("safetensors: parse header: %w", err)
	}

	s := &Store{raw: data, entries: make(map[string]storeEntry, len(header))}

	for name, msg := range header {
		if name == metadataKey {
			if err := json.Unmarshal(msg, &s.metadata); err != nil {
				return nil, fmt.Errorf("safetensors: parse metadata: %w", err)
			}

			continue
		}

		var e headerEntry
		if err := json.Unmarshal(msg, &e); err != nil {
			return nil, fmt.Errorf("safetensors: decode header entry %q: %w", name, err)
		}

		entry, err := validate(name, e, headerEnd, len(data))
		if err != nil {
			return nil, err
		}

		s.entries[name] = entry
		s.names = append(s.names, name)
	}

	if len(s.entries) == 0 {
		return nil, errors.New("safetensors: no tensors found")
	}

	sort.Strings(s.names)

	return s, nil
}

func validate(name string, e headerEntry, headerEnd, size int) (storeEntry, error) {
	if !strings.EqualFold(e.DType, dtypeF32) {
		return storeEntry{}, fmt.Errorf("safetensors: tensor %q has unsupported dtype %q", name, e.DType)
	}

	if e.Offsets[0] < 0 || e.Offsets[1] < e.Offsets[0] {
		return storeEntry{}, fmt.Errorf("safetensors: tensor %q has invalid data offsets %v", name, e.Offsets)
	}

	start, end := headerEnd+e.Offsets[0], headerEnd+e.Offsets[1]
	if end > size {
		return storeEntry{}, fmt.Errorf("safetensors: tensor %q data [%d:%d] exceeds file size %d", name, start, end, size)
	}

	n, err := elementCount(e.Shape)
	if err != nil {
		return storeEntry{}, fmt.Errorf("safetensors: tensor %q: %w", name, err)
	}

	if int64(end-start) != 4*n {
		return storeEntry{}, fmt.Errorf("safetensors: tensor %q needs %d bytes but data has %d", name, 4*n, end-start)
	}

	return storeEntry{shape: slices.Clone(e.Shape), start: start, end: end}, nil
}

// Names lists the tensor names in sorted order.
func (s *Store) Names() []string {
	return slices.Clone(s.names)
}

func (s *Store) Has(name string) bool {
	_, ok := s.entries[name]
	return ok
}

// Metadata returns the string metadata block, or nil when absent.
func (s *Store) Metadata() map[string]string {
	if s.metadata == nil {
		return nil
	}

	out := make(map[string]string, len(s.metadata))
	for k, v := range s.metadata {
		out[k] = v
	}

	return out
}

// Tensor decodes the named tensor.
func (s *Store) Tensor(name string) (*Tensor, error) {
	e, ok := s.entries[name]
	if !ok {
		return nil, fmt.Errorf("safetensors: tensor %q not found (available: %s)", name, strings.Join(s.names, ", "))
	}

	raw := s.raw[e.start:e.end]
	data := make([]float32, len(raw)/4)

	for i := range data {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}

	return &Tensor{Name: name, Shape: slices.Clone(e.shape), Data: data}, nil
}

// TensorWithShape decodes the named tensor and checks its shape.
func (s *Store) TensorWithShape(name string, want []int64) (*Tensor, error) {
	t, err := s.Tensor(name)
	if err != nil {
		return nil, err
	}

	if !slices.Equal(t.Shape, want) {
		return nil, fmt.Errorf("safetensors: tensor %q shape %v does not match expected %v", name, t.Shape, want)
	}

	return t, nil
}

// Close drops the payload.
func (s *Store) Close() {
	s.raw = nil
	s.entries = nil
	s.names = nil
}

func elementCount(shape []int64) (int64, error) {
	total := int64(1)

	for _, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("negative dimension %d", d)
		}

		if d == 0 {
			return 0, nil
		}

		if total > math.MaxInt64/d {
			return 0, fmt.Errorf("shape %v overflows element count", shape)
		}

		total *= d
	}

	return total, nil
}
