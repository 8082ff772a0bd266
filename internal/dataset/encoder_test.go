package dataset

import (
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/wabradshaw/wordgenerator/internal/runtime/tensor"
	"github.com/wabradshaw/wordgenerator/internal/safetensors"
	"github.com/wabradshaw/wordgenerator/internal/tokenizer"
	"github.com/wabradshaw/wordgenerator/internal/vocab"
)

// abVocab is {START, END, A, B}.
func abVocab(t *testing.T) *vocab.Vocabulary {
	t.Helper()

	v, err := vocab.New([]string{"A", "B"})
	if err != nil {
		t.Fatalf("vocab.New: %v", err)
	}

	return v
}

func newEncoder(t *testing.T, v *vocab.Vocabulary, tok tokenizer.Tokenizer, maxLength, workers int) *Encoder {
	t.Helper()

	enc, err := NewEncoder(tok, v, Options{MaxLength: maxLength, Workers: workers})
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}

	return enc
}

// column returns the one-hot index set at step of row, or -1.
func column(t *testing.T, x *tensor.Tensor, row, step int) int {
	t.Helper()

	shape := x.Shape()
	hot := -1

	for c := range shape[1] {
		if x.At(int64(row), c, int64(step)) == 1 {
			if hot != -1 {
				t.Fatalf("row %d step %d has more than one hot entry", row, step)
			}

			hot = int(c)
		}
	}

	return hot
}

func maskRow(t *testing.T, m *tensor.Tensor, row int) []float32 {
	t.Helper()

	r, err := m.Row(row)
	if err != nil {
		t.Fatalf("mask row %d: %v", row, err)
	}

	return r
}

func TestBuildBatch_FullLengthExample(t *testing.T) {
	v := abVocab(t)
	enc := newEncoder(t, v, tokenizer.NewLexeme(v), 2, 1)

	b, err := enc.BuildBatch([]string{"AB"})
	if err != nil {
		t.Fatalf("BuildBatch: %v", err)
	}

	if b.Size() != 1 || b.Steps() != 3 || b.VocabSize() != 4 {
		t.Fatalf("size/steps/vocab = %d/%d/%d; want 1/3/4", b.Size(), b.Steps(), b.VocabSize())
	}

	if got := []int{column(t, b.Input, 0, 0), column(t, b.Input, 0, 1), column(t, b.Input, 0, 2)}; !reflect.DeepEqual(got, []int{0, 2, 3}) {
		t.Errorf("input = %v; want [START A B] = [0 2 3]", got)
	}

	if got := []int{column(t, b.Label, 0, 0), column(t, b.Label, 0, 1), column(t, b.Label, 0, 2)}; !reflect.DeepEqual(got, []int{2, 3, 1}) {
		t.Errorf("label = %v; want [A B END] = [2 3 1]", got)
	}

	if got := maskRow(t, b.InputMask, 0); !reflect.DeepEqual(got, []float32{1, 1, 1}) {
		t.Errorf("input mask = %v; want [1 1 1]", got)
	}

	if got := maskRow(t, b.LabelMask, 0); !reflect.DeepEqual(got, []float32{1, 1, 0}) {
		t.Errorf("label mask = %v; want [1 1 0]", got)
	}
}

func TestBuildBatch_ShortWordPadding(t *testing.T) {
	v := abVocab(t)
	enc := newEncoder(t, v, tokenizer.NewLexeme(v), 4, 1)

	b, err := enc.BuildBatch([]string{"A"})
	if err != nil {
		t.Fatalf("BuildBatch: %v", err)
	}

	var input, label []int
	for step := range 5 {
		input = append(input, column(t, b.Input, 0, step))
		label = append(label, column(t, b.Label, 0, step))
	}

	if want := []int{0, 2, 1, 1, 1}; !reflect.DeepEqual(input, want) {
		t.Errorf("input = %v; want %v", input, want)
	}

	if want := []int{2, 1, 1, 1, 1}; !reflect.DeepEqual(label, want) {
		t.Errorf("label = %v; want %v", label, want)
	}

	// START, A and the terminating END are live; the rest is padding.
	if got := maskRow(t, b.InputMask, 0); !reflect.DeepEqual(got, []float32{1, 1, 1, 0, 0}) {
		t.Errorf("input mask = %v", got)
	}

	if got := maskRow(t, b.LabelMask, 0); !reflect.DeepEqual(got, []float32{1, 1, 0, 0, 0}) {
		t.Errorf("label mask = %v", got)
	}
}

func TestBuildBatch_MaskSums(t *testing.T) {
	v, err := vocab.ForKind(vocab.KindLetters)
	if err != nil {
		t.Fatal(err)
	}

	const m = 6

	lines := []string{"A", "CAT", "ZEBRA", "GIRAFFE", "OX", "SIXSIX", "BAD1", "", "HIPPO"}
	enc := newEncoder(t, v, tokenizer.NewLexeme(v), m, 3)

	b, err := enc.BuildBatch(lines)
	if err != nil {
		t.Fatalf("BuildBatch: %v", err)
	}

	// GIRAFFE is too long, BAD1 and the blank line are rejected.
	if b.Size() != 6 || b.Dropped != 3 {
		t.Fatalf("size/dropped = %d/%d; want 6/3", b.Size(), b.Dropped)
	}

	for row := range b.Size() {
		l := b.Lengths[row]

		// Words shorter than M also carry a live END step.
		extra := 0
		if l < m {
			extra = 1
		}

		if got := sum(maskRow(t, b.InputMask, row)); got != l+1+extra {
			t.Errorf("row %d (L=%d): sum(input_mask) = %d; want %d", row, l, got, l+1+extra)
		}

		if got := sum(maskRow(t, b.LabelMask, row)); got != l+extra {
			t.Errorf("row %d (L=%d): sum(label_mask) = %d; want %d", row, l, got, l+extra)
		}

		if last := maskRow(t, b.LabelMask, row)[m]; last != 0 {
			t.Errorf("row %d: label_mask[M] = %v; want 0", row, last)
		}

		if column(t, b.Label, row, m) != vocab.EndIndex {
			t.Errorf("row %d: label[M] is not END", row)
		}
	}

	if want := []int{0, 1, 2, 4, 5, 8}; !reflect.DeepEqual(b.Lines, want) {
		t.Errorf("Lines = %v; want %v", b.Lines, want)
	}
}

func sum(xs []float32) int {
	var s float32
	for _, x := range xs {
		s += x
	}

	return int(s)
}

func TestTokenize_PreservesLineIdentity(t *testing.T) {
	v, err := vocab.ForKind(vocab.KindPhonemesSplitStress)
	if err != nil {
		t.Fatal(err)
	}

	tok, err := tokenizer.New(v, vocab.KindPhonemesSplitStress)
	if err != nil {
		t.Fatal(err)
	}

	lines := []string{
		"CAT  K AE1 T",
		"NOPRON",
		"SUPERCALIFRAGILISTIC  S UW2 P ER0 K AE2 L AH0 F R AE1 JH AH0 L IH2 S T IH0 K",
		"DOG  D AO1 G",
	}

	enc := newEncoder(t, v, tok, 14, 4)

	seqs, err := enc.Tokenize(lines)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}

	wantReasons := []DropReason{Accepted, Rejected, TooLong, Accepted}
	for i, s := range seqs {
		if s.Line != i {
			t.Errorf("seqs[%d].Line = %d", i, s.Line)
		}

		if s.Reason != wantReasons[i] {
			t.Errorf("seqs[%d].Reason = %v; want %v", i, s.Reason, wantReasons[i])
		}
	}

	// K AE 1 T
	if len(seqs[0].Tokens) != 4 {
		t.Errorf("CAT encoded to %d tokens; want 4", len(seqs[0].Tokens))
	}
}

func TestTokenize_UnknownSymbolIsFatal(t *testing.T) {
	v, err := vocab.ForKind(vocab.KindPhonemesFusedStress)
	if err != nil {
		t.Fatal(err)
	}

	enc := newEncoder(t, v, tokenizer.NewPhoneme(v, vocab.StressFused), 14, 2)

	_, err = enc.Tokenize([]string{"CAT  K AE1 T", "BAD  K1 AE T"})
	if !errors.Is(err, vocab.ErrUnknownSymbol) {
		t.Fatalf("Tokenize error = %v; want ErrUnknownSymbol", err)
	}
}

func TestNewEncoder_Validation(t *testing.T) {
	v := abVocab(t)
	tok := tokenizer.NewLexeme(v)

	if _, err := NewEncoder(tok, v, Options{MaxLength: 0}); err == nil {
		t.Error("expected error for MaxLength 0")
	}

	if _, err := NewEncoder(tok, v, Options{MaxLength: 2, Workers: -1}); err == nil {
		t.Error("expected error for negative workers")
	}

	if _, err := NewEncoder(nil, v, Options{MaxLength: 2}); err == nil {
		t.Error("expected error for nil tokenizer")
	}
}

func TestWindow(t *testing.T) {
	lines := []string{"a", "b", "c", "d", "e"}

	tests := []struct {
		number, size int
		want         []string
	}{
		{0, 2, []string{"a", "b"}},
		{1, 2, []string{"c", "d"}},
		{2, 2, []string{"e"}},
		{3, 2, nil},
		{-1, 2, nil},
		{0, 0, nil},
	}

	for _, tt := range tests {
		if got := Window(lines, tt.number, tt.size); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Window(%d, %d) = %v; want %v", tt.number, tt.size, got, tt.want)
		}
	}

	if got := Batches(lines, 2); got != 3 {
		t.Errorf("Batches = %d; want 3", got)
	}
}

func TestWriteReadBatch(t *testing.T) {
	v := abVocab(t)
	enc := newEncoder(t, v, tokenizer.NewLexeme(v), 3, 1)

	b, err := enc.BuildBatch([]string{"AB", "X", "BAB", "A"})
	if err != nil {
		t.Fatalf("BuildBatch: %v", err)
	}

	path := filepath.Join(t.TempDir(), "batch-00000.safetensors")
	if err := WriteBatch(path, b, map[string]string{"token_set": "custom"}); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}

	got, meta, err := ReadBatch(path)
	if err != nil {
		t.Fatalf("ReadBatch: %v", err)
	}

	if !reflect.DeepEqual(got.Input.RawData(), b.Input.RawData()) || !reflect.DeepEqual(got.LabelMask.RawData(), b.LabelMask.RawData()) {
		t.Fatal("round-tripped tensors differ")
	}

	if !reflect.DeepEqual(got.Lengths, []int{2, 3, 1}) || got.Dropped != 1 {
		t.Fatalf("lengths/dropped = %v/%d; want [2 3 1]/1", got.Lengths, got.Dropped)
	}

	if meta["token_set"] != "custom" || meta["steps"] != "4" || meta["vocab_size"] != "4" {
		t.Fatalf("metadata = %v", meta)
	}
}

func TestReadBatch_RejectsInconsistentFiles(t *testing.T) {
	cube := safetensors.Tensor{Shape: []int64{1, 2, 3}, Data: make([]float32, 6)}
	mask := safetensors.Tensor{Shape: []int64{1, 3}, Data: make([]float32, 3)}
	lengths := safetensors.Tensor{Name: TensorLengths, Shape: []int64{1}, Data: []float32{2}}

	named := func(name string, st safetensors.Tensor) safetensors.Tensor {
		st.Name = name
		return st
	}

	tests := []struct {
		name    string
		tensors []safetensors.Tensor
		wantErr string
	}{
		{
			name: "missing lengths",
			tensors: []safetensors.Tensor{
				named(TensorInput, cube), named(TensorLabel, cube),
				named(TensorInputMask, mask), named(TensorLabelMask, mask),
			},
			wantErr: "missing lengths",
		},
		{
			name: "mask with wrong step count",
			tensors: []safetensors.Tensor{
				named(TensorInput, cube), named(TensorLabel, cube),
				named(TensorInputMask, mask),
				{Name: TensorLabelMask, Shape: []int64{1, 2}, Data: make([]float32, 2)},
				lengths,
			},
			wantErr: "label_mask",
		},
		{
			name: "flat input",
			tensors: []safetensors.Tensor{
				{Name: TensorInput, Shape: []int64{6}, Data: make([]float32, 6)},
				named(TensorLabel, cube),
				named(TensorInputMask, mask), named(TensorLabelMask, mask),
				lengths,
			},
			wantErr: "rank 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "batch.safetensors")
			if err := safetensors.WriteFile(path, tt.tensors, nil); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}

			_, _, err := ReadBatch(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("ReadBatch err = %v; want it to mention %q", err, tt.wantErr)
			}
		})
	}
}
