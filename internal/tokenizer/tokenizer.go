// Package tokenizer turns pronunciation-dictionary lines into vocabulary
// indices. Two variants exist: Lexeme reads the spelling column one character
// at a time and Phoneme reads the pronunciation columns one phoneme at a time.
package tokenizer

import (
	"fmt"

	"github.com/wabradshaw/wordgenerator/internal/vocab"
)

// Tokenizer extracts and encodes the part of a corpus line a model learns.
type Tokenizer interface {
	// RelevantField returns the text to encode, or false when the line must
	// be skipped.
	RelevantField(line string) (string, bool)
	// Encode maps text to vocabulary indices.
	Encode(text string) ([]int, error)
	// Render joins decoded symbols back into display text.
	Render(symbols []string) string
}

// New returns the tokenizer matching kind, bound to v.
func New(v *vocab.Vocabulary, kind vocab.Kind) (Tokenizer, error) {
	if v == nil {
		return nil, fmt.Errorf("tokenizer: vocabulary must not be nil")
	}

	switch kind.Mode() {
	case vocab.ModeLexemes:
		return NewLexeme(v), nil
	case vocab.ModePhonemes:
		return NewPhoneme(v, kind.Stress()), nil
	default:
		return nil, fmt.Errorf("tokenizer: unsupported kind %v", kind)
	}
}

// Decode maps indices back to their symbols.
func Decode(v *vocab.Vocabulary, ids []int) ([]string, error) {
	out := make([]string, len(ids))
	for i, id := range ids {
		s, err := v.SymbolAt(id)
		if err != nil {
			return nil, err
		}

		out[i] = s
	}

	return out, nil
}
