// Package vocab defines the symbol tables shared by the tokenizers, the batch
// encoder and the sampler. A Vocabulary is immutable once built and can be
// shared between goroutines without locking.
package vocab

import (
	"errors"
	"fmt"
)

// Reserved symbols. START is always index 0 and END is always index 1.
const (
	Start = "^"
	End   = "$"

	StartIndex = 0
	EndIndex   = 1
)

var (
	// ErrUnknownSymbol is returned when a symbol is not part of the vocabulary.
	ErrUnknownSymbol = errors.New("unknown symbol")
	// ErrIndexOutOfRange is returned when an index does not address a symbol.
	ErrIndexOutOfRange = errors.New("index out of range")
)

// Vocabulary is an ordered, bijective mapping between symbols and dense indices.
type Vocabulary struct {
	symbols []string
	index   map[string]int
}

// New builds a vocabulary from symbols, prepending the reserved START and END
// entries. Duplicate symbols, empty symbols and symbols that collide with the
// reserved entries are rejected.
func New(symbols []string) (*Vocabulary, error) {
	all := make([]string, 0, len(symbols)+2)
	all = append(all, Start, End)
	all = append(all, symbols...)

	index := make(map[string]int, len(all))
	for i, s := range all {
		if s == "" {
			return nil, fmt.Errorf("vocab: empty symbol at position %d", i)
		}

		if prev, exists := index[s]; exists {
			return nil, fmt.Errorf("vocab: duplicate symbol %q at positions %d and %d", s, prev, i)
		}

		index[s] = i
	}

	return &Vocabulary{symbols: all, index: index}, nil
}

// IndexOf returns the index of symbol.
func (v *Vocabulary) IndexOf(symbol string) (int, error) {
	i, ok := v.index[symbol]
	if !ok {
		return 0, fmt.Errorf("%w %q", ErrUnknownSymbol, symbol)
	}

	return i, nil
}

// SymbolAt returns the symbol stored at index i.
func (v *Vocabulary) SymbolAt(i int) (string, error) {
	if i < 0 || i >= len(v.symbols) {
		return "", fmt.Errorf("%w: %d (size %d)", ErrIndexOutOfRange, i, len(v.symbols))
	}

	return v.symbols[i], nil
}

// Contains reports whether symbol is part of the vocabulary.
func (v *Vocabulary) Contains(symbol string) bool {
	_, ok := v.index[symbol]
	return ok
}

// Size returns the number of symbols, including START and END.
func (v *Vocabulary) Size() int {
	return len(v.symbols)
}

// Symbols returns a copy of the ordered symbol list.
func (v *Vocabulary) Symbols() []string {
	return append([]string(nil), v.symbols...)
}
