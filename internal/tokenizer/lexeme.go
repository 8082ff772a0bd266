package tokenizer

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/wabradshaw/wordgenerator/internal/vocab"
)

// Lexeme tokenizes the spelling column, one rune per symbol.
type Lexeme struct {
	vocab *vocab.Vocabulary
}

// NewLexeme returns a spelling tokenizer over v.
func NewLexeme(v *vocab.Vocabulary) *Lexeme {
	return &Lexeme{vocab: v}
}

// RelevantField returns the first whitespace-delimited column. Words holding
// any character outside the vocabulary are rejected as a whole.
func (l *Lexeme) RelevantField(line string) (string, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", false
	}

	word := norm.NFC.String(fields[0])
	for _, r := range word {
		if !l.vocab.Contains(string(r)) {
			return "", false
		}
	}

	return word, true
}

// Encode maps each rune of word to its index, in order.
func (l *Lexeme) Encode(word string) ([]int, error) {
	ids := make([]int, 0, len(word))
	for _, r := range word {
		id, err := l.vocab.IndexOf(string(r))
		if err != nil {
			return nil, fmt.Errorf("encode lexeme %q: %w", word, err)
		}

		ids = append(ids, id)
	}

	return ids, nil
}

// Render concatenates letters without a separator.
func (l *Lexeme) Render(symbols []string) string {
	return strings.Join(symbols, "")
}
