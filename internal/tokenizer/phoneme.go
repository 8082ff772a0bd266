package tokenizer

import (
	"fmt"
	"strings"

	"github.com/wabradshaw/wordgenerator/internal/vocab"
)

// Phoneme tokenizes the pronunciation columns of a dictionary line.
type Phoneme struct {
	vocab  *vocab.Vocabulary
	stress vocab.Stress
}

// NewPhoneme returns a pronunciation tokenizer over v. With StressSplit the
// stress digits are cut off their vowels and encoded as separate symbols.
func NewPhoneme(v *vocab.Vocabulary, stress vocab.Stress) *Phoneme {
	return &Phoneme{vocab: v, stress: stress}
}

// RelevantField returns everything after the first column. Lines without a
// second column are malformed and skipped.
func (p *Phoneme) RelevantField(line string) (string, bool) {
	line = strings.TrimSpace(line)

	cut := strings.IndexAny(line, " \t")
	if cut < 0 {
		return "", false
	}

	rest := strings.TrimSpace(line[cut:])
	if rest == "" {
		return "", false
	}

	return rest, true
}

// Encode maps each phoneme (and, for split stress, each digit) to its index.
func (p *Phoneme) Encode(text string) ([]int, error) {
	if p.stress == vocab.StressSplit {
		text = separateDigits(text)
	}

	tokens := strings.Fields(text)
	ids := make([]int, 0, len(tokens))

	for _, tok := range tokens {
		id, err := p.vocab.IndexOf(tok)
		if err != nil {
			return nil, fmt.Errorf("encode phonemes %q: %w", text, err)
		}

		ids = append(ids, id)
	}

	return ids, nil
}

// Render joins phonemes with single spaces, the format ipa.Map expects.
func (p *Phoneme) Render(symbols []string) string {
	return strings.Join(symbols, " ")
}

// separateDigits inserts a space before every ASCII digit.
func separateDigits(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + len(s)/2)

	for _, r := range s {
		if r >= '0' && r <= '9' {
			sb.WriteByte(' ')
		}

		sb.WriteRune(r)
	}

	return sb.String()
}
