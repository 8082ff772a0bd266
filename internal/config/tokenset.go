package config

import (
	"fmt"
	"strings"
)

const (
	TokenSetLetters       = "letters"
	TokenSetLettersCommon = "letters-common"
	TokenSetPhonemesSplit = "phonemes-split"
	TokenSetPhonemesFused = "phonemes-fused"
)

// NormalizeTokenSet canonicalizes a configured token set name. The short
// forms "phonemes" and "lexemes" pick the split-stress and common-punctuation
// sets.
func NormalizeTokenSet(raw string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "" {
		name = TokenSetLettersCommon
	}

	switch name {
	case TokenSetLetters, TokenSetLettersCommon, TokenSetPhonemesSplit, TokenSetPhonemesFused:
		return name, nil
	case "lexemes":
		return TokenSetLettersCommon, nil
	case "phonemes":
		return TokenSetPhonemesSplit, nil
	default:
		return "", fmt.Errorf(
			"invalid token set %q (expected %s|%s|%s|%s)",
			raw,
			TokenSetLetters,
			TokenSetLettersCommon,
			TokenSetPhonemesSplit,
			TokenSetPhonemesFused,
		)
	}
}
