package vocab

import (
	"fmt"
	"strings"
)

// Kind selects one of the supported token sets.
type Kind int

const (
	KindLetters Kind = iota + 1
	KindLettersWithCommon
	KindPhonemesSplitStress
	KindPhonemesFusedStress
)

// Mode says whether a token set spells words or pronounces them.
type Mode int

const (
	ModeLexemes Mode = iota + 1
	ModePhonemes
)

// Stress is the stress-marking convention of a phoneme token set.
type Stress int

const (
	// StressNone applies to spelling alphabets.
	StressNone Stress = iota
	// StressSplit keeps the stress digits 0/1/2 as separate symbols.
	StressSplit
	// StressFused combines each vowel with its stress digit.
	StressFused
)

var kindNames = map[Kind]string{
	KindLetters:             "letters",
	KindLettersWithCommon:   "letters-common",
	KindPhonemesSplitStress: "phonemes-split",
	KindPhonemesFusedStress: "phonemes-fused",
}

// Kinds returns every supported kind in declaration order.
func Kinds() []Kind {
	return []Kind{KindLetters, KindLettersWithCommon, KindPhonemesSplitStress, KindPhonemesFusedStress}
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind converts a case-insensitive kind name into a Kind.
func ParseKind(raw string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	for _, k := range Kinds() {
		if kindNames[k] == name {
			return k, nil
		}
	}

	return 0, fmt.Errorf(
		"invalid token set %q (expected %s|%s|%s|%s)",
		raw,
		KindLetters, KindLettersWithCommon, KindPhonemesSplitStress, KindPhonemesFusedStress,
	)
}

// Mode reports whether the kind encodes spellings or pronunciations.
func (k Kind) Mode() Mode {
	switch k {
	case KindPhonemesSplitStress, KindPhonemesFusedStress:
		return ModePhonemes
	default:
		return ModeLexemes
	}
}

// Stress reports the stress convention of the kind.
func (k Kind) Stress() Stress {
	switch k {
	case KindPhonemesSplitStress:
		return StressSplit
	case KindPhonemesFusedStress:
		return StressFused
	default:
		return StressNone
	}
}

// ForKind builds the vocabulary for a token set.
func ForKind(k Kind) (*Vocabulary, error) {
	switch k {
	case KindLetters:
		return New(letters())
	case KindLettersWithCommon:
		return New(append(letters(), "-", "'"))
	case KindPhonemesSplitStress:
		return New(splitStressPhonemes())
	case KindPhonemesFusedStress:
		return New(fusedStressPhonemes())
	default:
		return nil, fmt.Errorf("vocab: unsupported kind %v", k)
	}
}
