// Package ipa renders split-stress ARPAbet strings as IPA.
//
// Stress digits are moved in front of the syllable they mark and unstressed
// vowels are reduced to schwa, e.g. "F R OW 1 Z AH 0 N" becomes "fˈɹoʊzən".
package ipa

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wabradshaw/wordgenerator/internal/vocab"
)

// Schwa is the neutral vowel substituted for unstressed vowels.
const Schwa = "ə"

// ErrUnmappedSymbol is returned for a symbol missing from the glyph table.
var ErrUnmappedSymbol = errors.New("unmapped phonetic symbol")

var glyphs = map[string]string{
	"":   "",
	"AA": "ɑ",
	"AE": "æ",
	"AH": "ʌ",
	"AO": "ɔ",
	"AW": "aʊ",
	"AY": "aɪ",
	"B":  "b",
	"CH": "t͡ʃ",
	"D":  "d",
	"DH": "ð",
	"EH": "ɛ",
	"ER": "ɝ",
	"EY": "eɪ",
	"F":  "f",
	"G":  "ɡ",
	"HH": "h",
	"IH": "ɪ",
	"IY": "i",
	"JH": "d͡ʒ",
	"K":  "k",
	"L":  "l",
	"M":  "m",
	"N":  "n",
	"NG": "ŋ",
	"OW": "oʊ",
	"OY": "ɔɪ",
	"P":  "p",
	"R":  "ɹ",
	"S":  "s",
	"SH": "ʃ",
	"T":  "t",
	"TH": "θ",
	"UH": "ʊ",
	"UW": "u",
	"V":  "v",
	"W":  "w",
	"Y":  "j",
	"Z":  "z",
	"ZH": "ʒ",
	"0":  "",
	"1":  "ˈ",
	"2":  "ˌ",

	Schwa: Schwa,
}

// irreplaceable entries are never reduced to schwa by a following "0".
var irreplaceable = map[string]bool{"IY": true, "0": true, "1": true, "2": true}

// Map converts a space separated, split-stress ARPAbet string into IPA.
func Map(arpabet string) (string, error) {
	symbols := strings.Split(arpabet, " ")

	// Every raw symbol contributes exactly one entry to out, so out[k] and
	// symbols[k] describe the same number of positions at all times.
	out := make([]string, 0, len(symbols))

	for i, symbol := range symbols {
		switch {
		case symbol == "1" || symbol == "2":
			out = insertAt(out, stressTarget(out, i), symbol)
		case symbol == "0" && i > 0:
			last := len(out) - 1
			if !irreplaceable[out[last]] {
				out[last] = Schwa
			}

			out = append(out, symbol)
		default:
			out = append(out, symbol)
		}
	}

	var sb strings.Builder
	for _, symbol := range out {
		glyph, ok := glyphs[symbol]
		if !ok {
			return "", fmt.Errorf("%w %q in %q", ErrUnmappedSymbol, symbol, arpabet)
		}

		sb.WriteString(glyph)
	}

	return sb.String(), nil
}

// stressTarget walks back from the symbol before position i over contiguous
// vowels. It stops at the nearest non-vowel, not at the start of the onset
// cluster, so "F R OW 1" places the mark between F and R.
func stressTarget(out []string, i int) int {
	t := i - 1
	for t > 0 && vocab.IsVowel(out[t]) {
		t--
	}

	return max(t, 0)
}

func insertAt(list []string, pos int, symbol string) []string {
	list = append(list, "")
	copy(list[pos+1:], list[pos:])
	list[pos] = symbol

	return list
}
