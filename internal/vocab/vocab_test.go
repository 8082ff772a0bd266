package vocab

import (
	"errors"
	"testing"
)

func TestNew_ReservesStartAndEnd(t *testing.T) {
	v, err := New([]string{"A", "B"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if v.Size() != 4 {
		t.Fatalf("Size() = %d; want 4", v.Size())
	}

	for i, want := range []string{Start, End, "A", "B"} {
		got, err := v.SymbolAt(i)
		if err != nil {
			t.Fatalf("SymbolAt(%d): %v", i, err)
		}

		if got != want {
			t.Errorf("SymbolAt(%d) = %q; want %q", i, got, want)
		}

		idx, err := v.IndexOf(want)
		if err != nil {
			t.Fatalf("IndexOf(%q): %v", want, err)
		}

		if idx != i {
			t.Errorf("IndexOf(%q) = %d; want %d", want, idx, i)
		}
	}
}

func TestNew_RejectsInvalidSymbols(t *testing.T) {
	tests := []struct {
		name    string
		symbols []string
	}{
		{"duplicate", []string{"A", "A"}},
		{"collides with start", []string{Start}},
		{"collides with end", []string{"B", End}},
		{"empty symbol", []string{"A", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.symbols); err == nil {
				t.Fatalf("New(%v) succeeded; want error", tt.symbols)
			}
		})
	}
}

func TestLookupErrors(t *testing.T) {
	v, err := New([]string{"A"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := v.IndexOf("Z"); !errors.Is(err, ErrUnknownSymbol) {
		t.Errorf("IndexOf(Z) error = %v; want ErrUnknownSymbol", err)
	}

	for _, i := range []int{-1, 3, 100} {
		if _, err := v.SymbolAt(i); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("SymbolAt(%d) error = %v; want ErrIndexOutOfRange", i, err)
		}
	}
}

func TestSymbols_ReturnsCopy(t *testing.T) {
	v, _ := New([]string{"A"})

	s := v.Symbols()
	s[2] = "mutated"

	got, _ := v.SymbolAt(2)
	if got != "A" {
		t.Fatalf("vocabulary mutated through Symbols(): got %q", got)
	}
}

func TestForKind_Sizes(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindLetters, 28},
		{KindLettersWithCommon, 30},
		{KindPhonemesSplitStress, 44},
		{KindPhonemesFusedStress, 86},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			v, err := ForKind(tt.kind)
			if err != nil {
				t.Fatalf("ForKind: %v", err)
			}

			if v.Size() != tt.want {
				t.Errorf("Size() = %d; want %d", v.Size(), tt.want)
			}
		})
	}
}

func TestForKind_FusedStressCarriesDigitsOnVowelsOnly(t *testing.T) {
	v, err := ForKind(KindPhonemesFusedStress)
	if err != nil {
		t.Fatalf("ForKind: %v", err)
	}

	for _, s := range []string{"AH0", "OW1", "IY2", "AA", "K", "ZH"} {
		if !v.Contains(s) {
			t.Errorf("expected %q in fused vocabulary", s)
		}
	}

	for _, s := range []string{"K1", "0", "1", "T0"} {
		if v.Contains(s) {
			t.Errorf("did not expect %q in fused vocabulary", s)
		}
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		input   string
		want    Kind
		wantErr bool
	}{
		{"letters", KindLetters, false},
		{"LETTERS-COMMON", KindLettersWithCommon, false},
		{"  phonemes-split ", KindPhonemesSplitStress, false},
		{"phonemes-fused", KindPhonemesFusedStress, false},
		{"ipa", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseKind(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseKind(%q) = %v, nil; want error", tt.input, got)
				}

				return
			}

			if err != nil {
				t.Fatalf("ParseKind(%q): %v", tt.input, err)
			}

			if got != tt.want {
				t.Errorf("ParseKind(%q) = %v; want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestKind_ModeAndStress(t *testing.T) {
	if KindLetters.Mode() != ModeLexemes || KindLetters.Stress() != StressNone {
		t.Error("letters should be lexeme mode without stress")
	}

	if KindPhonemesSplitStress.Mode() != ModePhonemes || KindPhonemesSplitStress.Stress() != StressSplit {
		t.Error("phonemes-split should be phoneme mode with split stress")
	}

	if KindPhonemesFusedStress.Mode() != ModePhonemes || KindPhonemesFusedStress.Stress() != StressFused {
		t.Error("phonemes-fused should be phoneme mode with fused stress")
	}
}
