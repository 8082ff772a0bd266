package vocab

// arpabetPhonemes is the ARPAbet inventory in alphabetical order.
var arpabetPhonemes = []string{
	"AA", "AE", "AH", "AO", "AW", "AY", "B", "CH", "D", "DH", "EH", "ER", "EY",
	"F", "G", "HH", "IH", "IY", "JH", "K", "L", "M", "N", "NG", "OW", "OY", "P",
	"R", "S", "SH", "T", "TH", "UH", "UW", "V", "W", "Y", "Z", "ZH",
}

// StressDigits are the ARPAbet stress markers: unstressed, primary, secondary.
var StressDigits = []string{"0", "1", "2"}

var arpabetVowels = map[string]bool{
	"AA": true, "AE": true, "AH": true, "AO": true, "AW": true, "AY": true,
	"EH": true, "ER": true, "EY": true, "IH": true, "IY": true, "OW": true,
	"OY": true, "UH": true, "UW": true,
}

// IsVowel reports whether an ARPAbet code (without stress digit) is a vowel.
func IsVowel(phoneme string) bool {
	return arpabetVowels[phoneme]
}

func letters() []string {
	out := make([]string, 0, 26)
	for r := 'A'; r <= 'Z'; r++ {
		out = append(out, string(r))
	}

	return out
}

func splitStressPhonemes() []string {
	out := append([]string(nil), arpabetPhonemes...)
	return append(out, StressDigits...)
}

// fusedStressPhonemes lists every phoneme, followed directly by the stressed
// variants when it is a vowel. The bare vowel stays in the set.
func fusedStressPhonemes() []string {
	out := make([]string, 0, len(arpabetPhonemes)+3*len(arpabetVowels))
	for _, p := range arpabetPhonemes {
		out = append(out, p)
		if IsVowel(p) {
			for _, d := range StressDigits {
				out = append(out, p+d)
			}
		}
	}

	return out
}
