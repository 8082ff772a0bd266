// Package corpus loads pronunciation dictionaries in the CMU format: a block of
// licence boilerplate followed by one "WORD  PH1 PH2 ..." entry per line.
package corpus

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strings"
)

// DefaultHeaderLines is the length of the CMU dictionary licence header.
const DefaultHeaderLines = 126

// ErrFormat reports a corpus line or file that does not follow the dictionary
// layout.
var ErrFormat = errors.New("corpus format error")

// maxLineBytes bounds a single dictionary line.
const maxLineBytes = 1 << 20

// Entry is one parsed dictionary line.
type Entry struct {
	Word          string
	Pronunciation string
}

// Load reads every line after the first headerLines lines. Trailing carriage
// returns are stripped and blank lines are dropped.
func Load(r io.Reader, headerLines int) ([]string, error) {
	if headerLines < 0 {
		return nil, fmt.Errorf("corpus: header lines must be >= 0, got %d", headerLines)
	}

	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var (
		lines   []string
		skipped int
	)

	for s.Scan() {
		if skipped < headerLines {
			skipped++
			continue
		}

		line := strings.TrimRight(s.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		lines = append(lines, line)
	}

	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("corpus: read: %w", err)
	}

	if skipped < headerLines {
		return nil, fmt.Errorf("%w: expected %d header lines, found %d", ErrFormat, headerLines, skipped)
	}

	return lines, nil
}

// LoadFile opens path and calls Load.
func LoadFile(path string, headerLines int) ([]string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("corpus: open %q: %w", path, err)
	}
	defer fh.Close()

	lines, err := Load(fh, headerLines)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return lines, nil
}

// ParseEntry splits a dictionary line into its word and pronunciation.
func ParseEntry(line string) (Entry, error) {
	line = strings.TrimSpace(line)

	cut := strings.IndexAny(line, " \t")
	if cut < 0 {
		return Entry{}, fmt.Errorf("%w: missing pronunciation column in %q", ErrFormat, line)
	}

	pron := strings.TrimSpace(line[cut:])
	if pron == "" {
		return Entry{}, fmt.Errorf("%w: missing pronunciation column in %q", ErrFormat, line)
	}

	return Entry{Word: line[:cut], Pronunciation: pron}, nil
}

// Shuffle returns a copy of lines in a seed-determined order.
func Shuffle(lines []string, seed uint64) []string {
	out := append([]string(nil), lines...)
	rng := rand.New(rand.NewPCG(seed, 0))
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})

	return out
}
