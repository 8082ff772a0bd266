package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/wabradshaw/wordgenerator/internal/config"
	"github.com/wabradshaw/wordgenerator/internal/ipa"
	"github.com/wabradshaw/wordgenerator/internal/testutil"
)

func TestMapPronunciation(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"K AE1 T", "ˈkæt"},
		{"K AE 1 T", "ˈkæt"},
		{"F  R OW1 Z AH0 N", "fˈɹoʊzən"},
		{"D AO1 G", "ˈdɔɡ"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := mapPronunciation(tt.in)
			if err != nil {
				t.Fatalf("mapPronunciation(%q): %v", tt.in, err)
			}

			if got != tt.want {
				t.Errorf("mapPronunciation(%q) = %q; want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestMapPronunciation_Unmapped(t *testing.T) {
	if _, err := mapPronunciation("K Q T"); !errors.Is(err, ipa.ErrUnmappedSymbol) {
		t.Fatalf("want ErrUnmappedSymbol, got %v", err)
	}
}

func TestIPACmd_Args(t *testing.T) {
	out, err := executeRoot(t, nil, "ipa", "K AE1 T", "D AO1 G")
	if err != nil {
		t.Fatalf("ipa: %v", err)
	}

	if out != "ˈkæt\nˈdɔɡ\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestIPACmd_Stdin(t *testing.T) {
	out, err := executeRoot(t, strings.NewReader("K AE1 T\n\nHH AW1 S\n"), "ipa")
	if err != nil {
		t.Fatalf("ipa: %v", err)
	}

	if out != "ˈkæt\nˈhaʊs\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestIPACmd_Corpus(t *testing.T) {
	path := testutil.WriteCorpus(t, 1, "CAT  K AE1 T", "NOPRON", "DOG  D AO1 G")

	out, err := executeRoot(t, nil, "--paths-corpus", path, "--corpus-header-lines", "1", "ipa", "--corpus")
	if err != nil {
		t.Fatalf("ipa --corpus: %v", err)
	}

	if out != "CAT\tˈkæt\nDOG\tˈdɔɡ\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestMapCorpus_WarnsAboutSkippedEntries(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Paths.Corpus = testutil.WriteCorpus(t, 1, "CAT  K AE1 T", "NOPRON", "ODD  K ^ T", "DOG  D AO1 G")
	cfg.Corpus.HeaderLines = 1

	var out, logs bytes.Buffer

	log := slog.New(slog.NewJSONHandler(&logs, nil))
	if err := mapCorpus(cfg, &out, log); err != nil {
		t.Fatalf("mapCorpus: %v", err)
	}

	if out.String() != "CAT\tˈkæt\nDOG\tˈdɔɡ\n" {
		t.Fatalf("unexpected output: %q", out.String())
	}

	var rec struct {
		Level     string `json:"level"`
		Msg       string `json:"msg"`
		Malformed int    `json:"malformed"`
		Unmapped  int    `json:"unmapped"`
	}

	if err := json.Unmarshal(logs.Bytes(), &rec); err != nil {
		t.Fatalf("decode log %q: %v", logs.String(), err)
	}

	if rec.Level != "WARN" || rec.Malformed != 1 || rec.Unmapped != 1 {
		t.Fatalf("warning = %+v; want WARN with malformed=1 unmapped=1", rec)
	}
}

func TestMapCorpus_QuietWhenEverythingMaps(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Paths.Corpus = testutil.WriteCorpus(t, 0, "CAT  K AE1 T")
	cfg.Corpus.HeaderLines = 0

	var out, logs bytes.Buffer
	if err := mapCorpus(cfg, &out, slog.New(slog.NewJSONHandler(&logs, nil))); err != nil {
		t.Fatalf("mapCorpus: %v", err)
	}

	if logs.Len() != 0 {
		t.Fatalf("unexpected log output: %s", logs.String())
	}
}
