package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/wabradshaw/wordgenerator/internal/config"
	"github.com/wabradshaw/wordgenerator/internal/ipa"
)

type fakeGenerator struct {
	words   []string
	ipa     bool
	err     error
	calls   int
	closed  bool
	lastCnt int
}

func (f *fakeGenerator) Generate(_ context.Context, count, _ int) ([]string, error) {
	f.calls++
	f.lastCnt = count

	if f.err != nil {
		return nil, f.err
	}

	return f.words, nil
}

func (f *fakeGenerator) IPACapable() bool { return f.ipa }

func (f *fakeGenerator) Close() { f.closed = true }

// useGenerator swaps newGenerator for the duration of the test.
func useGenerator(t *testing.T, g *fakeGenerator) {
	t.Helper()

	orig := newGenerator
	t.Cleanup(func() { newGenerator = orig })

	newGenerator = func(config.Config) (wordGenerator, error) { return g, nil }
}

func TestRunGenerate(t *testing.T) {
	g := &fakeGenerator{words: []string{"BRANTLE", "SHOVIN"}}
	useGenerator(t, g)

	var out bytes.Buffer
	if err := runGenerate(context.Background(), config.DefaultConfig(), false, &out); err != nil {
		t.Fatalf("runGenerate: %v", err)
	}

	if out.String() != "BRANTLE\nSHOVIN\n" {
		t.Fatalf("unexpected output: %q", out.String())
	}

	if !g.closed || g.lastCnt != 30 {
		t.Fatalf("generator not used as expected: %+v", g)
	}
}

func TestRunGenerate_IPA(t *testing.T) {
	g := &fakeGenerator{words: []string{"K AE 1 T", "HH AW 1 S"}, ipa: true}
	useGenerator(t, g)

	var out bytes.Buffer
	if err := runGenerate(context.Background(), config.DefaultConfig(), true, &out); err != nil {
		t.Fatalf("runGenerate: %v", err)
	}

	if out.String() != "K AE 1 T\tˈkæt\nHH AW 1 S\tˈhaʊs\n" {
		t.Fatalf("unexpected output: %q", out.String())
	}
}

func TestRunGenerate_IPAUnmappedSymbol(t *testing.T) {
	g := &fakeGenerator{words: []string{"^ K AE 1 T"}, ipa: true}
	useGenerator(t, g)

	var out bytes.Buffer

	err := runGenerate(context.Background(), config.DefaultConfig(), true, &out)
	if !errors.Is(err, ipa.ErrUnmappedSymbol) {
		t.Fatalf("runGenerate error = %v; want ErrUnmappedSymbol", err)
	}
}

func TestRunGenerate_Errors(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name    string
		gen     *fakeGenerator
		ipa     bool
		count   int
		wantErr error
	}{
		{"ipa without phonemes", &fakeGenerator{}, true, 3, nil},
		{"generator failure", &fakeGenerator{err: boom}, false, 3, boom},
		{"zero count", &fakeGenerator{}, false, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useGenerator(t, tt.gen)

			cfg := config.DefaultConfig()
			cfg.Sampling.Count = tt.count

			err := runGenerate(context.Background(), cfg, tt.ipa, &bytes.Buffer{})
			if err == nil {
				t.Fatal("expected error")
			}

			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("want %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestGenerateCmd_UsesConfiguredCount(t *testing.T) {
	g := &fakeGenerator{words: []string{"ZORP"}}
	useGenerator(t, g)

	out, err := executeRoot(t, nil, "--sampling-count", "7", "generate")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if out != "ZORP\n" || g.lastCnt != 7 {
		t.Fatalf("out=%q count=%d", out, g.lastCnt)
	}
}

func TestGenerateCmd_MissingModel(t *testing.T) {
	_, err := executeRoot(t, nil, "--paths-model-manifest", "/nonexistent/model.json", "--ort-lib", "/nonexistent/libonnxruntime.so", "generate")
	if err == nil {
		t.Fatal("expected error for missing model")
	}
}
