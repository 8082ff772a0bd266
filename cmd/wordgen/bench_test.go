package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wabradshaw/wordgenerator/internal/bench"
)

func TestRunBenchCmd_EncodeJSON(t *testing.T) {
	cfg := fixtureConfig(t)

	var out bytes.Buffer

	err := runBenchCmd(context.Background(), cfg, benchOptions{
		Workload: workloadEncode,
		Runs:     2,
		Batches:  10,
		Format:   "json",
	}, &out)
	if err != nil {
		t.Fatalf("runBenchCmd: %v", err)
	}

	var report struct {
		Runs []struct {
			Items int `json:"items"`
		} `json:"runs"`
	}
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out.String())
	}

	// Batches is clamped to the three windows the fixture corpus has.
	if len(report.Runs) != 2 || report.Runs[0].Items != 8 {
		t.Fatalf("unexpected report: %s", out.String())
	}
}

func TestRunBenchCmd_GenerateTable(t *testing.T) {
	g := &fakeGenerator{words: []string{"A", "B", "C"}}
	useGenerator(t, g)

	var out bytes.Buffer

	err := runBenchCmd(context.Background(), fixtureConfig(t), benchOptions{
		Workload:   workloadGenerate,
		Runs:       3,
		Format:     "table",
		CPUProfile: filepath.Join(t.TempDir(), "cpu.out"),
	}, &out)
	if err != nil {
		t.Fatalf("runBenchCmd: %v", err)
	}

	if g.calls != 3 || !g.closed {
		t.Fatalf("generator calls=%d closed=%v", g.calls, g.closed)
	}

	if !strings.Contains(out.String(), "(mean)") {
		t.Fatalf("table output missing summary:\n%s", out.String())
	}
}

func TestRunBenchCmd_ThresholdGate(t *testing.T) {
	useGenerator(t, &fakeGenerator{words: []string{"A"}})

	err := runBenchCmd(context.Background(), fixtureConfig(t), benchOptions{
		Workload:      workloadGenerate,
		Runs:          1,
		Format:        "table",
		MinThroughput: 1e18,
	}, &bytes.Buffer{})
	if !errors.Is(err, bench.ErrBelowThreshold) {
		t.Fatalf("want ErrBelowThreshold, got %v", err)
	}
}

func TestRunBenchCmd_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts benchOptions
	}{
		{"zero runs", benchOptions{Workload: workloadEncode, Runs: 0, Batches: 1, Format: "table"}},
		{"bad format", benchOptions{Workload: workloadEncode, Runs: 1, Batches: 1, Format: "xml"}},
		{"bad workload", benchOptions{Workload: "train", Runs: 1, Batches: 1, Format: "table"}},
		{"zero batches", benchOptions{Workload: workloadEncode, Runs: 1, Batches: 0, Format: "table"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := runBenchCmd(context.Background(), fixtureConfig(t), tt.opts, &bytes.Buffer{}); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
