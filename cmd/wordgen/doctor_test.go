package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wabradshaw/wordgenerator/internal/testutil"
)

func TestProbePocketTTSVersion_MissingExecutable(t *testing.T) {
	if _, err := probePocketTTSVersion("/nonexistent/pocket-tts-binary"); err == nil {
		t.Fatal("expected error for missing executable")
	}
}

func TestProbePocketTTSVersion_RealExecutable(t *testing.T) {
	script := filepath.Join(t.TempDir(), "fake-tts")

	if err := os.WriteFile(script, []byte("#!/bin/sh\necho 'fake-tts 1.2.3'\n"), 0o755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := probePocketTTSVersion(script)
	if err != nil {
		t.Fatalf("probePocketTTSVersion: %v", err)
	}

	if got != "fake-tts 1.2.3" {
		t.Errorf("unexpected version output: %q", got)
	}
}

func TestProbePythonVersion_ReturnsVersion(t *testing.T) {
	ver, err := probePythonVersion()
	if err != nil {
		t.Skipf("python not available: %v", err)
	}

	if ver == "" {
		t.Error("expected non-empty version string")
	}
}

func TestDoctorCmd_CorpusOnly(t *testing.T) {
	corpusPath := testutil.WriteCorpus(t, 2, testutil.SampleEntries...)

	out, err := executeRoot(t, nil,
		"--paths-corpus", corpusPath,
		"--corpus-header-lines", "2",
		"--paths-output-dir", filepath.Join(t.TempDir(), "batches"),
		"doctor", "--skip-model", "--skip-speech",
	)
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}

	if !strings.Contains(out, "8 entries") || !strings.Contains(out, "doctor checks passed") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestDoctorCmd_MissingCorpusFails(t *testing.T) {
	_, err := executeRoot(t, nil,
		"--paths-corpus", filepath.Join(t.TempDir(), "missing.txt"),
		"--paths-output-dir", t.TempDir(),
		"doctor", "--skip-model", "--skip-speech",
	)
	if err == nil || !strings.Contains(err.Error(), "doctor checks failed") {
		t.Fatalf("expected doctor failure, got %v", err)
	}
}
