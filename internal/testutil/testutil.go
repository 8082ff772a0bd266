// Package testutil provides shared skip helpers and fixtures for tests.
//
// Each Require helper calls t.Skip with a clear human-readable reason when the
// named prerequisite is absent, so integration tests remain runnable in
// partial environments without failing noisily.
//
// Typical usage:
//
//	func TestSpeakIntegration(t *testing.T) {
//	    testutil.RequirePocketTTS(t)
//	    ...
//	}
package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// RequirePocketTTS skips the test if the pocket-tts binary is not found in
// PATH or at the path given by the WORDGEN_SPEECH_CLI_PATH environment variable.
func RequirePocketTTS(tb testing.TB) {
	tb.Helper()

	exe := os.Getenv("WORDGEN_SPEECH_CLI_PATH")
	if exe == "" {
		exe = "pocket-tts"
	}

	if _, err := exec.LookPath(exe); err != nil {
		tb.Skipf("pocket-tts binary not available (%q not in PATH); set WORDGEN_SPEECH_CLI_PATH to override", exe)
	}
}

// RequireONNXRuntime skips the test if no ONNX Runtime shared library can be
// located. It checks (in order): the WORDGEN_ORT_LIB env var, then the
// ORT_LIBRARY_PATH env var, then common system library paths.
func RequireONNXRuntime(tb testing.TB) {
	tb.Helper()

	for _, env := range []string{"WORDGEN_ORT_LIB", "ORT_LIBRARY_PATH"} {
		if p := os.Getenv(env); p != "" {
			if _, err := os.Stat(p); err == nil {
				return
			}

			tb.Skipf("ONNX Runtime library not found at %s=%q", env, p)

			return
		}
	}

	candidates := []string{
		"/usr/lib/libonnxruntime.so",
		"/usr/local/lib/libonnxruntime.so",
		"/usr/lib/x86_64-linux-gnu/libonnxruntime.so",
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return
		}
	}

	tb.Skip("ONNX Runtime shared library not found; set WORDGEN_ORT_LIB or ORT_LIBRARY_PATH")
}

// SampleEntries is a small slice of the CMU dictionary in its native layout.
var SampleEntries = []string{
	"CAT  K AE1 T",
	"DOG  D AO1 G",
	"FROZEN  F R OW1 Z AH0 N",
	"ISN'T  IH1 Z AH0 N T",
	"HOUSE  HH AW1 S",
	"EXAMPLE  IH0 G Z AE1 M P AH0 L",
	"SUPERCALIFRAGILISTIC  S UW2 P ER0 K AE2 L AH0 F R AE1 JH AH0 L IH2 S T IH0 K",
	"\"QUOTE  K W OW1 T",
}

// WriteCorpus writes headerLines lines of ";;;" boilerplate followed by
// entries to a temp file and returns its path.
func WriteCorpus(tb testing.TB, headerLines int, entries ...string) string {
	tb.Helper()

	var sb strings.Builder
	for range headerLines {
		sb.WriteString(";;; # CMUdict  --  Major Version: 0.07\n")
	}

	for _, e := range entries {
		sb.WriteString(e)
		sb.WriteString("\n")
	}

	path := filepath.Join(tb.TempDir(), "cmudict.txt")
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		tb.Fatalf("write corpus fixture: %v", err)
	}

	return path
}
