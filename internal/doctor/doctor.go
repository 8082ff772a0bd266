// Package doctor provides environment preflight checks for wordgen.
package doctor

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wabradshaw/wordgenerator/internal/config"
	"github.com/wabradshaw/wordgenerator/internal/corpus"
	"github.com/wabradshaw/wordgenerator/internal/onnx"
	"github.com/wabradshaw/wordgenerator/internal/runtime/tensor"
)

// PassMark and FailMark are the prefix symbols printed for each check result.
const (
	PassMark = "✓"
	FailMark = "✗"
)

// VersionFunc returns a version string or an error if the component is unavailable.
type VersionFunc func() (string, error)

// RuntimeFunc locates the ONNX Runtime shared library.
type RuntimeFunc func() (onnx.RuntimeInfo, error)

// Config holds injectable dependencies for each doctor check.
type Config struct {
	// CorpusPath is the pronunciation dictionary; empty skips the check.
	CorpusPath  string
	HeaderLines int
	// TokenSet is the configured token set, compared against the manifest.
	TokenSet string
	// ManifestPath is the step model manifest; empty skips the check.
	ManifestPath string
	// OutputDir must be creatable for encode; empty skips the check.
	OutputDir string

	// CPU, when set, is reported but never fails.
	CPU *tensor.CPUInfo

	Runtime     RuntimeFunc
	SkipRuntime bool

	// PocketTTSVersion returns the output of `pocket-tts --version`.
	PocketTTSVersion VersionFunc
	// SkipPocketTTS skips the speech checks.
	SkipPocketTTS bool
	// PythonVersion returns the Python version string (e.g. "3.11.4").
	PythonVersion VersionFunc
	SkipPython    bool
}

// Result collects the outcome of all checks.
type Result struct {
	failures []string
}

// Failed returns true if any check failed.
func (r *Result) Failed() bool { return len(r.failures) > 0 }

// Failures returns the list of failure messages.
func (r *Result) Failures() []string { return append([]string(nil), r.failures...) }

// AddFailure appends an external failure message to the result.
func (r *Result) AddFailure(msg string) { r.failures = append(r.failures, msg) }

func (r *Result) fail(msg string) { r.failures = append(r.failures, msg) }

// Run executes all configured checks and writes human-readable output to w.
// Each check line is prefixed with PassMark or FailMark.
func Run(cfg Config, w io.Writer) Result {
	var res Result

	// ---- host -------------------------------------------------------------
	if cfg.CPU != nil {
		fmt.Fprintf(w, "%s cpu: %s (%d physical / %d logical cores, avx2=%t avx512=%t)\n",
			PassMark, cfg.CPU.Brand, cfg.CPU.PhysicalCores, cfg.CPU.LogicalCores, cfg.CPU.AVX2, cfg.CPU.AVX512)
	}

	// ---- corpus -----------------------------------------------------------
	if cfg.CorpusPath != "" {
		lines, err := corpus.LoadFile(cfg.CorpusPath, cfg.HeaderLines)
		switch {
		case err != nil:
			res.fail(fmt.Sprintf("corpus: %v", err))
			fmt.Fprintf(w, "%s corpus %s: %v\n", FailMark, cfg.CorpusPath, err)
		case len(lines) == 0:
			res.fail("corpus: no entries after header")
			fmt.Fprintf(w, "%s corpus %s: no entries after %d header lines\n", FailMark, cfg.CorpusPath, cfg.HeaderLines)
		default:
			fmt.Fprintf(w, "%s corpus: %s (%d entries)\n", PassMark, cfg.CorpusPath, len(lines))
		}
	}

	// ---- output directory -------------------------------------------------
	if cfg.OutputDir != "" {
		if err := checkWritableDir(cfg.OutputDir); err != nil {
			res.fail(fmt.Sprintf("output dir: %v", err))
			fmt.Fprintf(w, "%s output dir %s: %v\n", FailMark, cfg.OutputDir, err)
		} else {
			fmt.Fprintf(w, "%s output dir: %s\n", PassMark, cfg.OutputDir)
		}
	}

	// ---- ONNX Runtime -----------------------------------------------------
	if cfg.SkipRuntime || cfg.Runtime == nil {
		fmt.Fprintf(w, "%s onnx runtime: skipped\n", PassMark)
	} else {
		info, err := cfg.Runtime()
		if err != nil {
			res.fail(fmt.Sprintf("onnx runtime: %v", err))
			fmt.Fprintf(w, "%s onnx runtime: %v\n", FailMark, err)
		} else {
			fmt.Fprintf(w, "%s onnx runtime: %s (version %s)\n", PassMark, info.LibraryPath, versionOrUnknown(info.Version))
		}
	}

	// ---- model manifest ---------------------------------------------------
	if cfg.ManifestPath != "" {
		m, err := onnx.LoadManifest(cfg.ManifestPath)
		switch {
		case err != nil:
			res.fail(fmt.Sprintf("model manifest: %v", err))
			fmt.Fprintf(w, "%s model manifest %s: %v\n", FailMark, cfg.ManifestPath, err)
		case !sameTokenSet(m.TokenSet, cfg.TokenSet):
			res.fail(fmt.Sprintf("model manifest: token set %q, configured %q", m.TokenSet, cfg.TokenSet))
			fmt.Fprintf(w, "%s model manifest %s: trained on %s, configured %s\n", FailMark, m.Name, m.TokenSet, cfg.TokenSet)
		default:
			fmt.Fprintf(w, "%s model manifest: %s (%s, %d state tensors)\n", PassMark, m.Name, m.Path, len(m.State))
		}
	}

	// ---- pocket-tts binary ------------------------------------------------
	if cfg.SkipPocketTTS {
		fmt.Fprintf(w, "%s pocket-tts binary: skipped\n", PassMark)
		return res
	}

	ver, err := cfg.PocketTTSVersion()
	if err != nil {
		res.fail(fmt.Sprintf("pocket-tts binary: %v", err))
		fmt.Fprintf(w, "%s pocket-tts binary: not found (%v)\n", FailMark, err)
	} else {
		fmt.Fprintf(w, "%s pocket-tts binary: %s\n", PassMark, ver)
	}

	// ---- Python version ---------------------------------------------------
	if cfg.SkipPython || cfg.PythonVersion == nil {
		fmt.Fprintf(w, "%s python version: skipped\n", PassMark)
		return res
	}

	pyVer, err := cfg.PythonVersion()
	if err != nil {
		res.fail(fmt.Sprintf("python version: %v", err))
		fmt.Fprintf(w, "%s python version: not found (%v)\n", FailMark, err)
	} else if pyErr := checkPythonVersion(pyVer); pyErr != nil {
		res.fail(fmt.Sprintf("python version: %v", pyErr))
		fmt.Fprintf(w, "%s python version %s: %v\n", FailMark, pyVer, pyErr)
	} else {
		fmt.Fprintf(w, "%s python version: %s\n", PassMark, pyVer)
	}

	return res
}

// sameTokenSet treats an undeclared side as matching.
func sameTokenSet(declared, configured string) bool {
	if declared == "" || configured == "" {
		return true
	}

	a, errA := config.NormalizeTokenSet(declared)
	b, errB := config.NormalizeTokenSet(configured)

	return errA == nil && errB == nil && a == b
}

func versionOrUnknown(v string) string {
	if v == "" {
		return "unknown"
	}

	return v
}

// checkWritableDir creates dir if needed and probes it with a temp file.
func checkWritableDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	f, err := os.CreateTemp(dir, ".wordgen-doctor-*")
	if err != nil {
		return err
	}

	name := f.Name()
	_ = f.Close()

	return os.Remove(filepath.Clean(name))
}

// checkPythonVersion returns an error if ver is outside [3.10, 3.15).
// ver is expected to be a string like "3.11.4".
func checkPythonVersion(ver string) error {
	major, minor, err := parseMajorMinor(ver)
	if err != nil {
		return fmt.Errorf("cannot parse %q: %w", ver, err)
	}

	if major != 3 {
		return fmt.Errorf("requires Python 3, got %d", major)
	}

	if minor < 10 {
		return fmt.Errorf("requires Python >=3.10, got 3.%d", minor)
	}

	if minor >= 15 {
		return fmt.Errorf("requires Python <3.15, got 3.%d", minor)
	}

	return nil
}

func parseMajorMinor(ver string) (major, minor int, err error) {
	parts := strings.SplitN(strings.TrimSpace(ver), ".", 3)
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("unexpected version format %q", ver)
	}

	major, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("bad major in %q: %w", ver, err)
	}

	minor, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("bad minor in %q: %w", ver, err)
	}

	return major, minor, nil
}
