package onnx

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/wabradshaw/wordgenerator/internal/config"
)

// ErrRuntimeNotFound is returned when no ONNX Runtime library can be located.
var ErrRuntimeNotFound = errors.New("onnx runtime library not found")

// RuntimeInfo describes the ONNX Runtime shared library in use.
type RuntimeInfo struct {
	LibraryPath string
	Version     string
	// Source names where LibraryPath came from: "config", an environment
	// variable, or "search".
	Source string
}

// SearchPaths are probed, in order, when neither config nor environment name
// a library.
var SearchPaths = []string{
	"/usr/lib/libonnxruntime.so",
	"/usr/local/lib/libonnxruntime.so",
	"/opt/homebrew/lib/libonnxruntime.dylib",
	"C:/onnxruntime/lib/onnxruntime.dll",
}

var semver = regexp.MustCompile(`\d+\.\d+\.\d+`)

type lookup struct {
	source string
	value  func() string
}

// DetectRuntime resolves the ORT library from runtime.ort_library_path,
// WORDGEN_ORT_LIB, ORT_LIBRARY_PATH and finally SearchPaths. The first
// non-empty source wins and must point at an existing file.
func DetectRuntime(cfg config.RuntimeConfig) (RuntimeInfo, error) {
	info := RuntimeInfo{Version: "unknown"}

	lib, source := firstOf(
		lookup{"config", func() string { return cfg.ORTLibraryPath }},
		lookup{"WORDGEN_ORT_LIB", env("WORDGEN_ORT_LIB")},
		lookup{"ORT_LIBRARY_PATH", env("ORT_LIBRARY_PATH")},
		lookup{"search", searchInstalled},
	)
	if lib == "" {
		info.LibraryPath = "not found"
		return info, ErrRuntimeNotFound
	}

	info.LibraryPath, info.Source = lib, source

	if _, err := os.Stat(lib); err != nil {
		return info, fmt.Errorf("%w (from %s): %w", ErrRuntimeNotFound, source, err)
	}

	if v, _ := firstOf(
		lookup{"config", func() string { return cfg.ORTVersion }},
		lookup{"ORT_VERSION", env("ORT_VERSION")},
		lookup{"file name", func() string { return versionFromName(lib) }},
	); v != "" {
		info.Version = v
	}

	return info, nil
}

// RunnerConfigFor resolves the library and returns runner settings for it.
func RunnerConfigFor(cfg config.RuntimeConfig) (RunnerConfig, RuntimeInfo, error) {
	info, err := DetectRuntime(cfg)
	if err != nil {
		return RunnerConfig{}, info, err
	}

	return RunnerConfig{LibraryPath: info.LibraryPath, APIVersion: cfg.APIVersion}, info, nil
}

func firstOf(lookups ...lookup) (value, source string) {
	for _, l := range lookups {
		if v := l.value(); v != "" {
			return v, l.source
		}
	}

	return "", ""
}

func env(key string) func() string {
	return func() string { return os.Getenv(key) }
}

func searchInstalled() string {
	for _, p := range SearchPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

// versionFromName reads a dotted version out of the library's base name only,
// so versioned install directories do not count.
func versionFromName(path string) string {
	return semver.FindString(filepath.Base(path))
}
