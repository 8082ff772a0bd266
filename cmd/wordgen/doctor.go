package main

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wabradshaw/wordgenerator/internal/doctor"
	"github.com/wabradshaw/wordgenerator/internal/onnx"
	"github.com/wabradshaw/wordgenerator/internal/runtime/tensor"
	"github.com/wabradshaw/wordgenerator/internal/speech"
)

func newDoctorCmd() *cobra.Command {
	var skipModel, skipSpeech bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run corpus, runtime, model and speech checks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			exe := cfg.Speech.CLIPath
			if exe == "" {
				exe = speech.DefaultExecutable
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "token set: %s\n", cfg.Vocab.TokenSet)

			cpu := tensor.DetectCPU()

			dcfg := doctor.Config{
				CPU:         &cpu,
				CorpusPath:  cfg.Paths.Corpus,
				HeaderLines: cfg.Corpus.HeaderLines,
				TokenSet:    cfg.Vocab.TokenSet,
				OutputDir:   cfg.Paths.OutputDir,
				Runtime: func() (onnx.RuntimeInfo, error) {
					return onnx.DetectRuntime(cfg.Runtime)
				},
				SkipRuntime: skipModel,
				PocketTTSVersion: func() (string, error) {
					return probePocketTTSVersion(exe)
				},
				SkipPocketTTS: skipSpeech,
				PythonVersion: probePythonVersion,
				SkipPython:    skipSpeech,
			}
			if !skipModel {
				dcfg.ManifestPath = cfg.Paths.ModelManifest
			}

			result := doctor.Run(dcfg, out)

			if result.Failed() {
				for _, f := range result.Failures() {
					fmt.Fprintf(cmd.ErrOrStderr(), "FAIL: %s\n", f)
				}

				return errors.New("doctor checks failed")
			}

			_, _ = fmt.Fprintln(out, "doctor checks passed")

			return nil
		},
	}

	cmd.Flags().BoolVar(&skipModel, "skip-model", false, "Skip the ONNX Runtime and model manifest checks")
	cmd.Flags().BoolVar(&skipSpeech, "skip-speech", false, "Skip the pocket-tts and Python checks")

	return cmd
}

// probePocketTTSVersion runs `pocket-tts --version` and returns its output.
func probePocketTTSVersion(exe string) (string, error) {
	out, err := exec.CommandContext(context.Background(), exe, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("%s --version failed: %w", exe, err)
	}

	return strings.TrimSpace(string(out)), nil
}

// probePythonVersion tries python3 then python and returns the version string.
func probePythonVersion() (string, error) {
	for _, bin := range []string{"python3", "python"} {
		out, err := exec.CommandContext(context.Background(), bin, "--version").Output()
		if err != nil {
			continue
		}

		// "Python 3.11.4\n"
		raw := strings.TrimPrefix(strings.TrimSpace(string(out)), "Python ")
		if raw != "" {
			return raw, nil
		}
	}

	return "", errors.New("python3/python not found on PATH")
}
