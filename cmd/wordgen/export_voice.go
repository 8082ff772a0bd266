package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wabradshaw/wordgenerator/internal/speech"
)

func newExportVoiceCmd() *cobra.Command {
	var inputPath, outPath string

	cmd := &cobra.Command{
		Use:   "export-voice",
		Short: "Export a pocket-tts voice embedding from a speaker WAV for speak",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			audioPath := strings.TrimSpace(inputPath)
			if audioPath == "" {
				return errors.New("--input is required")
			}

			if strings.TrimSpace(outPath) == "" {
				return errors.New("--out is required")
			}

			if _, err := os.Stat(audioPath); err != nil {
				return fmt.Errorf("read --input %q: %w", audioPath, err)
			}

			if err := speech.ExportVoice(cmd.Context(), cfg.Speech, audioPath, outPath, cmd.ErrOrStderr()); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "export-voice completed; use --speech-voice %s\n", outPath)

			return err
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", "", "Speaker prompt WAV path")
	cmd.Flags().StringVar(&outPath, "out", "", "Output voice .safetensors path")

	return cmd
}
