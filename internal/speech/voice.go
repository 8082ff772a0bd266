package speech

import (
	"context"
	"errors"
	"fmt"
	"io"

	pockettts "github.com/MeKo-Christian/go-call-pocket-tts"

	"github.com/wabradshaw/wordgenerator/internal/config"
)

// ErrCLIUnavailable is returned when the pocket-tts executable cannot be found.
var ErrCLIUnavailable = errors.New("pocket-tts CLI not available")

// ExportVoice converts a speaker WAV prompt into a pocket-tts voice embedding
// that can be passed as the speech voice.
func ExportVoice(ctx context.Context, cfg config.SpeechConfig, audioPath, outPath string, log io.Writer) error {
	if audioPath == "" || outPath == "" {
		return errors.New("speech: export voice needs an audio path and an output path")
	}

	err := pockettts.ExportVoice(ctx, audioPath, outPath, &pockettts.ExportVoiceOptions{
		Config:         cfg.CLIConfigPath,
		Quiet:          cfg.Quiet,
		ExecutablePath: cfg.CLIPath,
		LogWriter:      log,
	})
	if err != nil {
		var notFound *pockettts.ErrExecutableNotFound
		if errors.As(err, &notFound) {
			return fmt.Errorf("%w: %w", ErrCLIUnavailable, err)
		}

		return fmt.Errorf("export voice: %w", err)
	}

	return nil
}
