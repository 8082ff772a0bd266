package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/wabradshaw/wordgenerator/internal/config"
	"github.com/wabradshaw/wordgenerator/internal/runtime/tensor"
	"github.com/wabradshaw/wordgenerator/internal/server"
)

var (
	cfgFile   string
	activeCfg config.Config
)

func NewRootCmd() *cobra.Command {
	defaults := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:           "wordgen",
		Short:         "Encode pronunciation dictionaries and sample invented words",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(config.LoadOptions{
				Cmd:        cmd,
				ConfigFile: cfgFile,
				Defaults:   defaults,
			})
			if err != nil {
				return err
			}

			activeCfg = loaded
			setupLogger(loaded.LogLevel)
			setupWorkers(loaded.Dataset.Workers)

			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Optional config file (yaml|toml|json)")
	config.RegisterFlags(cmd.PersistentFlags(), defaults)

	cmd.AddCommand(newEncodeCmd())
	cmd.AddCommand(newIPACmd())
	cmd.AddCommand(newGenerateCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newHealthCmd())
	cmd.AddCommand(newBenchCmd())
	cmd.AddCommand(newSpeakCmd())
	cmd.AddCommand(newExportVoiceCmd())
	cmd.AddCommand(newDoctorCmd())

	return cmd
}

// setupLogger configures the process-wide slog default logger.
func setupLogger(levelStr string) {
	lvl, err := server.ParseLogLevel(levelStr)
	if err != nil {
		lvl = slog.LevelInfo
	}

	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(h))
}

// setupWorkers sets the default parallelism; n <= 0 uses one goroutine per
// physical core.
func setupWorkers(n int) {
	if n <= 0 {
		n = tensor.DefaultWorkers()
	}

	tensor.SetWorkers(n)
}

// requireConfig returns the config loaded by the root pre-run hook. Load
// always normalizes the token set, so an empty one means it never ran.
func requireConfig() (config.Config, error) {
	if activeCfg.Vocab.TokenSet == "" {
		return config.Config{}, errors.New("configuration not loaded")
	}

	return activeCfg, nil
}
