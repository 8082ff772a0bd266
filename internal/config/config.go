package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Paths    PathsConfig    `mapstructure:"paths"`
	Corpus   CorpusConfig   `mapstructure:"corpus"`
	Vocab    VocabConfig    `mapstructure:"vocab"`
	Dataset  DatasetConfig  `mapstructure:"dataset"`
	Sampling SamplingConfig `mapstructure:"sampling"`
	Runtime  RuntimeConfig  `mapstructure:"runtime"`
	Server   ServerConfig   `mapstructure:"server"`
	Speech   SpeechConfig   `mapstructure:"speech"`
	LogLevel string         `mapstructure:"log_level"`
}

type PathsConfig struct {
	Corpus        string `mapstructure:"corpus"`
	ModelManifest string `mapstructure:"model_manifest"`
	OutputDir     string `mapstructure:"output_dir"`
}

type CorpusConfig struct {
	HeaderLines int    `mapstructure:"header_lines"`
	Shuffle     bool   `mapstructure:"shuffle"`
	Seed        uint64 `mapstructure:"seed"`
}

type VocabConfig struct {
	TokenSet string `mapstructure:"token_set"`
}

type DatasetConfig struct {
	BatchSize int `mapstructure:"batch_size"`
	MaxLength int `mapstructure:"max_length"`
	Workers   int `mapstructure:"workers"`
}

type SamplingConfig struct {
	Count          int     `mapstructure:"count"`
	MaxSteps       int     `mapstructure:"max_steps"`
	MinProbability float64 `mapstructure:"min_probability"`
	// Seed 0 picks a random seed per run.
	Seed uint64 `mapstructure:"seed"`
}

type RuntimeConfig struct {
	ORTLibraryPath string `mapstructure:"ort_library_path"`
	ORTVersion     string `mapstructure:"ort_version"`
	APIVersion     uint32 `mapstructure:"api_version"`
}

type ServerConfig struct {
	ListenAddr      string        `mapstructure:"listen_addr"`
	MaxCount        int           `mapstructure:"max_count"`
	MaxSteps        int           `mapstructure:"max_steps"`
	MaxBodyBytes    int           `mapstructure:"max_body_bytes"`
	Workers         int           `mapstructure:"workers"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type SpeechConfig struct {
	CLIPath       string `mapstructure:"cli_path"`
	CLIConfigPath string `mapstructure:"cli_config_path"`
	Voice         string `mapstructure:"voice"`
	Quiet         bool   `mapstructure:"quiet"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		Paths: PathsConfig{
			Corpus:        "data/cmudict.txt",
			ModelManifest: "models/wordgen.json",
			OutputDir:     "batches",
		},
		Corpus: CorpusConfig{
			HeaderLines: 126,
			Shuffle:     true,
			Seed:        1234,
		},
		Vocab: VocabConfig{
			TokenSet: TokenSetLettersCommon,
		},
		Dataset: DatasetConfig{
			BatchSize: 128,
			MaxLength: 14,
			Workers:   4,
		},
		Sampling: SamplingConfig{
			Count:          30,
			MaxSteps:       30,
			MinProbability: 0,
			Seed:           0,
		},
		Runtime: RuntimeConfig{
			ORTLibraryPath: "",
			ORTVersion:     "",
			APIVersion:     23,
		},
		Server: ServerConfig{
			ListenAddr:      ":8080",
			MaxCount:        100,
			MaxSteps:        64,
			MaxBodyBytes:    4096,
			Workers:         2,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Speech: SpeechConfig{
			CLIPath:       "",
			CLIConfigPath: "",
			Voice:         "",
			Quiet:         true,
		},
		LogLevel: "info",
	}
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("paths-corpus", defaults.Paths.Corpus, "Path to the pronunciation dictionary")
	fs.String("paths-model-manifest", defaults.Paths.ModelManifest, "Path to the step model manifest (JSON)")
	fs.String("paths-output-dir", defaults.Paths.OutputDir, "Directory for exported batches")
	fs.Int("corpus-header-lines", defaults.Corpus.HeaderLines, "Number of leading corpus lines to skip")
	fs.Bool("corpus-shuffle", defaults.Corpus.Shuffle, "Shuffle corpus lines before batching")
	fs.Uint64("corpus-seed", defaults.Corpus.Seed, "Seed for the corpus shuffle")
	fs.String("vocab-token-set", defaults.Vocab.TokenSet, "Token set: letters|letters-common|phonemes-split|phonemes-fused")
	fs.Int("dataset-batch-size", defaults.Dataset.BatchSize, "Corpus lines per batch window")
	fs.Int("dataset-max-length", defaults.Dataset.MaxLength, "Longest sequence kept, excluding START/END")
	fs.Int("dataset-workers", defaults.Dataset.Workers, "Goroutines used to tokenize a window (0 = one per physical core)")
	fs.Int("sampling-count", defaults.Sampling.Count, "Words generated per run")
	fs.Int("sampling-max-steps", defaults.Sampling.MaxSteps, "Maximum symbols drawn per word")
	fs.Float64("sampling-min-probability", defaults.Sampling.MinProbability, "Ignore symbols below this probability (0 disables)")
	fs.Uint64("sampling-seed", defaults.Sampling.Seed, "Sampling seed (0 picks a random seed)")
	fs.String("runtime-ort-library-path", defaults.Runtime.ORTLibraryPath, "Path to ONNX Runtime shared library")
	fs.String("ort-lib", defaults.Runtime.ORTLibraryPath, "Path to ONNX Runtime shared library (alias for --runtime-ort-library-path)")
	fs.String("runtime-ort-version", defaults.Runtime.ORTVersion, "Expected ONNX Runtime version")
	fs.Uint32("runtime-api-version", defaults.Runtime.APIVersion, "ONNX Runtime C API version")
	fs.String("server-listen-addr", defaults.Server.ListenAddr, "HTTP listen address")
	fs.Int("server-max-count", defaults.Server.MaxCount, "Largest count accepted by /generate")
	fs.Int("server-max-steps", defaults.Server.MaxSteps, "Largest max_steps accepted by /generate")
	fs.Int("server-max-body-bytes", defaults.Server.MaxBodyBytes, "Largest request body accepted")
	fs.Int("server-workers", defaults.Server.Workers, "Concurrent requests handled")
	fs.Duration("server-request-timeout", defaults.Server.RequestTimeout, "Per-request timeout")
	fs.Duration("server-shutdown-timeout", defaults.Server.ShutdownTimeout, "Graceful shutdown timeout")
	fs.String("speech-cli-path", defaults.Speech.CLIPath, "Path to pocket-tts executable")
	fs.String("speech-cli-config-path", defaults.Speech.CLIConfigPath, "Path to pocket-tts config file")
	fs.String("speech-voice", defaults.Speech.Voice, "pocket-tts voice name or .safetensors file")
	fs.Bool("speech-quiet", defaults.Speech.Quiet, "Pass --quiet to pocket-tts generate")
	fs.String("log-level", defaults.LogLevel, "Log level: debug|info|warn|error")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)

	if opts.Cmd != nil {
		if err := v.BindPFlags(opts.Cmd.Flags()); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	registerAliases(v)

	v.SetEnvPrefix("WORDGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_", "__", "_"))

	if err := v.BindEnv("runtime.ort_library_path", "WORDGEN_ORT_LIB", "ORT_LIBRARY_PATH"); err != nil {
		return Config{}, fmt.Errorf("bind ort env vars: %w", err)
	}

	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)

		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("wordgen")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	tokenSet, err := NormalizeTokenSet(cfg.Vocab.TokenSet)
	if err != nil {
		return Config{}, err
	}

	cfg.Vocab.TokenSet = tokenSet

	return cfg, nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("paths.corpus", c.Paths.Corpus)
	v.SetDefault("paths.model_manifest", c.Paths.ModelManifest)
	v.SetDefault("paths.output_dir", c.Paths.OutputDir)
	v.SetDefault("corpus.header_lines", c.Corpus.HeaderLines)
	v.SetDefault("corpus.shuffle", c.Corpus.Shuffle)
	v.SetDefault("corpus.seed", c.Corpus.Seed)
	v.SetDefault("vocab.token_set", c.Vocab.TokenSet)
	v.SetDefault("dataset.batch_size", c.Dataset.BatchSize)
	v.SetDefault("dataset.max_length", c.Dataset.MaxLength)
	v.SetDefault("dataset.workers", c.Dataset.Workers)
	v.SetDefault("sampling.count", c.Sampling.Count)
	v.SetDefault("sampling.max_steps", c.Sampling.MaxSteps)
	v.SetDefault("sampling.min_probability", c.Sampling.MinProbability)
	v.SetDefault("sampling.seed", c.Sampling.Seed)
	v.SetDefault("runtime.ort_library_path", c.Runtime.ORTLibraryPath)
	v.SetDefault("runtime.ort_version", c.Runtime.ORTVersion)
	v.SetDefault("runtime.api_version", c.Runtime.APIVersion)
	v.SetDefault("server.listen_addr", c.Server.ListenAddr)
	v.SetDefault("server.max_count", c.Server.MaxCount)
	v.SetDefault("server.max_steps", c.Server.MaxSteps)
	v.SetDefault("server.max_body_bytes", c.Server.MaxBodyBytes)
	v.SetDefault("server.workers", c.Server.Workers)
	v.SetDefault("server.request_timeout", c.Server.RequestTimeout)
	v.SetDefault("server.shutdown_timeout", c.Server.ShutdownTimeout)
	v.SetDefault("speech.cli_path", c.Speech.CLIPath)
	v.SetDefault("speech.cli_config_path", c.Speech.CLIConfigPath)
	v.SetDefault("speech.voice", c.Speech.Voice)
	v.SetDefault("speech.quiet", c.Speech.Quiet)
	v.SetDefault("log_level", c.LogLevel)
}

func registerAliases(v *viper.Viper) {
	v.RegisterAlias("paths.corpus", "paths-corpus")
	v.RegisterAlias("paths.model_manifest", "paths-model-manifest")
	v.RegisterAlias("paths.output_dir", "paths-output-dir")
	v.RegisterAlias("corpus.header_lines", "corpus-header-lines")
	v.RegisterAlias("corpus.shuffle", "corpus-shuffle")
	v.RegisterAlias("corpus.seed", "corpus-seed")
	v.RegisterAlias("vocab.token_set", "vocab-token-set")
	v.RegisterAlias("dataset.batch_size", "dataset-batch-size")
	v.RegisterAlias("dataset.max_length", "dataset-max-length")
	v.RegisterAlias("dataset.workers", "dataset-workers")
	v.RegisterAlias("sampling.count", "sampling-count")
	v.RegisterAlias("sampling.max_steps", "sampling-max-steps")
	v.RegisterAlias("sampling.min_probability", "sampling-min-probability")
	v.RegisterAlias("sampling.seed", "sampling-seed")
	v.RegisterAlias("runtime.ort_library_path", "runtime-ort-library-path")
	v.RegisterAlias("runtime.ort_library_path", "ort-lib")
	v.RegisterAlias("runtime.ort_version", "runtime-ort-version")
	v.RegisterAlias("runtime.api_version", "runtime-api-version")
	v.RegisterAlias("server.listen_addr", "server-listen-addr")
	v.RegisterAlias("server.max_count", "server-max-count")
	v.RegisterAlias("server.max_steps", "server-max-steps")
	v.RegisterAlias("server.max_body_bytes", "server-max-body-bytes")
	v.RegisterAlias("server.workers", "server-workers")
	v.RegisterAlias("server.request_timeout", "server-request-timeout")
	v.RegisterAlias("server.shutdown_timeout", "server-shutdown-timeout")
	v.RegisterAlias("speech.cli_path", "speech-cli-path")
	v.RegisterAlias("speech.cli_config_path", "speech-cli-config-path")
	v.RegisterAlias("speech.voice", "speech-voice")
	v.RegisterAlias("speech.quiet", "speech-quiet")
	v.RegisterAlias("log_level", "log-level")
}
