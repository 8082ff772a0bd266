// Package generator binds a token set, a step model and a sampling policy into
// a word generation service shared by the CLI and the HTTP server.
package generator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/wabradshaw/wordgenerator/internal/config"
	"github.com/wabradshaw/wordgenerator/internal/onnx"
	"github.com/wabradshaw/wordgenerator/internal/sampler"
	"github.com/wabradshaw/wordgenerator/internal/tokenizer"
	"github.com/wabradshaw/wordgenerator/internal/vocab"
)

// Service generates rendered words. Calls are serialized because the step
// model carries recurrent state between time steps.
type Service struct {
	mu      sync.Mutex
	kind    vocab.Kind
	tok     tokenizer.Tokenizer
	sampler *sampler.Sampler
	closeFn func()
}

// KindFromConfig resolves a configured token set name, including the short
// aliases config.NormalizeTokenSet accepts.
func KindFromConfig(tokenSet string) (vocab.Kind, error) {
	name, err := config.NormalizeTokenSet(tokenSet)
	if err != nil {
		return 0, err
	}

	return vocab.ParseKind(name)
}

// NewService loads the ONNX step model named by cfg.Paths.ModelManifest.
func NewService(cfg config.Config, logger *slog.Logger) (*Service, error) {
	kind, err := KindFromConfig(cfg.Vocab.TokenSet)
	if err != nil {
		return nil, err
	}

	rc, info, err := onnx.RunnerConfigFor(cfg.Runtime)
	if err != nil {
		return nil, err
	}

	model, err := onnx.LoadStepModel(cfg.Paths.ModelManifest, rc)
	if err != nil {
		return nil, err
	}

	if err := checkManifestKind(model.Manifest(), kind); err != nil {
		model.Close()
		return nil, err
	}

	svc, err := NewServiceWithStepper(cfg, model, logger)
	if err != nil {
		model.Close()
		return nil, err
	}

	svc.closeFn = model.Close

	if logger != nil {
		logger.Info("generator ready",
			"token_set", kind.String(),
			"manifest", cfg.Paths.ModelManifest,
			"ort_library", info.LibraryPath,
			"ort_version", info.Version,
		)
	}

	return svc, nil
}

// NewServiceWithStepper builds a service over an already constructed step
// model. The caller keeps ownership of st.
func NewServiceWithStepper(cfg config.Config, st sampler.Stepper, logger *slog.Logger) (*Service, error) {
	kind, err := KindFromConfig(cfg.Vocab.TokenSet)
	if err != nil {
		return nil, err
	}

	v, err := vocab.ForKind(kind)
	if err != nil {
		return nil, err
	}

	tok, err := tokenizer.New(v, kind)
	if err != nil {
		return nil, err
	}

	opts := sampler.Options{
		Policy: sampler.NewPolicy(cfg.Sampling.MinProbability),
		Logger: logger,
	}

	if cfg.Sampling.Seed != 0 {
		seed := cfg.Sampling.Seed
		opts.Seed = &seed
	}

	s, err := sampler.New(v, st, opts)
	if err != nil {
		return nil, err
	}

	return &Service{kind: kind, tok: tok, sampler: s, closeFn: func() {}}, nil
}

// Generate samples count words of at most maxSteps symbols each.
func (s *Service) Generate(ctx context.Context, count, maxSteps int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sampler.GenerateStrings(ctx, s.tok, count, maxSteps)
}

// Kind reports the token set the service samples from.
func (s *Service) Kind() vocab.Kind {
	return s.kind
}

// IPACapable reports whether generated words can be passed to ipa.Map.
func (s *Service) IPACapable() bool {
	return IPACapable(s.kind)
}

// IPACapable reports whether words of kind are split-stress ARPAbet.
func IPACapable(kind vocab.Kind) bool {
	return kind.Mode() == vocab.ModePhonemes && kind.Stress() == vocab.StressSplit
}

// Close releases the model when the service loaded it.
func (s *Service) Close() {
	s.closeFn()
}

func checkManifestKind(m onnx.Manifest, kind vocab.Kind) error {
	if m.TokenSet == "" {
		return nil
	}

	declared, err := KindFromConfig(m.TokenSet)
	if err != nil {
		return fmt.Errorf("model manifest %q: %w", m.Name, err)
	}

	if declared != kind {
		return fmt.Errorf("model manifest %q was trained on %s, configured token set is %s", m.Name, declared, kind)
	}

	return nil
}
