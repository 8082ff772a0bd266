package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/wabradshaw/wordgenerator/internal/config"
	"github.com/wabradshaw/wordgenerator/internal/generator"
	"github.com/wabradshaw/wordgenerator/internal/ipa"
)

// ParseLogLevel converts a case-insensitive level string to slog.Level.
// An empty string returns slog.LevelInfo. Unknown strings return an error.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (want debug|info|warn|error)", s)
	}
}

// Generator produces rendered words from a trained model.
type Generator interface {
	Generate(ctx context.Context, count, maxSteps int) ([]string, error)
}

// ---------------------------------------------------------------------------
// Functional options
// ---------------------------------------------------------------------------

type options struct {
	maxBodyBytes    int64
	maxCount        int
	maxSteps        int
	defaultCount    int
	defaultMaxSteps int
	withIPA         bool
	workers         int
	requestTimeout  time.Duration
	logger          *slog.Logger
}

func defaultOptions() options {
	return options{
		maxBodyBytes:    4096,
		maxCount:        100,
		maxSteps:        64,
		defaultCount:    30,
		defaultMaxSteps: 30,
		workers:         2,
		requestTimeout:  30 * time.Second,
		logger:          slog.Default(),
	}
}

// Option configures the HTTP handler.
type Option func(*options)

// WithMaxBodyBytes caps the request body size of POST endpoints.
func WithMaxBodyBytes(n int64) Option {
	return func(o *options) { o.maxBodyBytes = n }
}

// WithLimits sets the largest count and max_steps a /generate request may ask for.
func WithLimits(maxCount, maxSteps int) Option {
	return func(o *options) {
		o.maxCount = maxCount
		o.maxSteps = maxSteps
	}
}

// WithDefaults sets the count and max_steps used when a request omits them.
func WithDefaults(count, maxSteps int) Option {
	return func(o *options) {
		o.defaultCount = count
		o.defaultMaxSteps = maxSteps
	}
}

// WithIPA adds an IPA rendering of every generated word to /generate
// responses. Only split-stress phoneme output can be mapped.
func WithIPA(enabled bool) Option {
	return func(o *options) { o.withIPA = enabled }
}

// WithWorkers sets the maximum number of concurrent generation calls.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithRequestTimeout sets the per-request generation deadline.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) { o.requestTimeout = d }
}

// WithLogger sets the slog.Logger used for request logging.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// ---------------------------------------------------------------------------
// handler
// ---------------------------------------------------------------------------

type handler struct {
	gen  Generator
	opts options
	sem  chan struct{}
	log  *slog.Logger
}

// NewHandler returns an http.Handler that serves /health, POST /ipa and
// POST /generate. gen may be nil, in which case /generate answers 503.
func NewHandler(gen Generator, optFns ...Option) http.Handler {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	h := &handler{
		gen:  gen,
		opts: opts,
		log:  opts.logger,
	}
	if opts.workers > 0 {
		h.sem = make(chan struct{}, opts.workers)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/ipa", h.handleIPA)
	mux.HandleFunc("/generate", h.handleGenerate)

	return mux
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}

	return "dev"
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildVersion(),
	})
}

type ipaRequest struct {
	Arpabet string `json:"arpabet"`
}

type ipaResponse struct {
	IPA string `json:"ipa"`
}

func (h *handler) handleIPA(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req ipaRequest
	if status, msg := h.decode(w, r, &req, false); status != 0 {
		writeError(w, status, msg)
		return
	}

	if strings.TrimSpace(req.Arpabet) == "" {
		writeError(w, http.StatusBadRequest, "arpabet field is required")
		return
	}

	out, err := ipa.Map(req.Arpabet)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.log.DebugContext(r.Context(), "ipa mapped", slog.Int("input_len", len(req.Arpabet)))
	writeJSON(w, http.StatusOK, ipaResponse{IPA: out})
}

type generateRequest struct {
	Count    int `json:"count"`
	MaxSteps int `json:"max_steps"`
}

type generateResponse struct {
	Words []string `json:"words"`
	IPA   []string `json:"ipa,omitempty"`
}

func (h *handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if h.gen == nil {
		writeError(w, http.StatusServiceUnavailable, "no model loaded")
		return
	}

	var req generateRequest
	if status, msg := h.decode(w, r, &req, true); status != 0 {
		writeError(w, status, msg)
		return
	}

	if req.Count == 0 {
		req.Count = h.opts.defaultCount
	}

	if req.MaxSteps == 0 {
		req.MaxSteps = h.opts.defaultMaxSteps
	}

	if req.Count < 1 || req.Count > h.opts.maxCount {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("count must be between 1 and %d", h.opts.maxCount))
		return
	}

	if req.MaxSteps < 1 || req.MaxSteps > h.opts.maxSteps {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("max_steps must be between 1 and %d", h.opts.maxSteps))
		return
	}

	// Acquire a worker slot, honouring cancellation while waiting.
	if h.sem != nil {
		select {
		case h.sem <- struct{}{}:
		case <-r.Context().Done():
			writeError(w, http.StatusServiceUnavailable, "request cancelled while waiting for worker")
			return
		}
		defer func() { <-h.sem }()
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.requestTimeout)
	defer cancel()

	start := time.Now()
	words, err := h.gen.Generate(ctx, req.Count, req.MaxSteps)
	durationMS := time.Since(start).Milliseconds()

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			h.log.WarnContext(r.Context(), "generation timed out",
				slog.Int("count", req.Count),
				slog.Int("max_steps", req.MaxSteps),
				slog.Int64("duration_ms", durationMS),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusGatewayTimeout, "generation timed out")

			return
		}

		h.log.ErrorContext(r.Context(), "generation failed",
			slog.Int("count", req.Count),
			slog.Int("max_steps", req.MaxSteps),
			slog.Int64("duration_ms", durationMS),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, err.Error())

		return
	}

	resp := generateResponse{Words: words}
	if h.opts.withIPA {
		resp.IPA, err = mapWords(words)
		if err != nil {
			h.log.ErrorContext(r.Context(), "ipa mapping failed",
				slog.Int("count", req.Count),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, err.Error())

			return
		}
	}

	h.log.InfoContext(r.Context(), "generation complete",
		slog.Int("count", req.Count),
		slog.Int("max_steps", req.MaxSteps),
		slog.Int64("duration_ms", durationMS),
	)

	writeJSON(w, http.StatusOK, resp)
}

// mapWords renders each word as IPA. A word holding a symbol the mapper does
// not know fails the whole response.
func mapWords(words []string) ([]string, error) {
	out := make([]string, len(words))

	for i, word := range words {
		mapped, err := ipa.Map(word)
		if err != nil {
			return nil, fmt.Errorf("word %d: %w", i, err)
		}

		out[i] = mapped
	}

	return out, nil
}

// decode reads a JSON body bounded by maxBodyBytes. It returns a non-zero
// status with a message when the request must be rejected.
func (h *handler) decode(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) (int, string) {
	if r.Body == nil {
		if allowEmpty {
			return 0, ""
		}

		return http.StatusBadRequest, "request body is required"
	}

	body := http.MaxBytesReader(w, r.Body, h.opts.maxBodyBytes)

	err := json.NewDecoder(body).Decode(dst)
	if err == nil || (allowEmpty && errors.Is(err, io.EOF)) {
		return 0, ""
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds maximum size of %d bytes", h.opts.maxBodyBytes)
	}

	return http.StatusBadRequest, "invalid JSON: " + err.Error()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// ---------------------------------------------------------------------------
// Server wires the handler into net/http.Server with graceful shutdown
// ---------------------------------------------------------------------------

// Server wires the HTTP handler into a net/http.Server with graceful shutdown.
type Server struct {
	cfg             config.Config
	gen             Generator
	logger          *slog.Logger
	shutdownTimeout time.Duration
}

// New returns a server for cfg. When gen is nil, Start loads the configured
// ONNX step model.
func New(cfg config.Config, gen Generator) *Server {
	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Server{
		cfg:             cfg,
		gen:             gen,
		logger:          slog.Default(),
		shutdownTimeout: timeout,
	}
}

// WithShutdownTimeout overrides the graceful-shutdown drain period.
func (s *Server) WithShutdownTimeout(d time.Duration) *Server {
	s.shutdownTimeout = d
	return s
}

// WithLogger sets the logger handed to the HTTP handler.
func (s *Server) WithLogger(l *slog.Logger) *Server {
	s.logger = l
	return s
}

func (s *Server) Start(ctx context.Context) error {
	kind, err := generator.KindFromConfig(s.cfg.Vocab.TokenSet)
	if err != nil {
		return err
	}

	gen := s.gen
	if gen == nil {
		svc, err := generator.NewService(s.cfg, s.logger)
		if err != nil {
			return fmt.Errorf("initialize generator: %w", err)
		}
		defer svc.Close()

		gen = svc
	}

	h := NewHandler(gen,
		WithWorkers(s.cfg.Server.Workers),
		WithMaxBodyBytes(int64(s.cfg.Server.MaxBodyBytes)),
		WithLimits(s.cfg.Server.MaxCount, s.cfg.Server.MaxSteps),
		WithDefaults(s.cfg.Sampling.Count, s.cfg.Sampling.MaxSteps),
		WithRequestTimeout(s.cfg.Server.RequestTimeout),
		WithIPA(generator.IPACapable(kind)),
		WithLogger(s.logger),
	)

	httpServer := &http.Server{
		Addr:              s.cfg.Server.ListenAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	s.logger.Info("server listening", "addr", s.cfg.Server.ListenAddr, "token_set", kind.String())

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}

		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("http listen: %w", err)
	}
}

func ProbeHTTP(addr string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get("http://" + addr + "/health") //nolint:noctx
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected health status: %s", resp.Status)
	}

	return nil
}
