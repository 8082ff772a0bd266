package server_test

import (
	"context"
	"log/slog"
	"net/http"
	"testing"

	"github.com/wabradshaw/wordgenerator/internal/server"
)

// capturingHandler captures all slog records during a test.
type capturingHandler struct {
	records []slog.Record
}

func (c *capturingHandler) Enabled(_ context.Context, _ slog.Level) bool { return true }
func (c *capturingHandler) Handle(_ context.Context, r slog.Record) error {
	c.records = append(c.records, r)
	return nil
}
func (c *capturingHandler) WithAttrs(attrs []slog.Attr) slog.Handler { return c }
func (c *capturingHandler) WithGroup(name string) slog.Handler       { return c }

func (c *capturingHandler) attrMap(idx int) map[string]any {
	m := make(map[string]any)
	c.records[idx].Attrs(func(a slog.Attr) bool {
		m[a.Key] = a.Value.Any()
		return true
	})

	return m
}

func (c *capturingHandler) find(msg string) (map[string]any, slog.Level, bool) {
	for i, r := range c.records {
		if r.Message == msg {
			return c.attrMap(i), r.Level, true
		}
	}

	return nil, 0, false
}

func TestGenerate_LogsCountAndSteps(t *testing.T) {
	capture := &capturingHandler{}
	h := server.NewHandler(
		&stubGenerator{words: []string{"ZORP"}},
		server.WithLogger(slog.New(capture)),
	)

	rec := serve(h, http.MethodPost, "/generate", `{"count":1,"max_steps":5}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}

	attrs, level, ok := capture.find("generation complete")
	if !ok {
		t.Fatalf("no generation log record among %d records", len(capture.records))
	}

	if level != slog.LevelInfo {
		t.Errorf("level = %v; want INFO", level)
	}

	if attrs["count"] != int64(1) {
		t.Errorf("count = %v; want 1", attrs["count"])
	}

	if attrs["max_steps"] != int64(5) {
		t.Errorf("max_steps = %v; want 5", attrs["max_steps"])
	}

	if _, ok := attrs["duration_ms"]; !ok {
		t.Error("want duration_ms attribute")
	}
}

func TestGenerate_LogsFailureAtError(t *testing.T) {
	capture := &capturingHandler{}
	h := server.NewHandler(
		&stubGenerator{err: context.Canceled},
		server.WithLogger(slog.New(capture)),
	)

	rec := serve(h, http.MethodPost, "/generate", `{}`)
	if rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("want 504, got %d", rec.Code)
	}

	if _, level, ok := capture.find("generation timed out"); !ok || level != slog.LevelWarn {
		t.Fatalf("want WARN generation timed out record, got ok=%v level=%v", ok, level)
	}
}

func TestIPA_LogsInputLength(t *testing.T) {
	capture := &capturingHandler{}
	h := server.NewHandler(nil, server.WithLogger(slog.New(capture)))

	rec := serve(h, http.MethodPost, "/ipa", `{"arpabet":"K AE 1 T"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}

	attrs, _, ok := capture.find("ipa mapped")
	if !ok {
		t.Fatal("no ipa log record")
	}

	if attrs["input_len"] != int64(len("K AE 1 T")) {
		t.Errorf("input_len = %v; want %d", attrs["input_len"], len("K AE 1 T"))
	}
}
