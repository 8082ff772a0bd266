package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHealthCmd(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	addr := strings.TrimPrefix(ts.URL, "http://")

	out, err := executeRoot(t, nil, "health", "--addr", addr)
	if err != nil {
		t.Fatalf("health: %v", err)
	}

	if out != "ok\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestHealthCmd_Unreachable(t *testing.T) {
	if _, err := executeRoot(t, nil, "health", "--addr", "127.0.0.1:1"); err == nil {
		t.Fatal("expected error for unreachable server")
	}
}
