package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/wabradshaw/wordgenerator/internal/config"
)

type fixedGenerator []string

func (g fixedGenerator) Generate(_ context.Context, count, _ int) ([]string, error) {
	return g[:min(count, len(g))], nil
}

func freeAddr(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	addr := ln.Addr().String()
	ln.Close()

	return addr
}

func TestStart_LifecycleHealthGenerateAndShutdown(t *testing.T) {
	addr := freeAddr(t)

	cfg := config.DefaultConfig()
	cfg.Server.ListenAddr = addr
	cfg.Vocab.TokenSet = config.TokenSetPhonemesSplit

	s := New(cfg, fixedGenerator{"K AE 1 T", "D AO 1 G"}).WithShutdownTimeout(2 * time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)

	go func() {
		errCh <- s.Start(ctx)
	}()

	var err error
	for range 50 {
		if err = ProbeHTTP(addr); err == nil {
			break
		}

		time.Sleep(20 * time.Millisecond)
	}

	if err != nil {
		t.Fatalf("server never became ready: %v", err)
	}

	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Post(fmt.Sprintf("http://%s/generate", addr), "application/json", strings.NewReader(`{"count":2}`))
	if err != nil {
		t.Fatalf("POST /generate: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/generate status = %d; want 200", resp.StatusCode)
	}

	var body generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode /generate: %v", err)
	}

	if len(body.IPA) != 2 || body.IPA[1] != "ˈdɔɡ" {
		t.Errorf("ipa = %q; want phoneme output rendered as IPA", body.IPA)
	}

	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Start() returned error on shutdown: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return within 5s of context cancel")
	}
}

func TestStart_InvalidTokenSet(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Vocab.TokenSet = "semaphore"

	if err := New(cfg, fixedGenerator{}).Start(context.Background()); err == nil {
		t.Fatal("expected error for invalid token set")
	}
}

func TestStart_MissingModel(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Paths.ModelManifest = t.TempDir() + "/none.json"
	cfg.Runtime.ORTLibraryPath = t.TempDir() + "/none.so"

	err := New(cfg, nil).Start(context.Background())
	if err == nil || !strings.Contains(err.Error(), "initialize generator") {
		t.Fatalf("expected generator init error, got %v", err)
	}
}

func TestProbeHTTP_Unreachable(t *testing.T) {
	if err := ProbeHTTP(freeAddr(t)); err == nil {
		t.Fatal("expected probe error against closed port")
	}
}
