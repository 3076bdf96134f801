package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/cupidcall/cupid-bridge/pkg/bridge/config"
	"github.com/cupidcall/cupid-bridge/pkg/bridge/server"
	"github.com/cupidcall/cupid-bridge/pkg/bridge/store"
)

func TestRunMainReturnsNonZeroWhenConfigLoadFails(t *testing.T) {
	t.Parallel()

	var stderr bytes.Buffer
	exitCode := runMain(context.Background(), &stderr, bridgeDeps{
		loadConfig: func() (config.Config, error) {
			return config.Config{}, errors.New("boom")
		},
		newServer: func(cfg config.Config, logger *slog.Logger, callLog *store.Store) *server.Server {
			t.Fatal("newServer should not be called when config load fails")
			return nil
		},
		signalNotify: func(c chan<- os.Signal, sig ...os.Signal) {},
		signalStop:   func(c chan<- os.Signal) {},
	})

	if exitCode != 1 {
		t.Fatalf("exitCode=%d, want 1", exitCode)
	}
	if stderr.String() == "" {
		t.Fatal("expected stderr output for startup error")
	}
}

func TestRunBridgeFailsWhenCallLogUnreachable(t *testing.T) {
	t.Parallel()

	deps := defaultBridgeDeps()
	deps.loadConfig = func() (config.Config, error) {
		return config.Config{
			Addr:        "127.0.0.1:0",
			DatabaseURL: "postgres://unused",
		}, nil
	}
	deps.openStore = func(ctx context.Context, databaseURL string) (*store.Store, error) {
		return nil, errors.New("connection refused")
	}
	deps.signalNotify = func(c chan<- os.Signal, sig ...os.Signal) {}
	deps.signalStop = func(c chan<- os.Signal) {}

	err := runBridge(context.Background(), nil, deps)
	if err == nil || !strings.Contains(err.Error(), "open call log") {
		t.Fatalf("err = %v, want call log open failure", err)
	}
}

func TestRunBridgeStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	deps := defaultBridgeDeps()
	deps.loadConfig = func() (config.Config, error) {
		return config.Config{
			Addr:                "127.0.0.1:0",
			PublicDomain:        "https://bridge.example.com",
			XAIAPIKey:           "key",
			RealtimeURL:         "wss://api.x.ai/v1/realtime",
			PrimaryModel:        "grok-4-realtime",
			PreviewSampleRate:   24000,
			PreviewTimeout:      time.Second,
			ReadHeaderTimeout:   time.Second,
			ShutdownGracePeriod: time.Second,
		}, nil
	}
	deps.signalNotify = func(c chan<- os.Signal, sig ...os.Signal) {}
	deps.signalStop = func(c chan<- os.Signal) {}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runBridge(ctx, nil, deps) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("runBridge did not return after cancel")
	}
}

func TestBuildHTTPServerUsesConfiguredAddress(t *testing.T) {
	t.Parallel()

	cfg := config.Config{Addr: "127.0.0.1:9999", ReadHeaderTimeout: 2 * time.Second}
	srv := buildHTTPServer(cfg, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	if srv.Addr != cfg.Addr {
		t.Fatalf("Addr=%q, want %q", srv.Addr, cfg.Addr)
	}
	if srv.ReadHeaderTimeout != cfg.ReadHeaderTimeout {
		t.Fatalf("ReadHeaderTimeout=%v", srv.ReadHeaderTimeout)
	}
}
