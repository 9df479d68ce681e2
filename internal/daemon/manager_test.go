// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/goleak"

	"github.com/ManuGH/animator/internal/auth"
	"github.com/ManuGH/animator/internal/config"
	"github.com/ManuGH/animator/internal/host"
	"github.com/ManuGH/animator/internal/log"
)

// contains is a helper to check if a string contains a substring
func contains(s, substr string) bool {
	return strings.Contains(s, substr)
}

func reserveListenAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve listen addr: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	return addr
}

func waitForListen(addr string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	return errors.New("listen timeout")
}

func testServerConfig(addr string) config.ServerConfig {
	return config.ServerConfig{
		ListenAddr:      addr,
		ReadTimeout:     1 * time.Second,
		WriteTimeout:    1 * time.Second,
		ShutdownTimeout: 2 * time.Second,
	}
}

func newTestHost(t *testing.T) *host.Host {
	t.Helper()
	cfg := config.Defaults()
	cfg.Controller.ScanInterval = 10 * time.Millisecond
	h, err := host.New(host.ConfigFrom(cfg), host.WithLogger(zerolog.Nop()))
	if err != nil {
		t.Fatalf("host.New() error = %v", err)
	}
	return h
}

func TestNewManager_ValidDeps(t *testing.T) {
	deps := Deps{
		Logger:     log.WithComponent("test"),
		APIHandler: http.NotFoundHandler(),
	}

	mgr, err := NewManager(testServerConfig("127.0.0.1:0"), deps)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	if mgr == nil {
		t.Fatal("NewManager() returned nil manager")
	}
}

func TestNewManager_MissingLogger(t *testing.T) {
	deps := Deps{
		Logger:     zerolog.Nop(), // Disabled logger
		APIHandler: http.NotFoundHandler(),
	}

	_, err := NewManager(config.ServerConfig{ListenAddr: "127.0.0.1:0"}, deps)
	if err == nil {
		t.Fatal("NewManager() expected error for missing logger, got nil")
	}
	if !errors.Is(err, ErrMissingLogger) {
		t.Errorf("NewManager() error = %v, want %v", err, ErrMissingLogger)
	}
}

func TestNewManager_MissingAPIHandler(t *testing.T) {
	deps := Deps{
		Logger:     log.WithComponent("test"),
		APIHandler: nil,
	}

	_, err := NewManager(config.ServerConfig{ListenAddr: "127.0.0.1:0"}, deps)
	if err == nil {
		t.Fatal("NewManager() expected error for missing API handler, got nil")
	}
	if !contains(err.Error(), "API handler is required") {
		t.Errorf("NewManager() error = %v, want error containing 'API handler is required'", err)
	}
}

func TestManager_StartStop_OK(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	deps := Deps{
		Logger:     log.WithComponent("test"),
		APIHandler: handler,
	}

	mgr, err := NewManager(testServerConfig("127.0.0.1:0"), deps)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- mgr.Start(ctx)
	}()

	// Give server a moment to start
	time.Sleep(100 * time.Millisecond)

	cancel()

	select {
	case err := <-errChan:
		if err != nil {
			t.Errorf("Start() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after context cancellation")
	}
}

func TestManager_DrivesHostAndTerminatesDomains(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	h := newTestHost(t)
	sys := auth.ContextWithPrincipal(context.Background(), auth.System())
	d, err := h.Ensure(sys, "orders", false, false)
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}

	addr := reserveListenAddr(t)
	deps := Deps{
		Logger:     log.WithComponent("test"),
		APIHandler: http.NotFoundHandler(),
		Host:       h,
	}
	mgr, err := NewManager(testServerConfig(addr), deps)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	var hookRan bool
	mgr.RegisterShutdownHook("flag", func(context.Context) error {
		// Domains are already terminated when hooks run.
		hookRan = h.Len() == 0
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- mgr.Start(ctx)
	}()

	if err := waitForListen(addr, 2*time.Second); err != nil {
		t.Fatalf("server did not start listening: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for h.Controller().LastScan().IsZero() {
		if time.Now().After(deadline) {
			t.Fatal("controller never scanned")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()

	select {
	case err := <-errChan:
		if err != nil {
			t.Errorf("Start() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after context cancellation")
	}

	if d.Animated() {
		t.Error("domain still animated after shutdown")
	}
	if !hookRan {
		t.Error("shutdown hook did not observe terminated domains")
	}
	if _, err := h.Create(sys, "late"); err == nil {
		t.Error("Create() after shutdown succeeded")
	}
}

func TestManager_Shutdown_TimesOut(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	// Create a handler that blocks on shutdown
	requestStarted := make(chan struct{})
	releaseHandler := make(chan struct{})
	handler := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-requestStarted:
		default:
			close(requestStarted)
		}
		select {
		case <-r.Context().Done():
		case <-releaseHandler:
		}
	})

	deps := Deps{
		Logger:     log.WithComponent("test"),
		APIHandler: handler,
	}

	serverCfg := testServerConfig(reserveListenAddr(t))
	serverCfg.ShutdownTimeout = 100 * time.Millisecond // Very short timeout

	mgr, err := NewManager(serverCfg, deps)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- mgr.Start(ctx)
	}()

	if err := waitForListen(serverCfg.ListenAddr, 2*time.Second); err != nil {
		t.Fatalf("server did not start listening: %v", err)
	}

	requestDone := make(chan struct{})
	go func() {
		defer close(requestDone)
		client := &http.Client{
			Transport: &http.Transport{
				DisableKeepAlives: true,
			},
		}
		req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "http://"+serverCfg.ListenAddr, nil)
		resp, err := client.Do(req)
		if err == nil && resp != nil {
			_ = resp.Body.Close()
		}
	}()

	select {
	case <-requestStarted:
		// Request is in-flight; shutdown should now hit timeout path.
	case <-time.After(2 * time.Second):
		t.Fatal("expected in-flight request before shutdown")
	}

	cancel()

	select {
	case err := <-errChan:
		if err == nil {
			t.Fatal("expected shutdown timeout error, got nil")
		}
		if !contains(err.Error(), "shutdown errors") && !contains(err.Error(), "context deadline exceeded") {
			t.Fatalf("unexpected shutdown error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return after context cancellation")
	}

	close(releaseHandler)

	select {
	case <-requestDone:
	case <-time.After(2 * time.Second):
		t.Fatal("blocked request did not terminate after shutdown")
	}
}

func TestManager_Shutdown_NotStarted(t *testing.T) {
	deps := Deps{
		Logger:     log.WithComponent("test"),
		APIHandler: http.NotFoundHandler(),
	}

	mgr, err := NewManager(testServerConfig("127.0.0.1:0"), deps)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	err = mgr.Shutdown(context.Background())
	if !errors.Is(err, ErrManagerNotStarted) {
		t.Errorf("Shutdown() error = %v, want %v", err, ErrManagerNotStarted)
	}

	//nolint:staticcheck // nil context is the case under test
	if err := mgr.Shutdown(nil); !errors.Is(err, ErrNilShutdownContext) {
		t.Errorf("Shutdown(nil) error = %v, want %v", err, ErrNilShutdownContext)
	}
}

func TestManager_HookErrorsAreJoined(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	deps := Deps{
		Logger:     log.WithComponent("test"),
		APIHandler: http.NotFoundHandler(),
	}
	mgr, err := NewManager(testServerConfig("127.0.0.1:0"), deps)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	var order []string
	boom := errors.New("boom")
	mgr.RegisterShutdownHook("first", func(context.Context) error {
		order = append(order, "first")
		return nil
	})
	mgr.RegisterShutdownHook("second", func(context.Context) error {
		order = append(order, "second")
		return boom
	})

	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)
	go func() {
		errChan <- mgr.Start(ctx)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errChan:
		if !errors.Is(err, boom) {
			t.Fatalf("Start() error = %v, want %v", err, boom)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after context cancellation")
	}
	if strings.Join(order, ",") != "second,first" {
		t.Errorf("hooks ran in order %v, want LIFO", order)
	}
}

func TestManager_PropagatesListenErrors(t *testing.T) {
	// First, start a server on a known port
	testServer := httptest.NewServer(http.NotFoundHandler())
	defer testServer.Close()

	deps := Deps{
		Logger:     log.WithComponent("test"),
		APIHandler: http.NotFoundHandler(),
	}

	serverCfg := testServerConfig(testServer.Listener.Addr().String())
	serverCfg.ShutdownTimeout = time.Second

	mgr, err := NewManager(serverCfg, deps)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err = mgr.Start(ctx)
	if err == nil {
		t.Error("Start() expected error for port conflict, got nil")
	}
}
