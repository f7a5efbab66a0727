package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/isdelr/shelf-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, port int) *config.Config {
	t.Helper()
	return &config.Config{
		ServerPort:     port,
		DatabaseURL:    "sqlite://" + filepath.Join(t.TempDir(), "shelf.db"),
		JWTSecret:      "main-test-secret",
		Environment:    "test",
		AllowedOrigins: []string{"*"},
	}
}

func TestRun_ReturnsListenErrorInsteadOfExiting(t *testing.T) {
	busy, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	t.Cleanup(func() { busy.Close() })

	err = run(context.Background(), testConfig(t, busy.Addr().(*net.TCPAddr).Port))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen")
}

func TestRun_ShutsDownWhenContextIsCancelled(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- run(ctx, testConfig(t, port)) }()

	url := fmt.Sprintf("http://127.0.0.1:%d/health", port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("run did not return after cancellation")
	}
}

func TestRun_ReportsStoreErrors(t *testing.T) {
	cfg := testConfig(t, 0)
	cfg.DatabaseURL = "mongodb://localhost/shelf"

	err := run(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to initialize database")
}
