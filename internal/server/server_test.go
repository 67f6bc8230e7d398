package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphgate/internal/config"
	"graphgate/internal/domain"
	"graphgate/internal/pool"
)

func testConfig() *config.Config {
	return &config.Config{
		DatabaseURL:         "postgres://app:pw@localhost:5432/appdb",
		ListenAddr:          "127.0.0.1:0",
		Env:                 "development",
		PoolMaxConns:        2,
		PoolAcquireTimeout:  time.Second,
		PoolIdleTimeout:     time.Minute,
		DrainTimeout:        2 * time.Second,
		HealthProbeSchedule: "@every 1h", // effectively never during a test
	}
}

func newTestServer(t *testing.T, cfg *config.Config) (*Server, *pool.Manager) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p, err := pool.New(context.Background(), cfg, logger)
	require.NoError(t, err)
	return New(cfg, nil, p, logger), p
}

func waitForState(t *testing.T, s *Server, want State) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for s.State() != want {
		if time.Now().After(deadline) {
			t.Fatalf("state %s never reached, still %s", want, s.State())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestStateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "starting", StateStarting.String())
	assert.Equal(t, "serving", StateServing.String())
	assert.Equal(t, "draining", StateDraining.String())
	assert.Equal(t, "stopped", StateStopped.String())
}

func TestRun_GracefulShutdown(t *testing.T) {
	cfg := testConfig()
	s, _ := newTestServer(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	waitForState(t, s, StateServing)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err, "graceful shutdown exits clean")
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.Equal(t, StateStopped, s.State())
}

func TestRun_PoolFaultIsFatal(t *testing.T) {
	cfg := testConfig()
	cfg.DatabaseURL = "postgres://app:pw@127.0.0.1:1/appdb?connect_timeout=1"
	s, p := newTestServer(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	waitForState(t, s, StateServing)

	// A data-path acquire against an unreachable database reports a fault.
	_, err := p.Acquire(context.Background())
	require.Error(t, err)

	select {
	case err := <-done:
		require.Error(t, err)
		var fault *domain.PoolFaultError
		assert.True(t, errors.As(err, &fault))
	case <-time.After(5 * time.Second):
		t.Fatal("fault did not stop the server")
	}
}

func TestRun_BindFailure(t *testing.T) {
	// Occupy a port so the server cannot bind it.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close() //nolint:errcheck

	cfg := testConfig()
	cfg.ListenAddr = ln.Addr().String()
	s, _ := newTestServer(t, cfg)

	err = s.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bind")
}
