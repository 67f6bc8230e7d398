// Package server owns the gateway's process lifecycle: it supervises the
// HTTP listener, the pool fault channel, and the periodic database probe,
// and drives the Starting -> Serving -> Draining -> Stopped state machine.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"graphgate/internal/config"
	"graphgate/internal/metrics"
	"graphgate/internal/pool"
)

// State is the lifecycle controller's current phase.
type State int32

const (
	StateStarting State = iota
	StateServing
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateServing:
		return "serving"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Server supervises the listener and the pool for the process's entire life.
type Server struct {
	cfg     *config.Config
	handler http.Handler
	pool    *pool.Manager
	logger  *slog.Logger
	state   atomic.Int32
	probe   *cron.Cron
}

// New creates the lifecycle controller.
func New(cfg *config.Config, handler http.Handler, p *pool.Manager, logger *slog.Logger) *Server {
	return &Server{cfg: cfg, handler: handler, pool: p, logger: logger}
}

// State returns the controller's current phase.
func (s *Server) State() State {
	return State(s.state.Load())
}

func (s *Server) setState(st State) {
	s.state.Store(int32(st))
	s.logger.Info("lifecycle state", "state", st.String())
}

// Run binds the listener and serves until ctx is cancelled (termination
// signal) or an unrecoverable pool fault arrives. On cancellation it stops
// accepting new connections, lets in-flight requests finish, drains the pool,
// and returns nil; a returned error means the process must exit non-zero.
func (s *Server) Run(ctx context.Context) error {
	s.setState(StateStarting)

	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", s.cfg.ListenAddr, err)
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.startProbe()
	defer s.stopProbe()

	s.setState(StateServing)
	s.logger.Info("listening", "addr", ln.Addr().String(), "env", s.cfg.Env)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	// Pool faults are fatal for the whole process: fail fast rather than
	// serve degraded.
	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case fault := <-s.pool.Faults():
			s.logger.Error("unrecoverable pool fault", "error", fault)
			return fault
		}
	})

	// Shutdown sequence: listener first, then the pool. Each step is
	// error-tolerant: a drain failure is logged, not re-raised, and the
	// process still proceeds to exit.
	g.Go(func() error {
		<-gctx.Done()
		s.setState(StateDraining)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.DrainTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("listener shutdown incomplete", "error", err)
		}
		if err := s.pool.Drain(s.cfg.DrainTimeout); err != nil {
			s.logger.Warn("pool drain incomplete", "error", err)
		}
		s.setState(StateStopped)
		return nil
	})

	return g.Wait()
}

// startProbe schedules the advisory database probe. Its result feeds metrics
// and logs only; it never tears the pool down.
func (s *Server) startProbe() {
	s.probe = cron.New()
	_, err := s.probe.AddFunc(s.cfg.HealthProbeSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if _, err := s.pool.Health(ctx); err != nil {
			metrics.DatabaseHealthy.Set(0)
			s.logger.Warn("database probe failed", "error", err)
		} else {
			metrics.DatabaseHealthy.Set(1)
		}

		stat := s.pool.Stat()
		metrics.PoolAcquiredConns.Set(float64(stat.AcquiredConns()))
		metrics.PoolIdleConns.Set(float64(stat.IdleConns()))
		metrics.PoolTotalConns.Set(float64(stat.TotalConns()))
	})
	if err != nil {
		s.logger.Warn("invalid health probe schedule, probe disabled",
			"schedule", s.cfg.HealthProbeSchedule, "error", err)
		return
	}
	s.probe.Start()
}

func (s *Server) stopProbe() {
	if s.probe != nil {
		s.probe.Stop()
	}
}
