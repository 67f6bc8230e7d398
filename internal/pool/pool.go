// Package pool owns the bounded PostgreSQL connection pool shared by the
// health endpoints, the schema endpoint, and the schema-graph engine.
package pool

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"graphgate/internal/config"
	"graphgate/internal/domain"
)

// Health is the result of a liveness round-trip against the database.
type Health struct {
	DBTime time.Time
}

// Column describes one column of an introspected table.
type Column struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

// Table groups the columns of one introspected table.
type Table struct {
	Columns []Column `json:"columns"`
}

// Manager wraps a pgx pool with the gateway's acquire/release/drain semantics.
// It is the only shared mutable resource in the process; all methods are safe
// for concurrent use.
type Manager struct {
	pool           *pgxpool.Pool
	acquireTimeout time.Duration
	logger         *slog.Logger
	faults         chan error

	// acquired reports the number of checked-out connections. A field so
	// drain tests can simulate stuck connections without a live database.
	acquired func() int32
}

// New parses the connection string, applies the pool bounds from cfg, and
// constructs the manager. Connections are established lazily; an unreachable
// database surfaces on first acquire, not here.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Manager, error) {
	pc, err := buildPoolConfig(cfg)
	if err != nil {
		return nil, err
	}
	p, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	return &Manager{
		pool:           p,
		acquireTimeout: cfg.PoolAcquireTimeout,
		logger:         logger,
		faults:         make(chan error, 1),
		acquired:       func() int32 { return p.Stat().AcquiredConns() },
	}, nil
}

func buildPoolConfig(cfg *config.Config) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	pc.MaxConns = cfg.PoolMaxConns
	pc.MaxConnIdleTime = cfg.PoolIdleTimeout
	return pc, nil
}

// Acquire obtains a pooled connection, waiting up to the configured acquire
// timeout. An elapsed timeout yields *domain.PoolExhaustedError; a failure to
// reach the database is additionally reported on the fault channel. This is
// the data path; health probes use the quiet variant so an advisory check
// never takes the process down.
func (m *Manager) Acquire(ctx context.Context) (*pgxpool.Conn, error) {
	return m.acquire(ctx, true)
}

func (m *Manager) acquire(ctx context.Context, reportFaults bool) (*pgxpool.Conn, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, m.acquireTimeout)
	defer cancel()

	conn, err := m.pool.Acquire(acquireCtx)
	if err != nil {
		return nil, m.classifyAcquireErr(ctx, err, reportFaults)
	}
	return conn, nil
}

// classifyAcquireErr maps a pgx acquire failure onto the gateway taxonomy.
// callerCtx distinguishes "our acquire timeout elapsed" from "the caller
// went away"; only the former is pool exhaustion.
func (m *Manager) classifyAcquireErr(callerCtx context.Context, err error, reportFaults bool) error {
	if errors.Is(err, context.DeadlineExceeded) && callerCtx.Err() == nil {
		return domain.ErrPoolExhausted(m.acquireTimeout)
	}
	if reportFaults && isConnectFault(err) {
		m.reportFault(err)
	}
	return fmt.Errorf("acquire connection: %w", err)
}

// Release returns a connection to the pool. When err indicates the connection
// itself is broken, the underlying conn is closed first so the pool discards
// it instead of handing it to the next caller. Safe on nil.
func (m *Manager) Release(conn *pgxpool.Conn, err error) {
	if conn == nil {
		return
	}
	if err != nil && isBrokenConn(err) {
		_ = conn.Conn().Close(context.Background())
	}
	conn.Release()
}

// Faults exposes unrecoverable pool-level faults. The lifecycle controller
// treats anything received here as fatal for the whole process.
func (m *Manager) Faults() <-chan error {
	return m.faults
}

func (m *Manager) reportFault(err error) {
	select {
	case m.faults <- domain.ErrPoolFault(err):
	default: // a fault is already pending; one is enough to stop the process
	}
}

// Health performs a trivial round-trip. The result is advisory: a failure is
// returned to the caller but is never reported as a process-fatal fault.
func (m *Manager) Health(ctx context.Context) (Health, error) {
	conn, err := m.acquire(ctx, false)
	if err != nil {
		return Health{}, err
	}
	var h Health
	err = conn.QueryRow(ctx, "SELECT now()").Scan(&h.DBTime)
	m.Release(conn, err)
	if err != nil {
		return Health{}, domain.ErrQuery("health probe", err)
	}
	return h, nil
}

// TableColumns introspects the allow-listed tables in the public schema.
// Tables absent from the database are simply omitted from the result.
// Failures surface to the caller as normal query errors, not process faults.
func (m *Manager) TableColumns(ctx context.Context, tables []string) (map[string]Table, error) {
	out := make(map[string]Table, len(tables))
	if len(tables) == 0 {
		return out, nil
	}

	conn, err := m.acquire(ctx, false)
	if err != nil {
		return nil, err
	}

	const q = `
		SELECT table_name, column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = ANY($1)
		ORDER BY table_name, ordinal_position`

	rows, err := conn.Query(ctx, q, tables)
	if err != nil {
		m.Release(conn, err)
		return nil, domain.ErrQuery("introspect columns", err)
	}
	for rows.Next() {
		var tableName, colName, dataType, nullable string
		if err := rows.Scan(&tableName, &colName, &dataType, &nullable); err != nil {
			rows.Close()
			m.Release(conn, err)
			return nil, domain.ErrQuery("scan column row", err)
		}
		tbl := out[tableName]
		tbl.Columns = append(tbl.Columns, Column{
			Name:     colName,
			Type:     dataType,
			Nullable: nullable == "YES",
		})
		out[tableName] = tbl
	}
	err = rows.Err()
	m.Release(conn, err)
	if err != nil {
		return nil, domain.ErrQuery("introspect columns", err)
	}
	return out, nil
}

// Stat exposes pool statistics for metrics collection.
func (m *Manager) Stat() *pgxpool.Stat {
	return m.pool.Stat()
}

// Drain waits up to timeout for all checked-out connections to return, then
// closes the pool. When connections are still out after the timeout it reports
// how many failed to return; the pool is then closed in the background so
// shutdown can proceed.
func (m *Manager) Drain(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for m.acquired() > 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}

	if out := m.acquired(); out > 0 {
		go m.pool.Close()
		return fmt.Errorf("drain: %d connections still checked out after %s", out, timeout)
	}
	m.pool.Close()
	return nil
}

// isConnectFault reports whether err means the database itself is unreachable.
func isConnectFault(err error) bool {
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// isBrokenConn reports whether err indicates the individual connection is no
// longer usable and must not be returned to the pool.
func isBrokenConn(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
