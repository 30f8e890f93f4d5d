package connect

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// PoolConfig holds the parameters for opening one of the service stores.
type PoolConfig struct {
	// Path is the SQLite database file. The parent directory must exist.
	Path string

	// PoolSize defaults to max(runtime.NumCPU(), 4) when zero or negative.
	PoolSize int

	// Schema is executed once when the pool is opened.
	Schema string

	Logger *slog.Logger
}

// Pool is a fixed-size set of SQLite connections. Connections are not safe
// for concurrent use: each request takes its own and puts it back.
type Pool struct {
	inner  *sqlitex.Pool
	logger *slog.Logger
	path   string
}

// OpenPool opens the database, applies the connection pragmas to every
// connection and runs the schema script.
func OpenPool(ctx context.Context, cfg PoolConfig) (*Pool, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("connect: Path is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = max(runtime.NumCPU(), 4)
	}

	inner, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("connect: opening %s: %w", cfg.Path, err)
	}

	p := &Pool{inner: inner, logger: logger, path: cfg.Path}

	if cfg.Schema != "" {
		if err := p.applySchema(ctx, cfg.Schema); err != nil {
			inner.Close()
			return nil, err
		}
	}

	logger.Info("sqlite pool opened",
		"path", cfg.Path,
		"pool_size", poolSize,
	)
	return p, nil
}

func (p *Pool) applySchema(ctx context.Context, schema string) error {
	conn, err := p.Take(ctx)
	if err != nil {
		return err
	}
	defer p.Put(conn)

	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("connect: applying schema to %s: %w", p.path, err)
	}
	return nil
}

// Take borrows a connection, blocking until one is free or ctx is done.
// The caller must Put it back on every path.
func (p *Pool) Take(ctx context.Context) (*sqlite.Conn, error) {
	conn, err := p.inner.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect: take: %w", err)
	}
	return conn, nil
}

// Put returns a connection to the pool. Safe to call with nil.
func (p *Pool) Put(conn *sqlite.Conn) {
	if conn == nil {
		return
	}
	p.inner.Put(conn)
}

// Close blocks until every borrowed connection has been returned.
func (p *Pool) Close() error {
	if err := p.inner.Close(); err != nil {
		p.logger.Error("sqlite pool close error", "path", p.path, "error", err)
		return fmt.Errorf("connect: closing %s: %w", p.path, err)
	}
	p.logger.Info("sqlite pool closed", "path", p.path)
	return nil
}

// Foreign keys are on: deleting an event cascades to its tickets and
// deleting a user cascades to its tokens.
func prepareConnection(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}

	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("connect: %s: %w", pragma, err)
		}
	}
	return nil
}
