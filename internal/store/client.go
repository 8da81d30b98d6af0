package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/limbo/goalbot/pkg/cleanup"
)

// Pool is the surface the client needs from pgxpool. pgxmock satisfies it
// too, which is what the repository tests run against.
type Pool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Executor is the statement surface shared by the pool and an open
// transaction. Repository methods that may run inside a caller's
// transaction take an Executor instead of touching the pool directly.
type Executor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Config interface {
	ConnString() string
}

type PGCfg struct {
	Address  string
	Username string
	Password string
	DB       string
	// Pool bounds. Zero values fall back to 3/15.
	MinConns int32
	MaxConns int32
}

func (cfg *PGCfg) ConnString() string {
	minConns, maxConns := cfg.MinConns, cfg.MaxConns
	if minConns == 0 {
		minConns = 3
	}
	if maxConns == 0 {
		maxConns = 15
	}
	return fmt.Sprintf("postgresql://%s:%s@%s/%s?pool_min_conns=%d&pool_max_conns=%d",
		cfg.Username, cfg.Password, cfg.Address, cfg.DB, minConns, maxConns)
}

// Client wraps a bounded pgx connection pool. The pool is built lazily on
// first use; concurrent first callers converge on a single initialization.
type Client struct {
	cfg  Config
	once sync.Once

	pool    Pool
	initErr error
}

func New(cfg Config) *Client {
	return &Client{cfg: cfg}
}

// NewWithPool skips lazy initialization and uses the given pool. Used by
// tests and by anything that already owns a pool.
func NewWithPool(pool Pool) *Client {
	return &Client{pool: pool}
}

func (c *Client) acquire(ctx context.Context) (Pool, error) {
	c.once.Do(func() {
		if c.pool != nil {
			return
		}
		pool, err := pgxpool.New(ctx, c.cfg.ConnString())
		if err != nil {
			c.initErr = errors.New("creating store pool error: " + err.Error())
			return
		}
		c.pool = pool
		cleanup.Register(&cleanup.Job{
			Name: "closing store pool",
			F: func() error {
				pool.Close()
				return nil
			},
		})
	})
	if c.initErr != nil {
		return nil, c.initErr
	}
	return c.pool, nil
}

func (c *Client) Ping(ctx context.Context) error {
	pool, err := c.acquire(ctx)
	if err != nil {
		return err
	}
	return pool.Ping(ctx)
}

// Execute runs a statement and reports the number of affected rows.
func (c *Client) Execute(ctx context.Context, sql string, args ...any) (int64, error) {
	pool, err := c.acquire(ctx)
	if err != nil {
		return 0, err
	}
	ct, err := pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

// FetchScalar scans the first column of the first row into dest.
func (c *Client) FetchScalar(ctx context.Context, dest any, sql string, args ...any) error {
	pool, err := c.acquire(ctx)
	if err != nil {
		return err
	}
	return pool.QueryRow(ctx, sql, args...).Scan(dest)
}

// FetchScalarTimeout is FetchScalar bounded by timeout. Zero means no bound.
func (c *Client) FetchScalarTimeout(ctx context.Context, timeout time.Duration, dest any, sql string, args ...any) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return c.FetchScalar(ctx, dest, sql, args...)
}

// WithTx runs body inside a transaction: commit on nil, rollback on error
// or panic. The connection goes back to the pool on every exit path.
func (c *Client) WithTx(ctx context.Context, body func(tx pgx.Tx) error) error {
	pool, err := c.acquire(ctx)
	if err != nil {
		return err
	}
	tx, err := pool.Begin(ctx)
	if err != nil {
		return errors.New("beginning transaction error: " + err.Error())
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()
	if err := body(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// errRow defers an acquire failure to Scan, matching pgx.Row's contract.
type errRow struct {
	err error
}

func (r errRow) Scan(...any) error { return r.err }

// Exec, Query and QueryRow make *Client an Executor, so repositories use
// one statement surface whether they run on the pool or inside WithTx.

func (c *Client) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	pool, err := c.acquire(ctx)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	return pool.Exec(ctx, sql, arguments...)
}

func (c *Client) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	pool, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	return pool.Query(ctx, sql, args...)
}

func (c *Client) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	pool, err := c.acquire(ctx)
	if err != nil {
		return errRow{err: err}
	}
	return pool.QueryRow(ctx, sql, args...)
}
