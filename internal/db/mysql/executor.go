// Package mysql implements db.Store over the MySQL wire protocol the
// engine speaks, using database/sql with the go-sql-driver.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/kailas-cloud/vecsql/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Config holds connection parameters. The pool fields are optional;
// zero leaves the database/sql default in place.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store implements db.Store via database/sql.
type Store struct {
	pool *sql.DB
}

// NewStore opens a connection pool for the given DSN.
func NewStore(cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	pool, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		pool.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		pool.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return &Store{pool: pool}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.PingContext(ctx); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// WaitForReady polls Ping until the engine responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// Close shuts down the pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Execute runs one statement against the pool.
func (s *Store) Execute(ctx context.Context, query string, args ...any) (*db.Result, error) {
	return execute(ctx, s.pool, query, args...)
}

// Session runs fn against a single pinned connection, so session
// variables set by one statement are visible to the next.
func (s *Store) Session(ctx context.Context, fn func(db.Executor) error) error {
	conn, err := s.pool.Conn(ctx)
	if err != nil {
		return &db.Error{Op: db.OpSession, Err: err}
	}
	defer conn.Close()
	return fn(&sessionExecutor{conn: conn})
}

type sessionExecutor struct {
	conn *sql.Conn
}

func (e *sessionExecutor) Execute(ctx context.Context, query string, args ...any) (*db.Result, error) {
	return execute(ctx, e.conn, query, args...)
}

func execute(ctx context.Context, q querier, query string, args ...any) (*db.Result, error) {
	if returnsRows(query) {
		rows, err := q.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, wrapErr(err)
		}
		defer rows.Close()
		return scanRows(rows)
	}

	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		affected = 0
	}
	return &db.Result{RowsAffected: affected}, nil
}

// returnsRows reports whether a statement produces a result set.
func returnsRows(query string) bool {
	head := strings.ToUpper(strings.TrimSpace(query))
	for _, prefix := range []string{"SELECT", "SHOW", "DESCRIBE", "DESC ", "EXPLAIN"} {
		if strings.HasPrefix(head, prefix) {
			return true
		}
	}
	return false
}

func scanRows(rows *sql.Rows) (*db.Result, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, wrapErr(err)
	}

	result := &db.Result{Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, wrapErr(err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err)
	}
	return result, nil
}

// MySQL server error codes this layer maps to sentinels.
const (
	codeTableNotFound  = 1146
	codeDuplicateEntry = 1062
)

func wrapErr(err error) error {
	var myErr *gomysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case codeTableNotFound:
			return &db.Error{Op: db.OpExecute, Err: fmt.Errorf("%w: %v", db.ErrTableNotFound, err)}
		case codeDuplicateEntry:
			return &db.Error{Op: db.OpExecute, Err: fmt.Errorf("%w: %v", db.ErrDuplicate, err)}
		}
	}
	return &db.Error{Op: db.OpExecute, Err: err}
}
