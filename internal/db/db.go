package db

import (
	"context"
	"time"
)

// Result is a normalized result set. DML statements report affected
// rows and no columns.
type Result struct {
	Columns      []string
	Rows         [][]any
	RowsAffected int64
}

// Executor runs one SQL statement with positional parameters.
// Parameter binding is always 1:1 with placeholders; no caller value is
// ever interpolated into statement text.
type Executor interface {
	Execute(ctx context.Context, sql string, args ...any) (*Result, error)
}

// Sessioner pins a sequence of statements to one connection. Session
// variables (the hybrid-search protocol) are only visible within fn.
type Sessioner interface {
	Session(ctx context.Context, fn func(Executor) error) error
}

// Store is the full database facade.
type Store interface {
	Executor
	Sessioner
	Ping(ctx context.Context) error
	WaitForReady(ctx context.Context, timeout time.Duration) error
	Close() error
}
