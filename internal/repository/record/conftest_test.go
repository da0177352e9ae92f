package record

import (
	"context"

	"github.com/kailas-cloud/vecsql/internal/db"
)

type executedStatement struct {
	sql  string
	args []any
}

// mockExecutor routes statements to a handler and records everything
// it executed.
type mockExecutor struct {
	handler  func(sql string, args []any) (*db.Result, error)
	executed []executedStatement
}

func (m *mockExecutor) Execute(_ context.Context, sql string, args ...any) (*db.Result, error) {
	m.executed = append(m.executed, executedStatement{sql: sql, args: args})
	if m.handler != nil {
		return m.handler(sql, args)
	}
	return &db.Result{}, nil
}
