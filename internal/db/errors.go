package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrNoRows        = errors.New("db: no rows")
	ErrTableNotFound = errors.New("db: table not found")
	ErrDuplicate     = errors.New("db: duplicate entry")
)

// Op constants name the failing operation for error context.
const (
	OpExecute = "execute"
	OpSession = "session"
	OpPing    = "ping"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
