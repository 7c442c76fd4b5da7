package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrIndexExists  = errors.New("db: index already exists")
	ErrInvalidIndex = errors.New("db: invalid index definition")
	ErrKeyNotFound  = errors.New("db: key not found")
)

// Op constants map to Redis/Valkey command names for error context.
const (
	OpCreateIndex = "FT.CREATE"
	OpIndexInfo   = "FT.INFO"
	OpSearch      = "FT.SEARCH"
	OpGet         = "GET"
	OpSet         = "SET"
	OpHGetAll     = "HGETALL"
	OpHSet        = "HSET"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
