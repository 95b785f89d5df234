package db

import "errors"

// ErrKeyNotFound is returned when a key does not exist.
var ErrKeyNotFound = errors.New("db: key not found")

// Command names reported in Error.Op.
const (
	OpGet  = "GET"
	OpSet  = "SET"
	OpPing = "PING"
)

// Error names the failed command.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return "db " + e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
