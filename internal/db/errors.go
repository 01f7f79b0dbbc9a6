package db

import (
	"errors"
	"strconv"
)

// ErrKeyNotFound is returned by Get for a missing key.
var ErrKeyNotFound = errors.New("db: key not found")

// Command names recorded in Error.
const (
	OpPing = "PING"
	OpGet  = "GET"
	OpSet  = "SET"
)

// Error carries the failed command and, for pipelines, how many keys it covered.
type Error struct {
	Op   string
	Keys int
	Err  error
}

func (e *Error) Error() string {
	if e.Keys > 1 {
		return e.Op + " x" + strconv.Itoa(e.Keys) + ": " + e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }
