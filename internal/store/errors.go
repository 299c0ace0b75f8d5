package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by find operations when no row matches.
var ErrNotFound = errors.New("store: not found")

// DuplicateEntityError reports an external id collision on create. Creating a
// movie twice with the same id is an error, never a silent overwrite.
type DuplicateEntityError struct {
	Entity string
	Key    string
}

func (e *DuplicateEntityError) Error() string {
	return fmt.Sprintf("store: %s %q already exists", e.Entity, e.Key)
}

// PersistenceError wraps any other storage failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
