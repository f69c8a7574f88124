// Package repo implements the data persistence layer for the haiku store,
// backed by GORM. This file defines the uniform failure type raised by every
// repository function.
package repo

import "fmt"

// PersistenceError wraps any store or transport failure encountered by a
// repository function. The repository raises it uniformly regardless of the
// underlying driver's native error types, so the service layer only ever
// needs to distinguish "validation", "unavailable", and "persistence failure".
//
// A not-found lookup is not a PersistenceError: point lookups signal absence
// with a nil record and a nil error.
type PersistenceError struct {
	// Op names the repository operation that failed, e.g. "create haiku".
	Op string
	// Err is the underlying driver error.
	Err error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("repo: %s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying driver error for errors.Is/As chains.
func (e *PersistenceError) Unwrap() error { return e.Err }

// persistErr wraps err in a *PersistenceError, passing nil through untouched.
func persistErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}
