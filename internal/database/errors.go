package database

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateID is returned by Add when a record with the same id already exists
	ErrDuplicateID = errors.New("record id already exists")
	// ErrRecordNotFound is returned by GetByID when no record has the id
	ErrRecordNotFound = errors.New("record not found")
)

// StorageError is the generic failure of a storage operation.
// Callers surface it to the user as is; nothing is retried.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
