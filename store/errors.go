package store

import "fmt"

// StorageError wraps a failure from the backing database with the operation that hit it.
type StorageError struct {
	Operation string
	Err       error
}

func (s *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", s.Operation, s.Err)
}

func (s *StorageError) Unwrap() error {
	return s.Err
}

func wrapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Operation: operation, Err: err}
}
