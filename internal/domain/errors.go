package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrUniqueViolation     = errors.New("unique constraint violation")
	ErrForeignKeyViolation = errors.New("foreign key violation")
	ErrCheckViolation      = errors.New("check constraint violation")
	ErrSyncLogClosed       = errors.New("sync log already closed")
	ErrMissingBody         = errors.New("missing body")
)

// OperationError wraps a store failure that has no more specific kind.
type OperationError struct {
	Op  string
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s: operation failed: %v", e.Op, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// IsConstraint reports whether err is one of the classified constraint kinds.
func IsConstraint(err error) bool {
	return errors.Is(err, ErrUniqueViolation) ||
		errors.Is(err, ErrForeignKeyViolation) ||
		errors.Is(err, ErrCheckViolation)
}
