package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"newsletter_ingest/internal/domain"
)

const (
	codeUniqueViolation     pq.ErrorCode = "23505"
	codeForeignKeyViolation pq.ErrorCode = "23503"
	codeCheckViolation      pq.ErrorCode = "23514"
)

// classify maps driver errors onto the domain error kinds. Anything it does
// not recognise comes back as a *domain.OperationError for op.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%s: %w (%s)", op, domain.ErrUniqueViolation, pqErr.Constraint)
		case codeForeignKeyViolation:
			return fmt.Errorf("%s: %w (%s)", op, domain.ErrForeignKeyViolation, pqErr.Constraint)
		case codeCheckViolation:
			return fmt.Errorf("%s: %w (%s)", op, domain.ErrCheckViolation, pqErr.Constraint)
		}
	}

	return &domain.OperationError{Op: op, Err: err}
}
