package xerrors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

func ParsePGErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code // e.g. 23505 for unique_violation
	}
	return "unknown"
}

// Generic
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrInternalServer = errors.New("internal server error")
	ErrNotFound       = errors.New("not found")
)

// Ledger validation kinds. They are returned wrapped in a *ValidationError
// and are never retried.
var (
	ErrMissingRequiredAccount   = errors.New("missing required account")
	ErrUnknownAccountType       = errors.New("unknown account type")
	ErrUnknownTransactionSource = errors.New("unknown external transaction source")
	ErrUnknownTransactionType   = errors.New("unknown transaction type")
	ErrUnknownCommissionType    = errors.New("unknown commission type")
	ErrInvalidTransfer          = errors.New("invalid transfer request")
	ErrInvalidProject           = errors.New("invalid project")
	ErrCurrencyMismatch         = errors.New("currency mismatch")
)

// Workflow outcomes
var (
	ErrMissingRefundTarget = errors.New("refund has no refunded transaction")
	ErrPersistence         = errors.New("ledger persistence failure")
)

// ValidationError carries one of the validation kinds plus detail about the
// offending input.
type ValidationError struct {
	Kind   error
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Detail
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

// Validation builds a *ValidationError of the given kind.
func Validation(kind error, format string, args ...interface{}) error {
	return &ValidationError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// Persistence wraps a storage failure so that both ErrPersistence and the
// original cause match errors.Is.
func Persistence(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
