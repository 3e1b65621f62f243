package core

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Error kinds surfaced by the core. Callers classify with errors.Is; every
// returned error wraps exactly one of these.
var (
	// ErrConfiguration means the system is not set up to serve the request,
	// e.g. no active company. Not retryable without operator intervention.
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrValidation    = errors.New("validation error")
	ErrInvalidState  = errors.New("invalid state")

	// ErrTicketContention is returned when the ticket counter upsert lost a
	// serialization race. The whole ticket acquisition may be retried.
	ErrTicketContention = errors.New("ticket sequence contention")
)

// IsRetryable reports whether err may be resolved by blindly retrying the
// operation that produced it.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTicketContention)
}

// Postgres SQLSTATE codes the core translates into error kinds.
const (
	pgUniqueViolation      = "23505"
	pgCheckViolation       = "23514"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgErrorCode(err) == pgUniqueViolation
}

// constraintName returns the violated constraint, or "" when err is not a
// Postgres error.
func constraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

func isContention(err error) bool {
	switch pgErrorCode(err) {
	case pgSerializationFailure, pgDeadlockDetected:
		return true
	}
	return false
}
