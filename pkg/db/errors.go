package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres SQLSTATE codes the allocator and ingestion pipeline care about.
const (
	pgUniqueViolation      = "23505"
	pgLockNotAvailable     = "55P03"
	pgDeadlockDetected     = "40P01"
	pgSerializationFailure = "40001"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsUniqueViolation reports whether the provided error references a Postgres
// unique violation. When constraintName is provided, the helper additionally
// requires the constraint to match.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		if constraintName == "" {
			return true
		}
		return pgErr.ConstraintName == constraintName ||
			strings.Contains(pgErr.Error(), constraintName)
	}
	// SQLite in tests reports constraint failures as plain text.
	msg := err.Error()
	if constraintName != "" && strings.Contains(msg, constraintName) {
		return true
	}
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// IsLockNotAvailable reports a NOWAIT/lock_timeout style failure.
func IsLockNotAvailable(err error) bool {
	if err == nil {
		return false
	}
	if pgCode(err) == pgLockNotAvailable {
		return true
	}
	return strings.Contains(err.Error(), "lock timeout") ||
		strings.Contains(err.Error(), "could not obtain lock")
}

// IsDeadlock reports whether the transaction was chosen as a deadlock victim.
func IsDeadlock(err error) bool {
	if err == nil {
		return false
	}
	if pgCode(err) == pgDeadlockDetected {
		return true
	}
	return strings.Contains(err.Error(), "deadlock detected")
}

// IsSerializationFailure reports a serialization conflict under concurrent
// writers; retrying the transaction is the documented remedy.
func IsSerializationFailure(err error) bool {
	if err == nil {
		return false
	}
	return pgCode(err) == pgSerializationFailure
}

// IsRetryableContention groups the transient contention classes the sequence
// allocator retries with backoff.
func IsRetryableContention(err error) bool {
	return IsLockNotAvailable(err) || IsDeadlock(err) || IsSerializationFailure(err)
}
