package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// SQLSTATE codes the repositories react to.
const (
	CodeUniqueViolation      = "23505"
	CodeForeignKeyViolation  = "23503"
	CodeCheckViolation       = "23514"
	CodeSerializationFailure = "40001"
	CodeDeadlockDetected     = "40P01"
	CodeLockNotAvailable     = "55P03"
	CodeAdminShutdown        = "57P01"
	CodeCannotConnectNow     = "57P03"
)

// SQLState extracts the SQLSTATE from either driver's error type.
func SQLState(err error) string {
	if err == nil {
		return ""
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// ConstraintName returns the violated constraint, if the driver reported one.
func ConstraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint
	}
	return ""
}

func IsUniqueViolation(err error) bool {
	return SQLState(err) == CodeUniqueViolation
}

func IsForeignKeyViolation(err error) bool {
	return SQLState(err) == CodeForeignKeyViolation
}

func IsCheckViolation(err error) bool {
	return SQLState(err) == CodeCheckViolation
}

// IsTransient reports whether re-running the whole transaction may succeed:
// serialization conflicts, deadlocks, lock timeouts and dropped connections.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	// The caller's own deadline or cancellation is final.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	switch SQLState(err) {
	case CodeSerializationFailure, CodeDeadlockDetected, CodeLockNotAvailable,
		CodeAdminShutdown, CodeCannotConnectNow:
		return true
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	if pgconn.SafeToRetry(err) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
