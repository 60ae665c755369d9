package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// pgUniqueViolation is the SQLSTATE class 23 code postgres raises when a
// unique index rejects a write.
const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether the provided error is a unique constraint
// violation. Postgres errors are matched on SQLSTATE; the sqlite driver used
// in tests only exposes message text, so that path falls back to string
// matching. When constraintName is provided, the helper also checks which
// index fired.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != pgUniqueViolation {
			return false
		}
		if constraintName == "" {
			return true
		}
		return strings.Contains(pgErr.ConstraintName, constraintName) ||
			strings.Contains(pgErr.Message, constraintName)
	}

	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") {
		return false
	}
	if constraintName == "" {
		return true
	}
	return strings.Contains(msg, constraintName)
}
