package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolationPostgres(t *testing.T) {
	dup := &pgconn.PgError{
		Code:           "23505",
		Message:        `duplicate key value violates unique constraint "ux_orders_number"`,
		ConstraintName: "ux_orders_number",
	}

	if !IsUniqueViolation(dup, "") {
		t.Fatalf("23505 must be reported as a unique violation")
	}
	if !IsUniqueViolation(dup, "ux_orders_number") {
		t.Fatalf("constraint name must match")
	}
	if IsUniqueViolation(dup, "ux_payouts_order_user") {
		t.Fatalf("a different constraint must not match")
	}

	// Wrapped driver errors still carry the SQLSTATE.
	wrapped := fmt.Errorf("create order: %w", dup)
	if !IsUniqueViolation(wrapped, "ux_orders_number") {
		t.Fatalf("wrapped pg errors must still match")
	}

	// Other SQLSTATE codes mentioning constraints are not unique violations.
	notNull := &pgconn.PgError{Code: "23502", Message: "null value in column violates not-null constraint"}
	if IsUniqueViolation(notNull, "") {
		t.Fatalf("a not-null violation must not be reported as unique")
	}
}

func TestIsUniqueViolationSqlite(t *testing.T) {
	err := errors.New("UNIQUE constraint failed: webhook_events.event_id")
	if !IsUniqueViolation(err, "") {
		t.Fatalf("sqlite unique failures must be reported")
	}
	if !IsUniqueViolation(err, "webhook_events") {
		t.Fatalf("sqlite messages carry the table name")
	}
	if IsUniqueViolation(err, "payouts") {
		t.Fatalf("a different table must not match")
	}
	if IsUniqueViolation(errors.New("database is locked"), "") {
		t.Fatalf("unrelated errors must not match")
	}
	if IsUniqueViolation(nil, "") {
		t.Fatalf("nil must not match")
	}
}
