package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/amaliareyes/seamline-backend/pkg/migrate"
)

func TestOrdersMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_orders.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no orders migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"CHECK (total_cents = subtotal_cents + delivery_fee_cents)",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_orders_number",
		"CREATE TABLE IF NOT EXISTS order_items",
		"CHECK (price_cents = base_price_cents * qty)",
		"CREATE TABLE IF NOT EXISTS order_timeline_entries",
		"DROP TABLE IF EXISTS orders",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestSettlementMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_payments_and_payouts.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no payments migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS payments",
		"CHECK (refunded_cents >= 0 AND refunded_cents <= amount_cents)",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_payments_session",
		"CREATE TABLE IF NOT EXISTS payouts",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_payouts_order_user",
		"DROP TABLE IF EXISTS payouts",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationsDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("migrations dir invalid: %v", err)
	}
}
