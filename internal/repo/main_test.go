package repo_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/pressly/goose/v3"

	"github.com/fleetcare/maintenance-booking/migrations"
	"github.com/fleetcare/maintenance-booking/testutil"
)

// TestMain brings the booking schema up to date once per test binary. Tests
// then work inside rolled-back transactions (see newTestTx). Without
// TEST_DATABASE_URL every test here skips itself through testutil.NewPool.
func TestMain(m *testing.M) {
	if dsn := os.Getenv("TEST_DATABASE_URL"); dsn != "" {
		if err := migrateUp(dsn); err != nil {
			fmt.Fprintf(os.Stderr, "repo tests: %v\n", err)
			os.Exit(1)
		}
	}
	os.Exit(m.Run())
}

func migrateUp(dsn string) error {
	db := testutil.MustOpenSQLDB(dsn)
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := provider.Up(context.Background()); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}
