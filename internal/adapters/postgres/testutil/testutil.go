package testutil

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/actilink/actilink-api/internal/adapters/postgres"
)

// OpenMigratedPool connects to TEST_DATABASE_URL, applies migrations and empties
// the named tables. The test is skipped when the variable is unset.
func OpenMigratedPool(t *testing.T, truncate ...string) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	if err := postgres.MigrateUp(dsn); err != nil {
		t.Fatalf("MigrateUp: %v", err)
	}
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, dsn, postgres.PoolOptions{MaxConns: 8})
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	t.Cleanup(pool.Close)

	if len(truncate) > 0 {
		if _, err := pool.Exec(ctx, "TRUNCATE "+strings.Join(truncate, ", ")); err != nil {
			t.Fatalf("truncate: %v", err)
		}
	}
	return pool
}
