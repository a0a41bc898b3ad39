package migrations_test

import (
	"context"
	"testing"

	"github.com/ahmedm-sallam/SmartInventorySystem/internal/testutil"
	"github.com/ahmedm-sallam/SmartInventorySystem/migrations"
)

func TestApply_IsIdempotent(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()

	if _, err := pool.Exec(ctx, `DROP TABLE IF EXISTS schema_migrations`); err != nil {
		t.Fatalf("drop schema_migrations: %v", err)
	}

	if err := migrations.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	countApplied := func() int {
		var n int
		if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&n); err != nil {
			t.Fatalf("count migrations: %v", err)
		}
		return n
	}

	first := countApplied()
	if first < 6 {
		t.Fatalf("expected at least 6 migrations, got %d", first)
	}

	if err := migrations.Apply(ctx, pool); err != nil {
		t.Fatalf("re-apply migrations: %v", err)
	}
	if again := countApplied(); again != first {
		t.Fatalf("expected migration count unchanged, got %d vs %d", again, first)
	}
}
