package db

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@localhost:5432/toko", migrateURL("postgres://u:p@localhost:5432/toko"))
	assert.Equal(t, "pgx5://localhost/toko", migrateURL("postgresql://localhost/toko"))
	assert.Equal(t, "pgx5://localhost/toko", migrateURL("pgx5://localhost/toko"))
}

func TestMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrationFS, "migrations")
	require.NoError(t, err)
	names := map[string]bool{}
	for _, e := range entries {
		names[e.Name()] = true
	}
	for _, base := range []string{"0001_coupons", "0002_order_ledger"} {
		assert.True(t, names[base+".up.sql"], base)
		assert.True(t, names[base+".down.sql"], base)
	}
}

func TestCouponUsageLimitMustBePositive(t *testing.T) {
	ddl, err := fs.ReadFile(migrationFS, "migrations/0001_coupons.up.sql")
	require.NoError(t, err)
	schema := string(ddl)
	assert.True(t, strings.Contains(schema, "usage_limit IS NULL OR usage_limit > 0"), "usage_limit accepts zero")
	assert.True(t, strings.Contains(schema, "CHECK (used_count >= 0)"))
}
