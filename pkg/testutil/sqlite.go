package testutil

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"freightdesk/internal/platform/config"
	"freightdesk/internal/platform/database"
)

// NewSQLiteDB opens a private in-memory database with the schema applied.
func NewSQLiteDB(t testing.TB) *sqlx.DB {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(ctx, db))
	return db
}
