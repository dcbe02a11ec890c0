// Package tests holds the PostgreSQL-backed integration tests. They skip unless
// DATABASE_URL points at a disposable database.
package tests

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kirillfoster544-cpu/telegram/internal/db"
)

// DiscardLogger returns a logger that drops everything
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// OpenTestDB connects to DATABASE_URL, applies migrations and truncates the relay tables.
// The test is skipped when DATABASE_URL is unset.
func OpenTestDB(t *testing.T) *sql.DB {
	t.Helper()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}

	ctx := context.Background()
	database, err := db.Open(ctx, databaseURL, DiscardLogger())
	require.NoError(t, err, "database open must succeed; check DATABASE_URL and that test DB exists")
	t.Cleanup(func() { database.Close() })

	require.NoError(t, db.Migrate(database), "migrations must run successfully")
	require.NoError(t, TruncateRelayTables(ctx, database), "truncate relay tables")
	return database
}

// TruncateRelayTables empties every relay table for a clean test state.
func TruncateRelayTables(ctx context.Context, database *sql.DB) error {
	_, err := database.ExecContext(ctx,
		"TRUNCATE TABLE audit_log, usage_counters, pending_conversations, profiles RESTART IDENTITY")
	if err != nil {
		return fmt.Errorf("truncate relay tables: %w", err)
	}
	return nil
}
