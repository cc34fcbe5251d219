// Package dbtest opens throwaway holdings stores for tests.
package dbtest

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"tracker/src/config"
	"tracker/src/database"
)

// NewTestDB opens an empty SQLite store in a per-test temporary directory and closes it when the test ends.
func NewTestDB(t testing.TB) *sql.DB {
	t.Helper()
	cfg := &config.Config{}
	cfg.Databases.SQL.Driver = "sqlite3"
	cfg.Databases.SQL.Path = filepath.Join(t.TempDir(), "holdings.db")

	db, _, err := database.SetupDB(cfg)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// NewPostgresTestDB connects to TEST_POSTGRES_DSN or skips the test.
func NewPostgresTestDB(t testing.TB) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set, skipping postgres test")
	}
	cfg := &config.Config{}
	cfg.Databases.SQL.Driver = "pgx"
	cfg.Databases.SQL.ConnectionString = dsn

	db, _, err := database.SetupDB(cfg)
	if err != nil {
		t.Skipf("Skipping test - Postgres not available: %v", err)
	}
	for _, table := range []string{"holdings", "ingestion_runs", "goose_db_version"} {
		if _, err := db.Exec("DROP TABLE IF EXISTS " + table); err != nil {
			t.Fatalf("Failed to drop table %s: %v", table, err)
		}
	}
	t.Cleanup(func() { db.Close() })
	return db
}
