package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tracker/src/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// DSN returns the driver name and data source for the configured store.
func DSN(cfg *config.Config) (string, string) {
	sqlCfg := cfg.Databases.SQL
	switch sqlCfg.Driver {
	case "pgx", "postgres":
		dsn := sqlCfg.ConnectionString
		if dsn == "" {
			dsn = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
				sqlCfg.Host,
				sqlCfg.Username,
				sqlCfg.Password,
				sqlCfg.Database,
				sqlCfg.Port)
		}
		return "pgx", dsn
	default:
		if sqlCfg.ConnectionString != "" {
			return "sqlite3", sqlCfg.ConnectionString
		}
		return "sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on", sqlCfg.Path)
	}
}

// SetupDB opens the configured holdings store and checks it is reachable.
func SetupDB(cfg *config.Config) (*sql.DB, string, error) {
	driver, dsn := DSN(cfg)
	if driver == "sqlite3" && cfg.Databases.SQL.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Databases.SQL.Path), 0o755); err != nil {
			return nil, "", fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open database: %w", err)
	}

	if driver == "sqlite3" {
		// a single writer connection avoids SQLITE_BUSY between the pool's connections
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("failed to ping database: %v\nPlease check your database configuration and ensure it's running", err)
	}
	return db, driver, nil
}
