package database

import (
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

var db *sql.DB

// dsn enables foreign keys, WAL and a busy timeout so background jobs and request
// handlers can share the file.
func dsn(path string) string {
	params := url.Values{}
	params.Set("_foreign_keys", "on")
	params.Set("_journal_mode", "WAL")
	params.Set("_busy_timeout", "5000")
	params.Set("_loc", "UTC")
	return "file:" + path + "?" + params.Encode()
}

// OpenDB initializes the SQLite database connection
func OpenDB(path string) error {
	var err error
	db, err = sql.Open("sqlite3", dsn(path))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// sqlite serializes writers; one connection avoids SQLITE_BUSY between jobs.
	db.SetMaxOpenConns(1)

	// Test the connection
	if err = db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// InitializeDatabase opens the database connection and runs migrations
func InitializeDatabase(path string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := OpenDB(path); err != nil {
		return err
	}

	// Run migrations
	if err := RunMigrations(db, logger); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("database initialized", zap.String("path", path))
	return nil
}

// GetDB returns the database connection
func GetDB() *sql.DB {
	return db
}

// CloseDB closes the database connection
func CloseDB() error {
	if db != nil {
		return db.Close()
	}
	return nil
}
