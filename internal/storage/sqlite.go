package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps a SQLite database connection with transit store operations.
type DB struct {
	*sql.DB
	logger *slog.Logger
}

// Open opens the store at path, creating the schema if it doesn't exist.
func Open(path string, logger *slog.Logger) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Verify connection
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db := &DB{DB: sqlDB, logger: logger}

	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	logger.Info("database opened", "path", path)
	return db, nil
}

// Create deletes any store at path and opens a fresh, empty one.
// The store is never merged into: every import starts from nothing.
func Create(path string, logger *slog.Logger) (*DB, error) {
	removed := false
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		err := os.Remove(p)
		switch {
		case err == nil:
			removed = true
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("remove existing store: %w", err)
		}
	}
	if removed {
		logger.Info("existing store removed", "path", path)
	}
	return Open(path, logger)
}
