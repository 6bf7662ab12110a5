package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// sqliteArchive stores one row per entry.
type sqliteArchive struct {
	db *sql.DB
}

func openSQLite(target string) (*sqliteArchive, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", target)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS records (
		name TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &sqliteArchive{db: db}, nil
}

func (s *sqliteArchive) read(entry string) ([]byte, bool, error) {
	var data []byte
	err := s.db.QueryRow(`SELECT data FROM records WHERE name = ?`, entry).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (s *sqliteArchive) write(entry string, data []byte) error {
	if data == nil {
		data = []byte{}
	}
	_, err := s.db.Exec(`INSERT INTO records (name, data, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`, entry, data)
	return err
}

func (s *sqliteArchive) close() error { return s.db.Close() }
