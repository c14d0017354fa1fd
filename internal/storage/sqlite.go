package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/MeKo-Tech/redliningmap/internal/types"
	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore keeps pins in a local SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens the database at path, creating it and its schema if
// needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// createSchema creates the pins table.
func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS pins (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			timestamp INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS pins_user_index ON pins (user_id);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) AddPin(ctx context.Context, pin types.Pin) error {
	if err := validatePin(pin); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO pins (id, user_id, latitude, longitude, timestamp) VALUES (?, ?, ?, ?, ?)",
		pin.ID, pin.UserID, pin.Latitude, pin.Longitude, pin.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert pin %s: %w", pin.ID, err)
	}
	return nil
}

func (s *SQLiteStore) AllPins(ctx context.Context) ([]types.Pin, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, latitude, longitude, timestamp FROM pins ORDER BY timestamp, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query pins: %w", err)
	}
	defer rows.Close()

	pins := []types.Pin{}
	for rows.Next() {
		var p types.Pin
		if err := rows.Scan(&p.ID, &p.UserID, &p.Latitude, &p.Longitude, &p.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan pin row: %w", err)
		}
		pins = append(pins, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pins: %w", err)
	}
	return pins, nil
}

func (s *SQLiteStore) ClearUser(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM pins WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("failed to clear pins of %s: %w", userID, err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
