package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// GetIDMapping returns the stored canonical UUID for a short id, or the empty
// string when no mapping exists yet.
func (db *DB) GetIDMapping(ctx context.Context, shortID string) (string, error) {
	var remoteID string
	err := db.db.QueryRowContext(ctx,
		`SELECT remote_id FROM id_mappings WHERE short_id = ?`, shortID).Scan(&remoteID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get id mapping for %s: %w", shortID, err)
	}
	return remoteID, nil
}

// PutIDMapping persists a short → UUID pair. The first stored mapping wins:
// a conflicting insert for the same short id leaves the original row intact.
func (db *DB) PutIDMapping(ctx context.Context, shortID, remoteID string) error {
	_, err := db.db.ExecContext(ctx,
		`INSERT INTO id_mappings (short_id, remote_id, created_at) VALUES (?, ?, ?)
         ON CONFLICT(short_id) DO NOTHING`,
		shortID, remoteID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to store id mapping %s: %w", shortID, err)
	}
	return nil
}

// GetFlag reads a boolean marker from the meta table (e.g. migration state).
func (db *DB) GetFlag(ctx context.Context, name string) (bool, error) {
	var value string
	err := db.db.QueryRowContext(ctx,
		`SELECT value FROM meta WHERE name = ?`, name).Scan(&value)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get flag %s: %w", name, err)
	}
	return value == "1" || value == "true", nil
}

func (db *DB) SetFlag(ctx context.Context, name string, value bool) error {
	raw := "0"
	if value {
		raw = "1"
	}
	_, err := db.db.ExecContext(ctx,
		`INSERT INTO meta (name, value, updated_at) VALUES (?, ?, ?)
         ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		name, raw, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set flag %s: %w", name, err)
	}
	return nil
}
