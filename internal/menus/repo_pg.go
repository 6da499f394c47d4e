package menus

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const slotColumns = `week, file_name, file_path, remote_url, updated_at`

// Get returns the slot for a week.
func (r *PGRepo) Get(ctx context.Context, week int) (Slot, error) {
	const query = `
SELECT ` + slotColumns + `
FROM menu_slots
WHERE week = $1`
	slot, err := scanSlot(r.DB.QueryRowContext(ctx, query, week))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Slot{}, ErrNotFound
		}
		return Slot{}, err
	}
	return slot, nil
}

// List returns all recorded slots ordered by week.
func (r *PGRepo) List(ctx context.Context) ([]Slot, error) {
	const query = `
SELECT ` + slotColumns + `
FROM menu_slots
ORDER BY week ASC`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, slot)
	}
	return out, rows.Err()
}

// Upsert inserts or replaces the slot for its week in a single statement.
func (r *PGRepo) Upsert(ctx context.Context, slot Slot) (Slot, error) {
	if err := validateSlot(slot); err != nil {
		return Slot{}, err
	}
	slot = stamp(slot)
	const query = `
INSERT INTO menu_slots (week, file_name, file_path, remote_url, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (week) DO UPDATE SET
    file_name = EXCLUDED.file_name,
    file_path = EXCLUDED.file_path,
    remote_url = EXCLUDED.remote_url,
    updated_at = EXCLUDED.updated_at
RETURNING ` + slotColumns

	var remoteURL sql.NullString
	if slot.RemoteURL != "" {
		remoteURL = sql.NullString{String: slot.RemoteURL, Valid: true}
	}
	return scanSlot(r.DB.QueryRowContext(ctx, query, slot.Week, slot.FileName, slot.FilePath, remoteURL, slot.UpdatedAt))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSlot(row rowScanner) (Slot, error) {
	var slot Slot
	var remoteURL sql.NullString
	if err := row.Scan(&slot.Week, &slot.FileName, &slot.FilePath, &remoteURL, &slot.UpdatedAt); err != nil {
		return Slot{}, err
	}
	if remoteURL.Valid {
		slot.RemoteURL = remoteURL.String
	}
	slot.UpdatedAt = slot.UpdatedAt.UTC()
	return slot, nil
}

var _ Repo = (*PGRepo)(nil)
