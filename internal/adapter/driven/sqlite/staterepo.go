package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ericfisherdev/prpoller/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.StateStore = (*StateRepo)(nil)

// StateRepo is the SQLite implementation of the StateStore port interface.
// Values are stored JSON-encoded in object_state.value_json.
type StateRepo struct {
	db *DB
}

// NewStateRepo creates a new StateRepo backed by the given DB.
func NewStateRepo(db *DB) *StateRepo {
	return &StateRepo{db: db}
}

// GetObjectID returns the ID of the (name, className) object, inserting it
// on first use.
func (r *StateRepo) GetObjectID(ctx context.Context, name, className string) (int64, error) {
	const insert = `
		INSERT INTO objects (name, class_name) VALUES (?, ?)
		ON CONFLICT(name, class_name) DO NOTHING
	`
	const query = `SELECT id FROM objects WHERE name = ? AND class_name = ?`

	if _, err := r.db.Writer.ExecContext(ctx, insert, name, className); err != nil {
		return 0, fmt.Errorf("insert object %s/%s: %w", className, name, err)
	}

	var id int64
	if err := r.db.Writer.QueryRowContext(ctx, query, name, className).Scan(&id); err != nil {
		return 0, fmt.Errorf("get object %s/%s: %w", className, name, err)
	}

	return id, nil
}

// GetState returns the value stored under key for the object, or def when
// the key has never been set.
func (r *StateRepo) GetState(ctx context.Context, objectID int64, key, def string) (string, error) {
	const query = `SELECT value_json FROM object_state WHERE object_id = ? AND name = ?`

	var raw string
	err := r.db.Reader.QueryRowContext(ctx, query, objectID, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return def, nil
	}
	if err != nil {
		return "", fmt.Errorf("get state %d/%s: %w", objectID, key, err)
	}

	var value string
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return "", fmt.Errorf("decode state %d/%s: %w", objectID, key, err)
	}

	return value, nil
}

// SetState stores value under key for the object, replacing any previous value.
func (r *StateRepo) SetState(ctx context.Context, objectID int64, key, value string) error {
	const query = `
		INSERT INTO object_state (object_id, name, value_json) VALUES (?, ?, ?)
		ON CONFLICT(object_id, name) DO UPDATE SET value_json = excluded.value_json
	`

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode state %d/%s: %w", objectID, key, err)
	}

	if _, err := r.db.Writer.ExecContext(ctx, query, objectID, key, string(raw)); err != nil {
		return fmt.Errorf("set state %d/%s: %w", objectID, key, err)
	}

	return nil
}
