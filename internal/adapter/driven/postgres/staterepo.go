package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ericfisherdev/prpoller/internal/domain/port/driven"
)

const (
	// The no-op update makes RETURNING yield the existing row's id, also
	// when a concurrent session inserted it first.
	getObjectIDQuery = `
INSERT INTO objects (name, class_name) VALUES ($1, $2)
ON CONFLICT (name, class_name) DO UPDATE SET name = EXCLUDED.name
RETURNING id`
	getStateQuery = `SELECT value_json FROM object_state WHERE object_id = $1 AND name = $2`
	setStateQuery = `
INSERT INTO object_state (object_id, name, value_json) VALUES ($1, $2, $3)
ON CONFLICT (object_id, name) DO UPDATE SET value_json = EXCLUDED.value_json`
)

var _ driven.StateStore = (*StateRepo)(nil)

// StateRepo is the PostgreSQL implementation of the StateStore port.
type StateRepo struct {
	db *DB
}

// NewStateRepo creates a StateRepo on db.
func NewStateRepo(db *DB) *StateRepo {
	return &StateRepo{db: db}
}

// GetObjectID returns the ID of the (name, className) object, creating it on first use.
func (r *StateRepo) GetObjectID(ctx context.Context, name, className string) (int64, error) {
	var id int64
	if err := r.db.pool.QueryRow(ctx, getObjectIDQuery, name, className).Scan(&id); err != nil {
		return 0, fmt.Errorf("get object %s/%s: %w", className, name, err)
	}
	return id, nil
}

// GetState returns the value stored under key, or def when it is absent.
func (r *StateRepo) GetState(ctx context.Context, objectID int64, key, def string) (string, error) {
	var raw string
	err := r.db.pool.QueryRow(ctx, getStateQuery, objectID, key).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
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

// SetState stores value under key.
func (r *StateRepo) SetState(ctx context.Context, objectID int64, key, value string) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode state %d/%s: %w", objectID, key, err)
	}
	if _, err := r.db.pool.Exec(ctx, setStateQuery, objectID, key, string(raw)); err != nil {
		return fmt.Errorf("set state %d/%s: %w", objectID, key, err)
	}
	return nil
}
