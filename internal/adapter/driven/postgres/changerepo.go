package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ericfisherdev/prpoller/internal/domain/model"
	"github.com/ericfisherdev/prpoller/internal/domain/port/driven"
)

const (
	insertChangeQuery = `
INSERT INTO changes (author, revision, revision_link, comments, when_timestamp,
    branch, category, project, repository, source)
VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10)
RETURNING id`
	insertChangeFileQuery = `INSERT INTO change_files (change_id, position, filename) VALUES ($1, $2, $3)`
	listChangesQuery      = `
SELECT c.id, c.author, c.revision, c.revision_link, c.comments, c.when_timestamp,
    c.branch, COALESCE(c.category, ''), c.project, c.repository, c.source,
    COALESCE(array_agg(f.filename ORDER BY f.position) FILTER (WHERE f.filename IS NOT NULL), '{}')
FROM changes c
LEFT JOIN change_files f ON f.change_id = c.id
GROUP BY c.id
ORDER BY c.id DESC
LIMIT $1`
)

var _ driven.ChangeStore = (*ChangeRepo)(nil)

// ChangeRepo is the PostgreSQL change journal.
type ChangeRepo struct {
	db *DB
}

// NewChangeRepo creates a ChangeRepo on db.
func NewChangeRepo(db *DB) *ChangeRepo {
	return &ChangeRepo{db: db}
}

// AddChange inserts the change and its files in one transaction.
func (r *ChangeRepo) AddChange(ctx context.Context, change model.ChangeRecord) error {
	return pgx.BeginFunc(ctx, r.db.pool, func(tx pgx.Tx) error {
		var id int64
		err := tx.QueryRow(ctx, insertChangeQuery,
			change.Author, change.Revision, change.RevisionLink, change.Comments, change.When,
			change.Branch, change.Category, change.Project, change.Repository, change.Source,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert change %s: %w", change.Revision, err)
		}

		batch := &pgx.Batch{}
		for i, f := range change.Files {
			batch.Queue(insertChangeFileQuery, id, i, f)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert files for change %d: %w", id, err)
		}

		return nil
	})
}

// ListRecent returns up to limit changes, newest first.
func (r *ChangeRepo) ListRecent(ctx context.Context, limit int) ([]model.ChangeRecord, error) {
	rows, err := r.db.pool.Query(ctx, listChangesQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("list changes: %w", err)
	}
	defer rows.Close()

	changes := make([]model.ChangeRecord, 0)
	for rows.Next() {
		var c model.ChangeRecord
		var when time.Time
		if err := rows.Scan(&c.ID, &c.Author, &c.Revision, &c.RevisionLink, &c.Comments, &when,
			&c.Branch, &c.Category, &c.Project, &c.Repository, &c.Source, &c.Files); err != nil {
			return nil, fmt.Errorf("scan change: %w", err)
		}
		c.When = when.UTC()
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate changes: %w", err)
	}

	return changes, nil
}
