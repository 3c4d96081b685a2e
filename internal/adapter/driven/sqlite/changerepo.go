package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ericfisherdev/prpoller/internal/domain/model"
	"github.com/ericfisherdev/prpoller/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ChangeStore = (*ChangeRepo)(nil)

// ChangeRepo is the SQLite change journal. It records every change the
// poller emits together with its ordered file list.
type ChangeRepo struct {
	db *DB
}

// NewChangeRepo creates a new ChangeRepo backed by the given DB.
func NewChangeRepo(db *DB) *ChangeRepo {
	return &ChangeRepo{db: db}
}

// AddChange inserts the change and its files in a single transaction.
func (r *ChangeRepo) AddChange(ctx context.Context, change model.ChangeRecord) error {
	const insertChange = `
		INSERT INTO changes (author, revision, revision_link, comments, when_timestamp,
			branch, category, project, repository, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	const insertFile = `INSERT INTO change_files (change_id, position, filename) VALUES (?, ?, ?)`

	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin add change: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, insertChange,
		change.Author, change.Revision, change.RevisionLink, change.Comments, change.When.Unix(),
		change.Branch, nullString(change.Category), change.Project, change.Repository, change.Source,
	)
	if err != nil {
		return fmt.Errorf("insert change %s: %w", change.Revision, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("change id for %s: %w", change.Revision, err)
	}

	for i, f := range change.Files {
		if _, err := tx.ExecContext(ctx, insertFile, id, i, f); err != nil {
			return fmt.Errorf("insert file %q for change %d: %w", f, id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit change %s: %w", change.Revision, err)
	}

	return nil
}

// ListRecent returns up to limit changes, newest first, with their files.
func (r *ChangeRepo) ListRecent(ctx context.Context, limit int) ([]model.ChangeRecord, error) {
	const query = `
		SELECT id, author, revision, revision_link, comments, when_timestamp,
			branch, category, project, repository, source
		FROM changes
		ORDER BY id DESC
		LIMIT ?
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list changes: %w", err)
	}
	defer rows.Close()

	changes := []model.ChangeRecord{}
	for rows.Next() {
		var c model.ChangeRecord
		var when int64
		var category sql.NullString
		if err := rows.Scan(&c.ID, &c.Author, &c.Revision, &c.RevisionLink, &c.Comments, &when,
			&c.Branch, &category, &c.Project, &c.Repository, &c.Source); err != nil {
			return nil, fmt.Errorf("scan change: %w", err)
		}
		c.When = time.Unix(when, 0).UTC()
		c.Category = category.String
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate changes: %w", err)
	}

	for i := range changes {
		files, err := r.listFiles(ctx, changes[i].ID)
		if err != nil {
			return nil, err
		}
		changes[i].Files = files
	}

	return changes, nil
}

func (r *ChangeRepo) listFiles(ctx context.Context, changeID int64) ([]string, error) {
	const query = `SELECT filename FROM change_files WHERE change_id = ? ORDER BY position`

	rows, err := r.db.Reader.QueryContext(ctx, query, changeID)
	if err != nil {
		return nil, fmt.Errorf("list files for change %d: %w", changeID, err)
	}
	defer rows.Close()

	files := []string{}
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, fmt.Errorf("scan file for change %d: %w", changeID, err)
		}
		files = append(files, f)
	}

	return files, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
