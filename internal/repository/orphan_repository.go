package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"mediabundle/internal/domain"
)

// OrphanedBlob is stored bytes no committed file version points at.
type OrphanedBlob struct {
	ID             int64                 `db:"id"`
	StorageOptions domain.StorageOptions `db:"storage_options"`
	Reason         string                `db:"reason"`
	Attempts       int                   `db:"attempts"`
	LastError      *string               `db:"last_error"`
	Created        time.Time             `db:"created"`
}

type OrphanRepository struct {
	db *sqlx.DB
}

func NewOrphanRepository(db *sqlx.DB) *OrphanRepository {
	return &OrphanRepository{db: db}
}

func (r *OrphanRepository) Create(ctx context.Context, options domain.StorageOptions, reason string) error {
	query := `INSERT INTO media_orphaned_blobs (storage_options, reason) VALUES ($1, $2)`
	if _, err := r.db.ExecContext(ctx, query, options, reason); err != nil {
		return fmt.Errorf("failed to record orphaned blob: %w", err)
	}
	return nil
}

// ListBefore returns up to limit orphans recorded before the given time, oldest first.
func (r *OrphanRepository) ListBefore(ctx context.Context, before time.Time, limit int) ([]OrphanedBlob, error) {
	var orphans []OrphanedBlob
	query := `
        SELECT id, storage_options, reason, attempts, last_error, created
        FROM media_orphaned_blobs
        WHERE created < $1
        ORDER BY created
        LIMIT $2`
	if err := r.db.SelectContext(ctx, &orphans, query, before, limit); err != nil {
		return nil, fmt.Errorf("failed to list orphaned blobs: %w", err)
	}
	return orphans, nil
}

// Referenced reports whether a stored file version still points at options.
func (r *OrphanRepository) Referenced(ctx context.Context, options domain.StorageOptions) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM media_file_versions WHERE storage_options = $1)`
	if err := r.db.GetContext(ctx, &exists, query, options); err != nil {
		return false, fmt.Errorf("failed to check storage options reference: %w", err)
	}
	return exists, nil
}

func (r *OrphanRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM media_orphaned_blobs WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete orphaned blob %d: %w", id, err)
	}
	return nil
}

func (r *OrphanRepository) MarkFailed(ctx context.Context, id int64, reason string) error {
	query := `
        UPDATE media_orphaned_blobs
        SET attempts = attempts + 1, last_error = $1
        WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, reason, id); err != nil {
		return fmt.Errorf("failed to update orphaned blob %d: %w", id, err)
	}
	return nil
}
