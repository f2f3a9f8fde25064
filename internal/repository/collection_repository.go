package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"mediabundle/internal/domain"
)

type CollectionRepository struct {
	db *sqlx.DB
}

func NewCollectionRepository(db *sqlx.DB) *CollectionRepository {
	return &CollectionRepository{db: db}
}

// Find returns nil, nil when the collection does not exist.
func (r *CollectionRepository) Find(ctx context.Context, id int64) (*domain.Collection, error) {
	var collection domain.Collection
	err := r.db.GetContext(ctx, &collection,
		`SELECT id, collection_key FROM media_collections WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get collection %d: %w", id, err)
	}
	return &collection, nil
}
