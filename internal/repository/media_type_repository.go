package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"mediabundle/internal/domain"
)

type MediaTypeRepository struct {
	db *sqlx.DB
}

func NewMediaTypeRepository(db *sqlx.DB) *MediaTypeRepository {
	return &MediaTypeRepository{db: db}
}

func (r *MediaTypeRepository) Find(ctx context.Context, id int64) (*domain.MediaType, error) {
	var mediaType domain.MediaType
	err := r.db.GetContext(ctx, &mediaType, `SELECT id, name FROM media_types WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get media type %d: %w", id, err)
	}
	return &mediaType, nil
}
