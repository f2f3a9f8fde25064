package service

import (
	"context"

	"mediabundle/internal/domain"
)

type MediaRepository interface {
	FindMediaByID(ctx context.Context, id int64) (*domain.Media, error)
	FindMediaByIDForDelete(ctx context.Context, id int64) (*domain.Media, error)
}

type CollectionRepository interface {
	Find(ctx context.Context, id int64) (*domain.Collection, error)
}

type UserRepository interface {
	FindUserByID(ctx context.Context, id int64) (*domain.User, error)
}

type MediaTypeRepository interface {
	Find(ctx context.Context, id int64) (*domain.MediaType, error)
}

// UnitOfWork stages entity writes and deletes and commits them together on Flush.
type UnitOfWork interface {
	Persist(e domain.Entity)
	Remove(e domain.Entity)
	Flush(ctx context.Context) error
}

// Validator rejects uploads with a *domain.ValidationError.
type Validator interface {
	Validate(upload *domain.UploadedFile) error
}

// OrphanRecorder keeps track of stored bytes whose database commit failed.
type OrphanRecorder interface {
	Record(ctx context.Context, options domain.StorageOptions, cause error)
}
