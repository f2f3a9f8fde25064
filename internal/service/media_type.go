package service

import (
	"context"
	"fmt"
	"slices"

	"mediabundle/internal/config"
	"mediabundle/internal/domain"
)

const anyExtension = "*"

// MediaTypeResolver classifies uploads by file extension using the configured type table.
type MediaTypeResolver struct {
	types []config.MediaTypeConfig
	repo  MediaTypeRepository
}

func NewMediaTypeResolver(types []config.MediaTypeConfig, repo MediaTypeRepository) *MediaTypeResolver {
	return &MediaTypeResolver{types: types, repo: repo}
}

// Resolve returns the media type for upload. Every entry of the table is scanned and the
// last one listing the extension (or "*") wins, so later entries override earlier ones.
func (r *MediaTypeResolver) Resolve(ctx context.Context, upload *domain.UploadedFile) (*domain.MediaType, error) {
	ext := upload.Extension()

	id, ok := matchMediaType(r.types, ext)
	if !ok {
		return nil, fmt.Errorf("%w: extension %q", domain.ErrUnknownMediaType, ext)
	}

	mediaType, err := r.repo.Find(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	if mediaType == nil {
		return nil, fmt.Errorf("%w: type %d is not registered", domain.ErrUnknownMediaType, id)
	}
	return mediaType, nil
}

func matchMediaType(types []config.MediaTypeConfig, ext string) (int64, bool) {
	var (
		id    int64
		found bool
	)
	for _, t := range types {
		if slices.Contains(t.Extensions, ext) || slices.Contains(t.Extensions, anyExtension) {
			id = t.ID
			found = true
		}
	}
	return id, found
}
