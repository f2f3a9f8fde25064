// Package storage defines the gateway the media manager uses for raw file bytes.
package storage

import (
	"context"
	"fmt"

	"mediabundle/internal/config"
	"mediabundle/internal/domain"
	"mediabundle/internal/storage/local"
	"mediabundle/internal/storage/s3"
)

// Storage saves and removes the bytes behind a file version.
// Save returns an opaque token; passing a previous token tells the backend the new
// bytes supersede the old ones so it can keep them together.
type Storage interface {
	Save(ctx context.Context, sourcePath, fileName string, version int, previous domain.StorageOptions) (domain.StorageOptions, error)
	Remove(ctx context.Context, options domain.StorageOptions) error
}

// NewFromConfig creates the backend selected by cfg.Type ("local" or "s3").
func NewFromConfig(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	switch cfg.Type {
	case "", "local":
		backend, err := local.New(local.Config{
			RootPath:   cfg.LocalPath,
			Segments:   cfg.Segments,
			CreateDirs: true,
		})
		if err != nil {
			return nil, err
		}
		return backend, nil
	case "s3":
		client, err := s3.NewClient(ctx, &s3.Config{
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			Bucket:          cfg.S3.Bucket,
			Endpoint:        cfg.S3.Endpoint,
			Region:          cfg.S3.Region,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
