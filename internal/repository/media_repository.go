package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"mediabundle/internal/domain"
)

const (
	fileVersionColumns = `id, file_id, name, size, mime_type, storage_options, version, created, changed, creator_id, changer_id`
	fileColumns        = `id, media_id, version, created, changed, creator_id, changer_id`
)

type MediaRepository struct {
	db *sqlx.DB
}

func NewMediaRepository(db *sqlx.DB) *MediaRepository {
	return &MediaRepository{db: db}
}

type mediaRow struct {
	ID            int64     `db:"id"`
	CollectionID  int64     `db:"collection_id"`
	CollectionKey string    `db:"collection_key"`
	TypeID        int64     `db:"type_id"`
	TypeName      string    `db:"type_name"`
	Created       time.Time `db:"created"`
	Changed       time.Time `db:"changed"`
	CreatorID     *int64    `db:"creator_id"`
	ChangerID     *int64    `db:"changer_id"`
}

func (r mediaRow) toDomain() *domain.Media {
	return &domain.Media{
		ID:           r.ID,
		CollectionID: r.CollectionID,
		Collection:   &domain.Collection{ID: r.CollectionID, Key: r.CollectionKey},
		TypeID:       r.TypeID,
		Type:         &domain.MediaType{ID: r.TypeID, Name: r.TypeName},
		Created:      r.Created,
		Changed:      r.Changed,
		CreatorID:    r.CreatorID,
		ChangerID:    r.ChangerID,
	}
}

// FindMediaByID loads the media with its file, every version and their metas and languages.
// It returns nil, nil when the media does not exist.
func (r *MediaRepository) FindMediaByID(ctx context.Context, id int64) (*domain.Media, error) {
	media, err := r.findMedia(ctx, id)
	if err != nil || media == nil {
		return media, err
	}

	if err := r.loadFile(ctx, media); err != nil {
		return nil, err
	}
	if media.File == nil || len(media.File.Versions) == 0 {
		return media, nil
	}

	if err := r.loadVersionDetails(ctx, media.File.Versions); err != nil {
		return nil, err
	}
	return media, nil
}

// FindMediaByIDForDelete loads only what removal needs: the media, its file and the
// versions' storage options. Metas and languages go with the row cascade.
func (r *MediaRepository) FindMediaByIDForDelete(ctx context.Context, id int64) (*domain.Media, error) {
	media, err := r.findMedia(ctx, id)
	if err != nil || media == nil {
		return media, err
	}
	if err := r.loadFile(ctx, media); err != nil {
		return nil, err
	}
	return media, nil
}

func (r *MediaRepository) findMedia(ctx context.Context, id int64) (*domain.Media, error) {
	var row mediaRow
	query := `
        SELECT m.id, m.collection_id, c.collection_key, m.type_id, t.name AS type_name,
               m.created, m.changed, m.creator_id, m.changer_id
        FROM media m
        JOIN media_collections c ON c.id = m.collection_id
        JOIN media_types t ON t.id = m.type_id
        WHERE m.id = $1`

	err := r.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get media %d: %w", id, err)
	}
	return row.toDomain(), nil
}

func (r *MediaRepository) loadFile(ctx context.Context, media *domain.Media) error {
	var file domain.File
	err := r.db.GetContext(ctx, &file,
		`SELECT `+fileColumns+` FROM media_files WHERE media_id = $1`, media.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get file of media %d: %w", media.ID, err)
	}

	var versions []*domain.FileVersion
	err = r.db.SelectContext(ctx, &versions,
		`SELECT `+fileVersionColumns+` FROM media_file_versions WHERE file_id = $1 ORDER BY version`, file.ID)
	if err != nil {
		return fmt.Errorf("failed to get versions of file %d: %w", file.ID, err)
	}

	file.Versions = versions
	media.File = &file
	return nil
}

func (r *MediaRepository) loadVersionDetails(ctx context.Context, versions []*domain.FileVersion) error {
	byID := make(map[int64]*domain.FileVersion, len(versions))
	ids := make([]int64, 0, len(versions))
	for _, v := range versions {
		byID[v.ID] = v
		ids = append(ids, v.ID)
	}

	var metas []*domain.FileVersionMeta
	err := r.db.SelectContext(ctx, &metas, `
        SELECT id, file_version_id, title, description, locale
        FROM media_file_version_metas
        WHERE file_version_id = ANY($1)
        ORDER BY id`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to get metas: %w", err)
	}
	for _, m := range metas {
		if m.FileVersionID == nil {
			continue
		}
		if v, ok := byID[*m.FileVersionID]; ok {
			v.Metas = append(v.Metas, m)
		}
	}

	var contentLanguages []*domain.FileVersionContentLanguage
	err = r.db.SelectContext(ctx, &contentLanguages, `
        SELECT id, file_version_id, locale
        FROM media_file_version_content_languages
        WHERE file_version_id = ANY($1)
        ORDER BY id`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to get content languages: %w", err)
	}
	for _, l := range contentLanguages {
		if v, ok := byID[l.FileVersionID]; ok {
			v.ContentLanguages = append(v.ContentLanguages, l)
		}
	}

	var publishLanguages []*domain.FileVersionPublishLanguage
	err = r.db.SelectContext(ctx, &publishLanguages, `
        SELECT id, file_version_id, locale
        FROM media_file_version_publish_languages
        WHERE file_version_id = ANY($1)
        ORDER BY id`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to get publish languages: %w", err)
	}
	for _, l := range publishLanguages {
		if v, ok := byID[l.FileVersionID]; ok {
			v.PublishLanguages = append(v.PublishLanguages, l)
		}
	}

	return nil
}
