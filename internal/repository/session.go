package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"

	"mediabundle/internal/domain"
)

// Session is a unit of work over the media tables. Persist and Remove only stage
// changes; Flush writes all of them in a single transaction.
//
// Persisting an entity cascades to its children. Children that were never stored
// are inserted; stored children are only rewritten when they were staged themselves.
type Session struct {
	db       *sqlx.DB
	staged   []domain.Entity
	explicit map[domain.Entity]bool
	removed  []domain.Entity
}

func NewSession(db *sqlx.DB) *Session {
	return &Session{
		db:       db,
		explicit: make(map[domain.Entity]bool),
	}
}

// Persist stages e (and, on flush, its new children) for writing.
func (s *Session) Persist(e domain.Entity) {
	if s.explicit[e] {
		return
	}
	s.explicit[e] = true
	s.staged = append(s.staged, e)
}

// Remove stages e for deletion. Rows below it go through ON DELETE CASCADE.
func (s *Session) Remove(e domain.Entity) {
	s.removed = append(s.removed, e)
}

// Flush commits everything staged so far and clears the session.
func (s *Session) Flush(ctx context.Context) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	w := &writer{
		tx:       tx,
		explicit: s.explicit,
		done:     make(map[domain.Entity]bool),
	}

	for _, e := range s.removed {
		if err := w.delete(ctx, e); err != nil {
			return err
		}
	}

	// Parents first so children see their generated foreign keys.
	staged := append([]domain.Entity(nil), s.staged...)
	sort.SliceStable(staged, func(i, j int) bool {
		return depth(staged[i]) < depth(staged[j])
	})
	for _, e := range staged {
		if err := w.save(ctx, e); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.staged = nil
	s.removed = nil
	s.explicit = make(map[domain.Entity]bool)
	return nil
}

func depth(e domain.Entity) int {
	switch e.(type) {
	case *domain.Media:
		return 0
	case *domain.File:
		return 1
	case *domain.FileVersion:
		return 2
	default:
		return 3
	}
}

type writer struct {
	tx       *sqlx.Tx
	explicit map[domain.Entity]bool
	done     map[domain.Entity]bool
}

func (w *writer) dirty(e domain.Entity) bool {
	return e.GetID() == 0 || w.explicit[e]
}

func (w *writer) delete(ctx context.Context, e domain.Entity) error {
	if e.GetID() == 0 {
		return nil
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", e.TableName())
	if _, err := w.tx.ExecContext(ctx, query, e.GetID()); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", e.TableName(), err)
	}
	return nil
}

func (w *writer) save(ctx context.Context, e domain.Entity) error {
	if w.done[e] {
		return nil
	}
	w.done[e] = true

	switch e := e.(type) {
	case *domain.Media:
		if w.dirty(e) {
			if err := w.writeMedia(ctx, e); err != nil {
				return err
			}
		}
		if e.File != nil {
			e.File.MediaID = e.ID
			return w.save(ctx, e.File)
		}
		return nil

	case *domain.File:
		if w.dirty(e) {
			if err := w.writeFile(ctx, e); err != nil {
				return err
			}
		}
		for _, v := range e.Versions {
			v.FileID = e.ID
			if err := w.save(ctx, v); err != nil {
				return err
			}
		}
		return nil

	case *domain.FileVersion:
		if w.dirty(e) {
			if err := w.writeFileVersion(ctx, e); err != nil {
				return err
			}
		}
		for _, m := range e.Metas {
			id := e.ID
			m.FileVersionID = &id
			if err := w.save(ctx, m); err != nil {
				return err
			}
		}
		for _, l := range e.ContentLanguages {
			l.FileVersionID = e.ID
			if err := w.save(ctx, l); err != nil {
				return err
			}
		}
		for _, l := range e.PublishLanguages {
			l.FileVersionID = e.ID
			if err := w.save(ctx, l); err != nil {
				return err
			}
		}
		return nil

	case *domain.FileVersionMeta:
		if !w.dirty(e) {
			return nil
		}
		return w.writeMeta(ctx, e)

	case *domain.FileVersionContentLanguage:
		if !w.dirty(e) {
			return nil
		}
		return w.writeLanguage(ctx, e.TableName(), &e.ID, e.FileVersionID, e.Locale)

	case *domain.FileVersionPublishLanguage:
		if !w.dirty(e) {
			return nil
		}
		return w.writeLanguage(ctx, e.TableName(), &e.ID, e.FileVersionID, e.Locale)

	default:
		return fmt.Errorf("unsupported entity %T", e)
	}
}

func (w *writer) writeMedia(ctx context.Context, m *domain.Media) error {
	if m.ID == 0 {
		query := `
            INSERT INTO media (collection_id, type_id, created, changed, creator_id, changer_id)
            VALUES ($1, $2, $3, $4, $5, $6)
            RETURNING id`
		if err := w.tx.QueryRowxContext(ctx, query,
			m.CollectionID, m.TypeID, m.Created, m.Changed, m.CreatorID, m.ChangerID,
		).Scan(&m.ID); err != nil {
			return fmt.Errorf("failed to insert media: %w", err)
		}
		return nil
	}

	query := `UPDATE media SET collection_id = $1, changed = $2, changer_id = $3 WHERE id = $4`
	if _, err := w.tx.ExecContext(ctx, query, m.CollectionID, m.Changed, m.ChangerID, m.ID); err != nil {
		return fmt.Errorf("failed to update media %d: %w", m.ID, err)
	}
	return nil
}

func (w *writer) writeFile(ctx context.Context, f *domain.File) error {
	if f.ID == 0 {
		query := `
            INSERT INTO media_files (media_id, version, created, changed, creator_id, changer_id)
            VALUES ($1, $2, $3, $4, $5, $6)
            RETURNING id`
		if err := w.tx.QueryRowxContext(ctx, query,
			f.MediaID, f.Version, f.Created, f.Changed, f.CreatorID, f.ChangerID,
		).Scan(&f.ID); err != nil {
			return fmt.Errorf("failed to insert media file: %w", err)
		}
		return nil
	}

	query := `UPDATE media_files SET version = $1, changed = $2, changer_id = $3 WHERE id = $4`
	if _, err := w.tx.ExecContext(ctx, query, f.Version, f.Changed, f.ChangerID, f.ID); err != nil {
		return fmt.Errorf("failed to update media file %d: %w", f.ID, err)
	}
	return nil
}

// writeFileVersion never rewrites name, size, storage options or version number of a stored row.
func (w *writer) writeFileVersion(ctx context.Context, v *domain.FileVersion) error {
	if v.ID == 0 {
		query := `
            INSERT INTO media_file_versions
                (file_id, name, size, mime_type, storage_options, version, created, changed, creator_id, changer_id)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
            RETURNING id`
		if err := w.tx.QueryRowxContext(ctx, query,
			v.FileID, v.Name, v.Size, v.MimeType, v.StorageOptions, v.Version,
			v.Created, v.Changed, v.CreatorID, v.ChangerID,
		).Scan(&v.ID); err != nil {
			return fmt.Errorf("failed to insert file version %d: %w", v.Version, err)
		}
		return nil
	}

	query := `UPDATE media_file_versions SET changed = $1, changer_id = $2 WHERE id = $3`
	if _, err := w.tx.ExecContext(ctx, query, v.Changed, v.ChangerID, v.ID); err != nil {
		return fmt.Errorf("failed to update file version %d: %w", v.ID, err)
	}
	return nil
}

func (w *writer) writeMeta(ctx context.Context, m *domain.FileVersionMeta) error {
	if m.ID == 0 {
		query := `
            INSERT INTO media_file_version_metas (file_version_id, title, description, locale)
            VALUES ($1, $2, $3, $4)
            RETURNING id`
		if err := w.tx.QueryRowxContext(ctx, query,
			m.FileVersionID, m.Title, m.Description, m.Locale,
		).Scan(&m.ID); err != nil {
			return fmt.Errorf("failed to insert meta: %w", err)
		}
		return nil
	}

	query := `
        UPDATE media_file_version_metas
        SET file_version_id = $1, title = $2, description = $3, locale = $4
        WHERE id = $5`
	if _, err := w.tx.ExecContext(ctx, query,
		m.FileVersionID, m.Title, m.Description, m.Locale, m.ID,
	); err != nil {
		return fmt.Errorf("failed to update meta %d: %w", m.ID, err)
	}
	return nil
}

func (w *writer) writeLanguage(ctx context.Context, table string, id *int64, fileVersionID int64, locale string) error {
	if *id == 0 {
		query := fmt.Sprintf(`INSERT INTO %s (file_version_id, locale) VALUES ($1, $2) RETURNING id`, table)
		if err := w.tx.QueryRowxContext(ctx, query, fileVersionID, locale).Scan(id); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
		return nil
	}

	query := fmt.Sprintf(`UPDATE %s SET file_version_id = $1, locale = $2 WHERE id = $3`, table)
	if _, err := w.tx.ExecContext(ctx, query, fileVersionID, locale, *id); err != nil {
		return fmt.Errorf("failed to update %s %d: %w", table, *id, err)
	}
	return nil
}
