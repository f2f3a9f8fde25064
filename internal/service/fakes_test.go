package service

import (
	"context"
	"fmt"
	"time"

	"mediabundle/internal/config"
	"mediabundle/internal/domain"
	"mediabundle/internal/repository"
)

var testNow = time.Date(2024, 5, 17, 10, 30, 0, 0, time.UTC)

var testTypes = []config.MediaTypeConfig{
	{ID: 1, Name: "document", Extensions: []string{"*"}},
	{ID: 2, Name: "image", Extensions: []string{"jpg", "png"}},
}

type fakeMediaRepo struct {
	media map[int64]*domain.Media
	err   error
}

func (r *fakeMediaRepo) FindMediaByID(_ context.Context, id int64) (*domain.Media, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.media[id], nil
}

func (r *fakeMediaRepo) FindMediaByIDForDelete(ctx context.Context, id int64) (*domain.Media, error) {
	return r.FindMediaByID(ctx, id)
}

type fakeCollections map[int64]*domain.Collection

func (c fakeCollections) Find(_ context.Context, id int64) (*domain.Collection, error) {
	return c[id], nil
}

type fakeUsers map[int64]*domain.User

func (u fakeUsers) FindUserByID(_ context.Context, id int64) (*domain.User, error) {
	return u[id], nil
}

type fakeMediaTypes map[int64]*domain.MediaType

func (t fakeMediaTypes) Find(_ context.Context, id int64) (*domain.MediaType, error) {
	return t[id], nil
}

// fakeSession records staged entities. On a successful flush removed media vanish from repo.
type fakeSession struct {
	persisted []domain.Entity
	removed   []domain.Entity
	flushes   int
	flushErr  error
	repo      *fakeMediaRepo
}

func (s *fakeSession) Persist(e domain.Entity) { s.persisted = append(s.persisted, e) }

func (s *fakeSession) Remove(e domain.Entity) { s.removed = append(s.removed, e) }

func (s *fakeSession) Flush(context.Context) error {
	s.flushes++
	if s.flushErr != nil {
		return s.flushErr
	}
	if s.repo != nil {
		for _, e := range s.removed {
			if m, ok := e.(*domain.Media); ok {
				delete(s.repo.media, m.ID)
			}
		}
	}
	return nil
}

type saveCall struct {
	source   string
	name     string
	version  int
	previous domain.StorageOptions
}

type fakeStorage struct {
	saves     []saveCall
	removes   []domain.StorageOptions
	saveErr   error
	removeErr map[domain.StorageOptions]error
}

func (s *fakeStorage) Save(_ context.Context, source, name string, version int, previous domain.StorageOptions) (domain.StorageOptions, error) {
	s.saves = append(s.saves, saveCall{source: source, name: name, version: version, previous: previous})
	if s.saveErr != nil {
		return "", s.saveErr
	}
	return domain.StorageOptions(fmt.Sprintf(`{"name":%q,"version":%d}`, name, version)), nil
}

func (s *fakeStorage) Remove(_ context.Context, options domain.StorageOptions) error {
	s.removes = append(s.removes, options)
	return s.removeErr[options]
}

type fakeValidator struct {
	err   error
	calls int
}

func (v *fakeValidator) Validate(*domain.UploadedFile) error {
	v.calls++
	return v.err
}

type fakeOrphans struct {
	recorded []domain.StorageOptions
}

func (o *fakeOrphans) Record(_ context.Context, options domain.StorageOptions, _ error) {
	o.recorded = append(o.recorded, options)
}

type fakeOrphanStore struct {
	blobs   []repository.OrphanedBlob
	created []domain.StorageOptions
	deleted []int64
	failed  map[int64]string
	before  time.Time
	inUse   map[domain.StorageOptions]bool
}

func (s *fakeOrphanStore) Create(_ context.Context, options domain.StorageOptions, _ string) error {
	s.created = append(s.created, options)
	return nil
}

func (s *fakeOrphanStore) ListBefore(_ context.Context, before time.Time, limit int) ([]repository.OrphanedBlob, error) {
	s.before = before
	var out []repository.OrphanedBlob
	for _, b := range s.blobs {
		if b.Created.Before(before) && len(out) < limit {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *fakeOrphanStore) Referenced(_ context.Context, options domain.StorageOptions) (bool, error) {
	return s.inUse[options], nil
}

func (s *fakeOrphanStore) Delete(_ context.Context, id int64) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *fakeOrphanStore) MarkFailed(_ context.Context, id int64, reason string) error {
	if s.failed == nil {
		s.failed = make(map[int64]string)
	}
	s.failed[id] = reason
	return nil
}

func ptr[T any](v T) *T { return &v }
