package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mediabundle/internal/config"
	"mediabundle/internal/domain"
	"mediabundle/internal/logging"
	"mediabundle/internal/metrics"
	"mediabundle/internal/storage"
)

// MediaManagerDeps groups the collaborators of a MediaManager.
type MediaManagerDeps struct {
	Media       MediaRepository
	Collections CollectionRepository
	Users       UserRepository
	MediaTypes  MediaTypeRepository
	// NewSession returns a fresh unit of work for one operation.
	NewSession func() UnitOfWork
	Storage    storage.Storage
	Validator  Validator
	Orphans    OrphanRecorder
	Types      []config.MediaTypeConfig
	Now        func() time.Time
}

// MediaManager owns the media -> file -> file version chain. Bytes are written to
// storage before the database commit; a failed commit hands them to the orphan recorder.
type MediaManager struct {
	media       MediaRepository
	collections CollectionRepository
	users       UserRepository
	types       *MediaTypeResolver
	newSession  func() UnitOfWork
	storage     storage.Storage
	validator   Validator
	orphans     OrphanRecorder
	now         func() time.Time
}

func NewMediaManager(deps MediaManagerDeps) *MediaManager {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &MediaManager{
		media:       deps.Media,
		collections: deps.Collections,
		users:       deps.Users,
		types:       NewMediaTypeResolver(deps.Types, deps.MediaTypes),
		newSession:  deps.NewSession,
		storage:     deps.Storage,
		validator:   deps.Validator,
		orphans:     deps.Orphans,
		now:         now,
	}
}

// Get returns the media with its whole version chain.
func (s *MediaManager) Get(ctx context.Context, id int64) (media *domain.Media, err error) {
	defer func() { metrics.RecordOperation("get", err) }()

	media, err = s.media.FindMediaByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	if media == nil {
		return nil, fmt.Errorf("%w: %d", domain.ErrNotFound, id)
	}
	return media, nil
}

// Add stores upload as version 1 of a new media in the given collection.
func (s *MediaManager) Add(
	ctx context.Context,
	upload *domain.UploadedFile,
	userID int64,
	collectionID int64,
	properties []domain.FileVersionProperties,
) (media *domain.Media, err error) {
	defer func() { metrics.RecordOperation("add", err) }()

	if err := s.validator.Validate(upload); err != nil {
		return nil, err
	}

	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	collection, err := s.findCollection(ctx, collectionID)
	if err != nil {
		return nil, err
	}

	mediaType, err := s.types.Resolve(ctx, upload)
	if err != nil {
		return nil, err
	}

	options, err := s.save(ctx, upload, 1, "")
	if err != nil {
		return nil, err
	}

	now := s.now()
	version := newFileVersion(upload, 1, options, now, user)

	file := &domain.File{}
	file.Stamp(now, user)
	file.AppendVersion(version)

	media = &domain.Media{
		CollectionID: collection.ID,
		Collection:   collection,
		TypeID:       mediaType.ID,
		Type:         mediaType,
		File:         file,
	}
	media.Stamp(now, user)

	session := s.newSession()
	rec := &versionReconciler{uow: session, now: now, user: user}
	rec.Apply(file, version, properties)

	session.Persist(media)
	if err := s.commit(ctx, session, options); err != nil {
		return nil, err
	}

	metrics.RecordUpload(upload.Size)
	logging.WithContext(ctx).Info("media added",
		logging.Int64("media_id", media.ID),
		logging.Int64("collection_id", collection.ID),
		logging.String("type", mediaType.Name),
	)
	return media, nil
}

// Update changes the collection and properties of a media and, when upload is not nil,
// appends a new file version. An update never changes the media type.
func (s *MediaManager) Update(
	ctx context.Context,
	upload *domain.UploadedFile,
	userID int64,
	id int64,
	collectionID *int64,
	properties []domain.FileVersionProperties,
) (media *domain.Media, err error) {
	defer func() { metrics.RecordOperation("update", err) }()

	media, err = s.media.FindMediaByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	if media == nil {
		return nil, fmt.Errorf("%w: %d", domain.ErrNotFound, id)
	}

	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Every check runs before the graph is touched.
	if upload != nil {
		mediaType, err := s.types.Resolve(ctx, upload)
		if err != nil {
			return nil, err
		}
		if mediaType.ID != media.TypeID {
			expected := domain.MediaType{ID: media.TypeID}
			if media.Type != nil {
				expected = *media.Type
			}
			return nil, &domain.InvalidMediaTypeError{Expected: expected, Given: *mediaType}
		}
		if err := s.validator.Validate(upload); err != nil {
			return nil, err
		}
	}

	var collection *domain.Collection
	if collectionID != nil {
		collection, err = s.findCollection(ctx, *collectionID)
		if err != nil {
			return nil, err
		}
	}

	file := media.File
	if file == nil {
		return nil, fmt.Errorf("%w: media %d has no file", domain.ErrFileVersionNotFound, id)
	}
	current := file.CurrentVersion()
	if current == nil {
		return nil, fmt.Errorf("%w: media %d, version %d", domain.ErrFileVersionNotFound, id, file.Version)
	}

	var options domain.StorageOptions
	if upload != nil {
		options, err = s.save(ctx, upload, file.Version+1, current.StorageOptions)
		if err != nil {
			return nil, err
		}
	}

	now := s.now()
	media.Stamp(now, user)
	if collection != nil {
		media.CollectionID = collection.ID
		media.Collection = collection
	}
	file.Stamp(now, user)

	working := current
	if upload != nil {
		working = newFileVersion(upload, file.Version+1, options, now, user)
		file.AppendVersion(working)
	}

	session := s.newSession()
	rec := &versionReconciler{uow: session, now: now, user: user}
	rec.Apply(file, working, properties)

	session.Persist(media)
	session.Persist(file)
	if err := s.commit(ctx, session, options); err != nil {
		return nil, err
	}

	if upload != nil {
		metrics.RecordUpload(upload.Size)
	}
	logging.WithContext(ctx).Info("media updated",
		logging.Int64("media_id", media.ID),
		logging.Int("version", file.Version),
	)
	return media, nil
}

// Remove deletes the bytes of every file version and then the media rows.
// If any storage call fails nothing is deleted from the database.
func (s *MediaManager) Remove(ctx context.Context, id int64, userID int64) (err error) {
	defer func() { metrics.RecordOperation("remove", err) }()

	media, err := s.media.FindMediaByIDForDelete(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	if media == nil {
		return fmt.Errorf("%w: %d", domain.ErrNotFound, id)
	}

	var errs []error
	if media.File != nil {
		for _, v := range media.File.Versions {
			rmErr := s.storage.Remove(ctx, v.StorageOptions)
			metrics.RecordStorage("remove", rmErr)
			if rmErr != nil {
				errs = append(errs, fmt.Errorf("version %d: %w", v.Version, rmErr))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrStorage, errors.Join(errs...))
	}

	session := s.newSession()
	session.Remove(media)
	if err := session.Flush(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	logging.WithContext(ctx).Info("media removed",
		logging.Int64("media_id", id),
		logging.Int64("user_id", userID),
	)
	return nil
}

func (s *MediaManager) findUser(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	if user == nil {
		logging.WithContext(ctx).Warn("acting user not found", logging.Int64("user_id", userID))
	}
	return user, nil
}

func (s *MediaManager) findCollection(ctx context.Context, id int64) (*domain.Collection, error) {
	collection, err := s.collections.Find(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	if collection == nil {
		return nil, fmt.Errorf("%w: %d", domain.ErrCollectionNotFound, id)
	}
	return collection, nil
}

func (s *MediaManager) save(ctx context.Context, upload *domain.UploadedFile, version int, previous domain.StorageOptions) (domain.StorageOptions, error) {
	options, err := s.storage.Save(ctx, upload.Path, upload.Name, version, previous)
	metrics.RecordStorage("save", err)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return options, nil
}

// commit flushes session. Bytes saved for this request are recorded as orphaned when it fails.
func (s *MediaManager) commit(ctx context.Context, session UnitOfWork, saved domain.StorageOptions) error {
	err := session.Flush(ctx)
	if err == nil {
		return nil
	}
	if saved != "" && s.orphans != nil {
		s.orphans.Record(ctx, saved, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
}

func newFileVersion(upload *domain.UploadedFile, version int, options domain.StorageOptions, now time.Time, user *domain.User) *domain.FileVersion {
	return &domain.FileVersion{
		Name:           upload.Name,
		Size:           upload.Size,
		MimeType:       detectMimeType(upload),
		StorageOptions: options,
		Version:        version,
		Created:        now,
		Changed:        now,
		CreatorID:      user.IDRef(),
		ChangerID:      user.IDRef(),
	}
}
