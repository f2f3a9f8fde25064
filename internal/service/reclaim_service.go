package service

import (
	"context"
	"time"

	"mediabundle/internal/domain"
	"mediabundle/internal/logging"
	"mediabundle/internal/metrics"
	"mediabundle/internal/repository"
	"mediabundle/internal/storage"
)

type OrphanStore interface {
	Create(ctx context.Context, options domain.StorageOptions, reason string) error
	ListBefore(ctx context.Context, before time.Time, limit int) ([]repository.OrphanedBlob, error)
	Referenced(ctx context.Context, options domain.StorageOptions) (bool, error)
	Delete(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, reason string) error
}

// ReclaimService records blobs left behind by failed commits and removes them later.
type ReclaimService struct {
	store       OrphanStore
	storage     storage.Storage
	gracePeriod time.Duration
	batchSize   int
	now         func() time.Time
}

func NewReclaimService(store OrphanStore, backend storage.Storage, gracePeriod time.Duration, batchSize int) *ReclaimService {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &ReclaimService{
		store:       store,
		storage:     backend,
		gracePeriod: gracePeriod,
		batchSize:   batchSize,
		now:         time.Now,
	}
}

// Record stores options for a later sweep. It runs after a failed commit, so it does
// not inherit the request's cancellation.
func (s *ReclaimService) Record(ctx context.Context, options domain.StorageOptions, cause error) {
	ctx = context.WithoutCancel(ctx)
	log := logging.WithContext(ctx)

	reason := ""
	if cause != nil {
		reason = cause.Error()
	}

	if err := s.store.Create(ctx, options, reason); err != nil {
		metrics.RecordOrphan("failed")
		log.Error("failed to record orphaned blob",
			logging.String("storage_options", string(options)),
			logging.Err(err),
		)
		return
	}

	metrics.RecordOrphan("recorded")
	log.Warn("orphaned blob recorded",
		logging.String("storage_options", string(options)),
		logging.String("reason", reason),
	)
}

// Sweep removes orphans older than the grace period and returns how many were reclaimed.
// A blob that cannot be removed stays recorded for the next sweep. A blob a stored file
// version still points at is never removed; only its record is dropped.
func (s *ReclaimService) Sweep(ctx context.Context) (int, error) {
	orphans, err := s.store.ListBefore(ctx, s.now().Add(-s.gracePeriod), s.batchSize)
	if err != nil {
		return 0, err
	}

	reclaimed := 0
	for _, orphan := range orphans {
		referenced, err := s.store.Referenced(ctx, orphan.StorageOptions)
		if err != nil {
			return reclaimed, err
		}
		if referenced {
			logging.WithContext(ctx).Warn("orphaned blob is in use, dropping record",
				logging.Int64("orphan_id", orphan.ID),
				logging.String("storage_options", string(orphan.StorageOptions)),
			)
			if err := s.store.Delete(ctx, orphan.ID); err != nil {
				return reclaimed, err
			}
			metrics.RecordOrphan("in_use")
			continue
		}

		if err := s.storage.Remove(ctx, orphan.StorageOptions); err != nil {
			metrics.RecordOrphan("failed")
			logging.WithContext(ctx).Warn("failed to reclaim orphaned blob",
				logging.Int64("orphan_id", orphan.ID),
				logging.Err(err),
			)
			if markErr := s.store.MarkFailed(ctx, orphan.ID, err.Error()); markErr != nil {
				return reclaimed, markErr
			}
			continue
		}

		if err := s.store.Delete(ctx, orphan.ID); err != nil {
			return reclaimed, err
		}
		metrics.RecordOrphan("reclaimed")
		reclaimed++
	}

	return reclaimed, nil
}

// Run sweeps every interval until ctx is done.
func (s *ReclaimService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n, err := s.Sweep(ctx)
			if err != nil {
				logging.WithContext(ctx).Error("orphan sweep failed", logging.Err(err))
				continue
			}
			if n > 0 {
				logging.WithContext(ctx).Info("orphaned blobs reclaimed", logging.Int("count", n))
			}
		case <-ctx.Done():
			return
		}
	}
}
