package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediabundle/internal/domain"
	"mediabundle/internal/repository"
)

func TestReclaimService_Record(t *testing.T) {
	store := &fakeOrphanStore{}
	svc := NewReclaimService(store, &fakeStorage{}, time.Minute, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc.Record(ctx, "tok-1", errors.New("commit failed"))

	assert.Equal(t, []domain.StorageOptions{"tok-1"}, store.created)
}

func TestReclaimService_Sweep(t *testing.T) {
	store := &fakeOrphanStore{blobs: []repository.OrphanedBlob{
		{ID: 1, StorageOptions: "tok-old", Created: testNow.Add(-time.Hour)},
		{ID: 2, StorageOptions: "tok-broken", Created: testNow.Add(-time.Hour)},
		{ID: 3, StorageOptions: "tok-fresh", Created: testNow.Add(-time.Minute)},
	}}
	backend := &fakeStorage{removeErr: map[domain.StorageOptions]error{
		"tok-broken": errors.New("access denied"),
	}}
	svc := NewReclaimService(store, backend, 15*time.Minute, 10)
	svc.now = func() time.Time { return testNow }

	n, err := svc.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, n)
	assert.Equal(t, testNow.Add(-15*time.Minute), store.before)
	assert.Equal(t, []domain.StorageOptions{"tok-old", "tok-broken"}, backend.removes)
	assert.Equal(t, []int64{1}, store.deleted)
	assert.Equal(t, map[int64]string{2: "access denied"}, store.failed)
}

func TestReclaimService_SweepRespectsBatchSize(t *testing.T) {
	store := &fakeOrphanStore{blobs: []repository.OrphanedBlob{
		{ID: 1, StorageOptions: "a", Created: testNow.Add(-time.Hour)},
		{ID: 2, StorageOptions: "b", Created: testNow.Add(-time.Hour)},
	}}
	backend := &fakeStorage{}
	svc := NewReclaimService(store, backend, 0, 1)
	svc.now = func() time.Time { return testNow }

	n, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []int64{1}, store.deleted)
}

func TestReclaimService_SweepKeepsReferencedBlobs(t *testing.T) {
	store := &fakeOrphanStore{
		blobs: []repository.OrphanedBlob{
			{ID: 1, StorageOptions: "tok-committed", Created: testNow.Add(-time.Hour)},
			{ID: 2, StorageOptions: "tok-orphan", Created: testNow.Add(-time.Hour)},
		},
		inUse: map[domain.StorageOptions]bool{"tok-committed": true},
	}
	backend := &fakeStorage{}
	svc := NewReclaimService(store, backend, time.Minute, 10)
	svc.now = func() time.Time { return testNow }

	n, err := svc.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, n)
	assert.Equal(t, []domain.StorageOptions{"tok-orphan"}, backend.removes)
	assert.Equal(t, []int64{1, 2}, store.deleted)
}
