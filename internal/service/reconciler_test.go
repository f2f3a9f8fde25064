package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediabundle/internal/domain"
)

func versionWithMetas() *domain.FileVersion {
	id := int64(10)
	return &domain.FileVersion{
		ID:      id,
		Version: 1,
		Metas: []*domain.FileVersionMeta{
			{ID: 1, FileVersionID: &id, Title: "A", Locale: "en"},
			{ID: 2, FileVersionID: &id, Title: "B", Locale: "de"},
		},
	}
}

func metaIDs(metas []*domain.FileVersionMeta) []int64 {
	ids := make([]int64, 0, len(metas))
	for _, m := range metas {
		ids = append(ids, m.ID)
	}
	return ids
}

func TestReconcile_MetaMergeExample(t *testing.T) {
	v := versionWithMetas()
	detached := v.Metas[1]
	file := &domain.File{Version: 1, Versions: []*domain.FileVersion{v}}
	session := &fakeSession{}
	user := &domain.User{ID: 7}

	rec := &versionReconciler{uow: session, now: testNow, user: user}
	rec.Apply(file, v, []domain.FileVersionProperties{{
		Metas: []domain.MetaProperties{
			{ID: ptr(int64(1)), Title: ptr("A2")},
			{ID: ptr(int64(3)), Title: ptr("C"), Locale: ptr("fr")},
		},
	}})

	require.Len(t, v.Metas, 2)
	assert.Equal(t, "A2", v.Metas[0].Title)
	assert.Equal(t, "en", v.Metas[0].Locale)
	assert.Equal(t, int64(1), v.Metas[0].ID)

	// Id 3 is unknown, so the entry is created and gets its id on flush.
	assert.Equal(t, int64(0), v.Metas[1].ID)
	assert.Equal(t, "C", v.Metas[1].Title)
	assert.Equal(t, "fr", v.Metas[1].Locale)

	assert.Nil(t, detached.FileVersionID)
	assert.Contains(t, session.persisted, domain.Entity(detached))
	assert.Contains(t, session.persisted, domain.Entity(v))
	assert.Empty(t, session.removed)

	assert.Equal(t, testNow, v.Changed)
	require.NotNil(t, v.ChangerID)
	assert.Equal(t, int64(7), *v.ChangerID)

	// Once stored, the new entry takes id 3 and the result is {1, 3}.
	v.Metas[1].ID = 3
	assert.Equal(t, []int64{1, 3}, metaIDs(v.Metas))
}

func TestReconcile_LanguagesAreDeletedOnOmission(t *testing.T) {
	v := &domain.FileVersion{
		ID: 10,
		ContentLanguages: []*domain.FileVersionContentLanguage{
			{ID: 1, FileVersionID: 10, Locale: "en"},
			{ID: 2, FileVersionID: 10, Locale: "de"},
		},
		PublishLanguages: []*domain.FileVersionPublishLanguage{
			{ID: 5, FileVersionID: 10, Locale: "en"},
		},
	}
	dropped := v.ContentLanguages[1]
	droppedPublish := v.PublishLanguages[0]
	file := &domain.File{Version: 1, Versions: []*domain.FileVersion{v}}
	session := &fakeSession{}

	rec := &versionReconciler{uow: session, now: testNow}
	rec.Apply(file, v, []domain.FileVersionProperties{{
		ContentLanguages: []domain.LanguageProperties{{ID: ptr(int64(1))}, {Locale: ptr("fr")}},
		PublishLanguages: []domain.LanguageProperties{},
	}})

	require.Len(t, v.ContentLanguages, 2)
	assert.Equal(t, "en", v.ContentLanguages[0].Locale)
	assert.Equal(t, "fr", v.ContentLanguages[1].Locale)
	assert.Empty(t, v.PublishLanguages)

	assert.ElementsMatch(t, []domain.Entity{dropped, droppedPublish}, session.removed)
	assert.Contains(t, session.persisted, domain.Entity(v))
}

func TestReconcile_AbsentKeysLeaveCollectionsAlone(t *testing.T) {
	v := versionWithMetas()
	v.ContentLanguages = []*domain.FileVersionContentLanguage{{ID: 4, FileVersionID: 10, Locale: "en"}}
	file := &domain.File{Version: 1, Versions: []*domain.FileVersion{v}}
	session := &fakeSession{}

	rec := &versionReconciler{uow: session, now: testNow}
	rec.Apply(file, v, []domain.FileVersionProperties{{}})

	assert.Len(t, v.Metas, 2)
	assert.Len(t, v.ContentLanguages, 1)
	assert.Empty(t, session.persisted)
	assert.Empty(t, session.removed)
	assert.True(t, v.Changed.IsZero())
}

func TestReconcile_Idempotent(t *testing.T) {
	v := versionWithMetas()
	file := &domain.File{Version: 1, Versions: []*domain.FileVersion{v}}
	groups := []domain.FileVersionProperties{{
		Metas: []domain.MetaProperties{
			{ID: ptr(int64(1)), Title: ptr("A2")},
			{ID: ptr(int64(2)), Title: ptr("B"), Locale: ptr("de")},
		},
	}}

	first := &fakeSession{}
	(&versionReconciler{uow: first, now: testNow}).Apply(file, v, groups)
	assert.NotEmpty(t, first.persisted)
	afterFirst := append([]*domain.FileVersionMeta(nil), v.Metas...)

	second := &fakeSession{}
	(&versionReconciler{uow: second, now: testNow}).Apply(file, v, groups)

	assert.Equal(t, afterFirst, v.Metas)
	assert.Empty(t, second.persisted)
	assert.Empty(t, second.removed)
}

func TestReconcile_ValueChangeDoesNotTouchVersion(t *testing.T) {
	v := versionWithMetas()
	file := &domain.File{Version: 1, Versions: []*domain.FileVersion{v}}
	session := &fakeSession{}

	(&versionReconciler{uow: session, now: testNow, user: &domain.User{ID: 7}}).Apply(file, v, []domain.FileVersionProperties{{
		Metas: []domain.MetaProperties{
			{ID: ptr(int64(1)), Title: ptr("A2")},
			{ID: ptr(int64(2))},
		},
	}})

	assert.Equal(t, "A2", v.Metas[0].Title)
	assert.Equal(t, []domain.Entity{v.Metas[0]}, session.persisted)
	assert.NotContains(t, session.persisted, domain.Entity(v))
	assert.True(t, v.Changed.IsZero())
	assert.Nil(t, v.ChangerID)
}

func TestReconcile_PartialOverwrite(t *testing.T) {
	id := int64(10)
	v := &domain.FileVersion{ID: id, Metas: []*domain.FileVersionMeta{
		{ID: 1, FileVersionID: &id, Title: "Title", Description: "Desc", Locale: "en"},
	}}
	file := &domain.File{Version: 1, Versions: []*domain.FileVersion{v}}

	(&versionReconciler{uow: &fakeSession{}, now: testNow}).Apply(file, v, []domain.FileVersionProperties{{
		Metas: []domain.MetaProperties{{ID: ptr(int64(1)), Description: ptr("New")}},
	}})

	require.Len(t, v.Metas, 1)
	assert.Equal(t, "Title", v.Metas[0].Title)
	assert.Equal(t, "New", v.Metas[0].Description)
	assert.Equal(t, "en", v.Metas[0].Locale)
}

func TestReconcile_GroupTargeting(t *testing.T) {
	old := &domain.FileVersion{ID: 10, Version: 1}
	current := &domain.FileVersion{ID: 11, Version: 2}
	file := &domain.File{Version: 2, Versions: []*domain.FileVersion{old, current}}
	session := &fakeSession{}

	(&versionReconciler{uow: session, now: testNow}).Apply(file, current, []domain.FileVersionProperties{
		{ID: ptr(int64(10)), ContentLanguages: []domain.LanguageProperties{{Locale: ptr("de")}}},
		{Metas: []domain.MetaProperties{{Title: ptr("Current"), Locale: ptr("en")}}},
		{ID: ptr(int64(99)), Metas: []domain.MetaProperties{{Title: ptr("Ignored")}}},
	})

	require.Len(t, old.ContentLanguages, 1)
	assert.Equal(t, "de", old.ContentLanguages[0].Locale)
	assert.Empty(t, old.Metas)

	require.Len(t, current.Metas, 1)
	assert.Equal(t, "Current", current.Metas[0].Title)
	assert.Empty(t, current.ContentLanguages)

	assert.ElementsMatch(t, []domain.Entity{old, current}, session.persisted)
}

func TestReconcile_UnsavedEntriesAreDroppedSilently(t *testing.T) {
	v := &domain.FileVersion{Metas: []*domain.FileVersionMeta{{Title: "draft"}}}
	file := &domain.File{Version: 1, Versions: []*domain.FileVersion{v}}
	session := &fakeSession{}

	(&versionReconciler{uow: session, now: testNow}).Apply(file, v, []domain.FileVersionProperties{
		{Metas: []domain.MetaProperties{}},
	})

	assert.Empty(t, v.Metas)
	assert.Equal(t, []domain.Entity{v}, session.persisted)
}
