package service

import (
	"slices"
	"time"

	"go.uber.org/zap"

	"mediabundle/internal/domain"
	"mediabundle/internal/logging"
)

// collectionKind describes how one locale-keyed sub-collection of a file version
// is matched against and merged with incoming property entries.
type collectionKind[E any, P any] struct {
	entityID  func(*E) int64
	payloadID func(P) *int64
	// merge copies the fields present in p onto e and reports whether a value changed.
	merge func(*E, P) bool
	build func(P) *E
}

type collectionDiff[E any] struct {
	result  []*E
	updated []*E
	added   []*E
	removed []*E
}

// changed reports a structural change. Merged values alone do not touch the version.
func (d collectionDiff[E]) changed() bool {
	return len(d.added) > 0 || len(d.removed) > 0
}

// reconcile diffs existing against incoming by id. Matched entries are merged,
// existing entries without a match are removed and incoming entries left over are built.
func (k collectionKind[E, P]) reconcile(existing []*E, incoming []P) collectionDiff[E] {
	pending := slices.Clone(incoming)
	var d collectionDiff[E]

	for _, e := range existing {
		id := k.entityID(e)
		i := slices.IndexFunc(pending, func(p P) bool {
			pid := k.payloadID(p)
			return pid != nil && *pid == id && id != 0
		})
		if i < 0 {
			d.removed = append(d.removed, e)
			continue
		}
		if k.merge(e, pending[i]) {
			d.updated = append(d.updated, e)
		}
		d.result = append(d.result, e)
		pending = slices.Delete(pending, i, i+1)
	}

	for _, p := range pending {
		e := k.build(p)
		d.added = append(d.added, e)
		d.result = append(d.result, e)
	}
	return d
}

func set(dst *string, src *string) bool {
	if src == nil || *dst == *src {
		return false
	}
	*dst = *src
	return true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var metaKind = collectionKind[domain.FileVersionMeta, domain.MetaProperties]{
	entityID:  func(m *domain.FileVersionMeta) int64 { return m.ID },
	payloadID: func(p domain.MetaProperties) *int64 { return p.ID },
	merge: func(m *domain.FileVersionMeta, p domain.MetaProperties) bool {
		changed := set(&m.Title, p.Title)
		changed = set(&m.Description, p.Description) || changed
		changed = set(&m.Locale, p.Locale) || changed
		return changed
	},
	build: func(p domain.MetaProperties) *domain.FileVersionMeta {
		return &domain.FileVersionMeta{
			Title:       deref(p.Title),
			Description: deref(p.Description),
			Locale:      deref(p.Locale),
		}
	},
}

var contentLanguageKind = collectionKind[domain.FileVersionContentLanguage, domain.LanguageProperties]{
	entityID:  func(l *domain.FileVersionContentLanguage) int64 { return l.ID },
	payloadID: func(p domain.LanguageProperties) *int64 { return p.ID },
	merge: func(l *domain.FileVersionContentLanguage, p domain.LanguageProperties) bool {
		return set(&l.Locale, p.Locale)
	},
	build: func(p domain.LanguageProperties) *domain.FileVersionContentLanguage {
		return &domain.FileVersionContentLanguage{Locale: deref(p.Locale)}
	},
}

var publishLanguageKind = collectionKind[domain.FileVersionPublishLanguage, domain.LanguageProperties]{
	entityID:  func(l *domain.FileVersionPublishLanguage) int64 { return l.ID },
	payloadID: func(p domain.LanguageProperties) *int64 { return p.ID },
	merge: func(l *domain.FileVersionPublishLanguage, p domain.LanguageProperties) bool {
		return set(&l.Locale, p.Locale)
	},
	build: func(p domain.LanguageProperties) *domain.FileVersionPublishLanguage {
		return &domain.FileVersionPublishLanguage{Locale: deref(p.Locale)}
	},
}

// versionReconciler applies property groups to the versions of one file within a single request.
type versionReconciler struct {
	uow  UnitOfWork
	now  time.Time
	user *domain.User
}

// Apply runs every group against its target version. A group without an id targets
// working; a group with an id targets the version of file carrying that id.
func (r *versionReconciler) Apply(file *domain.File, working *domain.FileVersion, groups []domain.FileVersionProperties) {
	for _, group := range groups {
		target := working
		if group.ID != nil {
			target = file.VersionByID(*group.ID)
		}
		if target == nil {
			logging.L().Debug("property group matches no file version", zap.Int64p("file_version_id", group.ID))
			continue
		}
		r.applyGroup(target, group)
	}
}

func (r *versionReconciler) applyGroup(v *domain.FileVersion, group domain.FileVersionProperties) {
	changed := false

	if group.Metas != nil {
		d := metaKind.reconcile(v.Metas, group.Metas)
		for _, m := range d.removed {
			if m.ID == 0 {
				continue
			}
			// Metas are detached, not deleted.
			m.FileVersionID = nil
			r.uow.Persist(m)
		}
		for _, m := range d.updated {
			r.uow.Persist(m)
		}
		v.Metas = d.result
		changed = d.changed() || changed
	}

	if group.ContentLanguages != nil {
		d := contentLanguageKind.reconcile(v.ContentLanguages, group.ContentLanguages)
		for _, l := range d.removed {
			if l.ID != 0 {
				r.uow.Remove(l)
			}
		}
		for _, l := range d.updated {
			r.uow.Persist(l)
		}
		v.ContentLanguages = d.result
		changed = d.changed() || changed
	}

	if group.PublishLanguages != nil {
		d := publishLanguageKind.reconcile(v.PublishLanguages, group.PublishLanguages)
		for _, l := range d.removed {
			if l.ID != 0 {
				r.uow.Remove(l)
			}
		}
		for _, l := range d.updated {
			r.uow.Persist(l)
		}
		v.PublishLanguages = d.result
		changed = d.changed() || changed
	}

	if changed {
		v.Touch(r.now, r.user)
		r.uow.Persist(v)
	}
}
