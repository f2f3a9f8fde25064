package domain

import "time"

// StorageOptions is the opaque locator a storage backend hands out for saved bytes.
type StorageOptions string

type FileVersion struct {
	ID               int64                         `json:"id" db:"id"`
	FileID           int64                         `json:"file_id" db:"file_id"`
	Name             string                        `json:"name" db:"name"`
	Size             int64                         `json:"size" db:"size"`
	MimeType         string                        `json:"mime_type" db:"mime_type"`
	StorageOptions   StorageOptions                `json:"storage_options" db:"storage_options"`
	Version          int                           `json:"version" db:"version"`
	Created          time.Time                     `json:"created" db:"created"`
	Changed          time.Time                     `json:"changed" db:"changed"`
	CreatorID        *int64                        `json:"creator_id,omitempty" db:"creator_id"`
	ChangerID        *int64                        `json:"changer_id,omitempty" db:"changer_id"`
	Metas            []*FileVersionMeta            `json:"metas" db:"-"`
	ContentLanguages []*FileVersionContentLanguage `json:"content_languages" db:"-"`
	PublishLanguages []*FileVersionPublishLanguage `json:"publish_languages" db:"-"`
}

func (FileVersion) TableName() string { return "media_file_versions" }

func (v *FileVersion) GetID() int64 { return v.ID }

func (v *FileVersion) Touch(now time.Time, user *User) {
	v.Changed = now
	v.ChangerID = user.IDRef()
}

type FileVersionMeta struct {
	ID int64 `json:"id" db:"id"`
	// Nil once the meta has been detached from its version.
	FileVersionID *int64 `json:"file_version_id,omitempty" db:"file_version_id"`
	Title         string `json:"title" db:"title"`
	Description   string `json:"description" db:"description"`
	Locale        string `json:"locale" db:"locale"`
}

func (FileVersionMeta) TableName() string { return "media_file_version_metas" }

func (m *FileVersionMeta) GetID() int64 { return m.ID }

type FileVersionContentLanguage struct {
	ID            int64  `json:"id" db:"id"`
	FileVersionID int64  `json:"file_version_id" db:"file_version_id"`
	Locale        string `json:"locale" db:"locale"`
}

func (FileVersionContentLanguage) TableName() string { return "media_file_version_content_languages" }

func (l *FileVersionContentLanguage) GetID() int64 { return l.ID }

type FileVersionPublishLanguage struct {
	ID            int64  `json:"id" db:"id"`
	FileVersionID int64  `json:"file_version_id" db:"file_version_id"`
	Locale        string `json:"locale" db:"locale"`
}

func (FileVersionPublishLanguage) TableName() string { return "media_file_version_publish_languages" }

func (l *FileVersionPublishLanguage) GetID() int64 { return l.ID }
