package domain

import "time"

type File struct {
	ID        int64          `json:"id" db:"id"`
	MediaID   int64          `json:"media_id" db:"media_id"`
	Version   int            `json:"version" db:"version"`
	Created   time.Time      `json:"created" db:"created"`
	Changed   time.Time      `json:"changed" db:"changed"`
	CreatorID *int64         `json:"creator_id,omitempty" db:"creator_id"`
	ChangerID *int64         `json:"changer_id,omitempty" db:"changer_id"`
	Versions  []*FileVersion `json:"versions" db:"-"`
}

func (File) TableName() string { return "media_files" }

func (f *File) GetID() int64 { return f.ID }

func (f *File) Stamp(now time.Time, user *User) {
	if f.ID == 0 {
		f.Created = now
		f.CreatorID = user.IDRef()
	}
	f.Changed = now
	f.ChangerID = user.IDRef()
}

// CurrentVersion returns the version whose number equals the file's version counter.
func (f *File) CurrentVersion() *FileVersion {
	for _, v := range f.Versions {
		if v.Version == f.Version {
			return v
		}
	}
	return nil
}

// VersionByID looks up a version of this file by its persisted id.
func (f *File) VersionByID(id int64) *FileVersion {
	for _, v := range f.Versions {
		if v.ID == id {
			return v
		}
	}
	return nil
}

// AppendVersion adds v as the new current version.
func (f *File) AppendVersion(v *FileVersion) {
	f.Versions = append(f.Versions, v)
	f.Version = v.Version
}
