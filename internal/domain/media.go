package domain

import "time"

type Media struct {
	ID           int64       `json:"id" db:"id"`
	CollectionID int64       `json:"collection_id" db:"collection_id"`
	Collection   *Collection `json:"collection,omitempty" db:"-"`
	TypeID       int64       `json:"type_id" db:"type_id"`
	Type         *MediaType  `json:"type,omitempty" db:"-"`
	Created      time.Time   `json:"created" db:"created"`
	Changed      time.Time   `json:"changed" db:"changed"`
	CreatorID    *int64      `json:"creator_id,omitempty" db:"creator_id"`
	ChangerID    *int64      `json:"changer_id,omitempty" db:"changer_id"`
	// One file per media; the version chain hangs off it.
	File *File `json:"file,omitempty" db:"-"`
}

func (Media) TableName() string { return "media" }

func (m *Media) GetID() int64 { return m.ID }

// Stamp sets the changed audit fields, and the created ones for a media not yet persisted.
func (m *Media) Stamp(now time.Time, user *User) {
	if m.ID == 0 {
		m.Created = now
		m.CreatorID = user.IDRef()
	}
	m.Changed = now
	m.ChangerID = user.IDRef()
}

type MediaType struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

type Collection struct {
	ID  int64  `json:"id" db:"id"`
	Key string `json:"key" db:"collection_key"`
}

type User struct {
	ID       int64  `json:"id" db:"id"`
	Username string `json:"username" db:"username"`
}

// IDRef returns a pointer to the user id, or nil for an unknown user.
func (u *User) IDRef() *int64 {
	if u == nil {
		return nil
	}
	id := u.ID
	return &id
}
