package domain

// FileVersionProperties is one property group of an add/update payload.
// A nil ID targets the version the request works on; a nil slice means the key was absent.
type FileVersionProperties struct {
	ID               *int64               `json:"id"`
	Metas            []MetaProperties     `json:"metas"`
	ContentLanguages []LanguageProperties `json:"contentLanguages"`
	PublishLanguages []LanguageProperties `json:"publishLanguages"`
}

// MetaProperties carries a partial meta entry; nil fields leave the stored value untouched.
type MetaProperties struct {
	ID          *int64  `json:"id"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Locale      *string `json:"locale"`
}

type LanguageProperties struct {
	ID     *int64  `json:"id"`
	Locale *string `json:"locale"`
}
