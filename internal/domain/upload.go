package domain

import (
	"path/filepath"
	"strings"
)

// UploadedFile describes bytes the transport has already written to Path.
type UploadedFile struct {
	Path     string
	Name     string
	Size     int64
	MimeType string
}

// Extension returns the lower-cased file extension without the leading dot.
func (u *UploadedFile) Extension() string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(u.Name), "."))
}
