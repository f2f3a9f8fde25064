package service

import (
	"fmt"
	"mime"
	"path"
	"strings"

	"mediabundle/internal/config"
	"mediabundle/internal/domain"
)

// FileValidator checks uploads against the configured size limit and blocked MIME types.
type FileValidator struct {
	maxFileSize      int64
	blockedMimeTypes []string
}

func NewFileValidator(cfg config.MediaConfig) *FileValidator {
	return &FileValidator{
		maxFileSize:      cfg.MaxFileSize,
		blockedMimeTypes: cfg.BlockedMimeTypes,
	}
}

func (v *FileValidator) Validate(upload *domain.UploadedFile) error {
	if upload == nil || upload.Path == "" || upload.Name == "" {
		return &domain.ValidationError{Code: domain.ValidationMissing, Reason: "no file was uploaded"}
	}

	if v.maxFileSize > 0 && upload.Size > v.maxFileSize {
		return &domain.ValidationError{
			Code:   domain.ValidationTooBig,
			Reason: fmt.Sprintf("file is %d bytes, the limit is %d", upload.Size, v.maxFileSize),
		}
	}

	mimeType := detectMimeType(upload)
	for _, pattern := range v.blockedMimeTypes {
		// A malformed pattern never matches.
		if ok, _ := path.Match(pattern, mimeType); ok {
			return &domain.ValidationError{
				Code:   domain.ValidationBlockedType,
				Reason: fmt.Sprintf("files of type %s are not allowed", mimeType),
			}
		}
	}

	return nil
}

// detectMimeType prefers the declared type and falls back to the extension.
func detectMimeType(upload *domain.UploadedFile) string {
	declared := upload.MimeType
	if declared == "" || declared == "application/octet-stream" {
		if byExt := mime.TypeByExtension("." + upload.Extension()); byExt != "" {
			declared = byExt
		}
	}
	if mediaType, _, err := mime.ParseMediaType(declared); err == nil {
		return mediaType
	}
	return strings.ToLower(declared)
}
