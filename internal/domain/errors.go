package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("media not found")
	ErrCollectionNotFound  = errors.New("collection not found")
	ErrFileVersionNotFound = errors.New("current file version not found")
	ErrUnknownMediaType    = errors.New("no media type for file")
	ErrStorage             = errors.New("storage operation failed")
	ErrPersistence         = errors.New("persistence operation failed")
)

const (
	ValidationMissing     = "missing"
	ValidationTooBig      = "too_big"
	ValidationBlockedType = "blocked_type"
)

// ValidationError reports an upload the caller has to correct.
type ValidationError struct {
	Code   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid upload (%s): %s", e.Code, e.Reason)
}

// InvalidMediaTypeError is returned when an update would change the type of a media.
type InvalidMediaTypeError struct {
	Expected MediaType
	Given    MediaType
}

func (e *InvalidMediaTypeError) Error() string {
	return fmt.Sprintf("media must be of type %d (%s), %d (%s) was given",
		e.Expected.ID, e.Expected.Name, e.Given.ID, e.Given.Name)
}
