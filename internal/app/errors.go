package app

import "errors"

var (
	// ErrValidation marks a request the caller can fix.
	ErrValidation = errors.New("validation failed")
	// ErrNoData is returned by tabular exports when the roster is empty.
	ErrNoData = errors.New("no data to export")
	// ErrImportFatal means the uploaded container could not be parsed at
	// all; the store is untouched.
	ErrImportFatal = errors.New("import file could not be parsed")
	// ErrPhotoStorageUnavailable means no object store is configured.
	ErrPhotoStorageUnavailable = errors.New("photo storage is not configured")
	// ErrNoPhoto means the record exists but has no stored photo.
	ErrNoPhoto = errors.New("record has no photo")
)
