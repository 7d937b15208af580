package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrDependencyMissing = errors.New("missing dependency")
	ErrExternalService   = errors.New("external service failure")
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrUnsupportedType   = errors.New("unsupported screenshot type")
)
