package service

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrInvalidInput         = errors.New("invalid input")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrNoDocuments          = errors.New("no billing documents for selected period")
	ErrExportRequiresFrozen = errors.New("official export requires frozen periods")
	ErrStaleDocuments       = errors.New("billing documents are out of date")
)
