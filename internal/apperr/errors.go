// Package apperr holds the sentinel errors shared by services and handlers.
package apperr

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrAlreadyExists     = errors.New("already exists")
	ErrAlreadySubscribed = errors.New("already subscribed")
	ErrInvalidParent     = errors.New("invalid parent comment")
	ErrInvalidSlug       = errors.New("invalid slug")
	ErrUnauthorized      = errors.New("unauthorized")
)
