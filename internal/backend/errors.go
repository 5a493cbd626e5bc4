package backend

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrDeleted         = errors.New("deleted")
	ErrLocked          = errors.New("locked")
	ErrNotOwnedByUser  = errors.New("not owned by user")
	ErrInvalid         = errors.New("invalid")
	ErrUnauthenticated = errors.New("unauthenticated")
)
