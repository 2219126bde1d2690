package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidPath   = errors.New("not a song file")
	ErrEmptyContent  = errors.New("no content to convert")
	ErrNotApplicable = errors.New("content is not in tablature format")
)
