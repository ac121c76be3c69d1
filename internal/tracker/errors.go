package tracker

import "errors"

var (
	ErrNotFound      = errors.New("tracker: not found")
	ErrAlreadyExists = errors.New("tracker: already exists")
	ErrInvalidInput  = errors.New("tracker: invalid input")
	ErrClosed        = errors.New("tracker: issue already closed")
)
