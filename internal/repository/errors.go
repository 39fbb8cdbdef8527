package repository

import "errors"

// ErrNotFound is returned when the referenced record does not exist.
var ErrNotFound = errors.New("record not found")
