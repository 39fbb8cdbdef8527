package service

import "errors"

// ErrInvalidRequest is returned when a caller violates an operation's
// preconditions, such as replying with no message ids or empty text.
var ErrInvalidRequest = errors.New("invalid request")
