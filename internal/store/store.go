package store

import "errors"

// ErrNotFound is returned by every store when the named blob does not exist.
// Callers distinguish it from I/O failures with errors.Is.
var ErrNotFound = errors.New("not found")
