package repositories

import "errors"

// ErrNotFound is returned (wrapped with context) when a record does not
// exist. Callers test for it with errors.Is.
var ErrNotFound = errors.New("record not found")
