package models

import "errors"

// ErrNotFound is returned by stores when no record matches.
var ErrNotFound = errors.New("not found")
