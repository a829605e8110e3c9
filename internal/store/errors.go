package store

import "errors"

// ErrNotFound is returned when a requested row does not exist for the
// given principal.
var ErrNotFound = errors.New("not found")

// ErrNoID is returned when the database fails to yield an id for an
// inserted row.
var ErrNoID = errors.New("no id")

// ErrUnknownEntity is returned for entity kinds outside the closed set.
var ErrUnknownEntity = errors.New("unknown entity kind")
