// Package repository implements the MySQL persistence layer.  Each domain
// package declares the sentinel errors its store can return; the sentinels
// below are the cross-cutting ones handlers translate directly into HTTP
// statuses.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// resource they are not a party to. Handlers should translate this into an
// HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an update cannot be performed because of
// conflicting state. Handlers should translate this into an HTTP 409
// response.
var ErrConflict = errors.New("conflict")
