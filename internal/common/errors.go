// Package common defines sentinel errors shared across the server layers.
// Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Request-level errors surfaced by the HTTP layer.
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")

	// ErrNotVanityName signals that a requested file name does not carry
	// the .pkpass suffix and therefore is not a vanity pass request.
	ErrNotVanityName = errors.New("not a vanity pass name")
)
