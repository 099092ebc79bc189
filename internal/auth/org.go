package auth

import "errors"

var (
	// ErrOrgMismatch indicates a resource belongs to a different owner org.
	ErrOrgMismatch = errors.New("org mismatch")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("resource not found")
)
