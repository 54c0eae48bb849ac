package models

import "errors"

// Sentinel errors shared by storage and services.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation error")
	ErrConflict      = errors.New("conflict")
	ErrUnknownTenant = errors.New("sender is not linked to a tenant")
)
