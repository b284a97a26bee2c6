package db

import "errors"

var (
	// ErrValidation indicates a blank or malformed required field
	ErrValidation = errors.New("validation failed")

	// ErrConflict indicates an identity resolution invariant was violated
	ErrConflict = errors.New("identity conflict")

	// ErrNotFound indicates the referenced worker or punch does not exist
	ErrNotFound = errors.New("not found")
)
