package dto

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrAlreadyAdmitted = errors.New("identity already admitted")
	ErrAlreadyClosed   = errors.New("vote already closed")
	ErrValidation      = errors.New("validation failed")
	ErrInternalFailure = errors.New("internal failure")
)
