package auth

import "errors"

var (
	// ErrAuthDenied covers both unknown identity and wrong password so that
	// callers cannot probe which emails exist.
	ErrAuthDenied = errors.New("auth: authentication denied")

	ErrNotFound     = errors.New("auth: not found")
	ErrConflict     = errors.New("auth: conflict")
	ErrInvalidInput = errors.New("auth: invalid input")
)
