package apperrors

import "errors"

// Sentinel errors for the subscription domain. Services wrap these with %w
// and controllers map them onto HTTP statuses.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrProcessor  = errors.New("payment processor failure")
	ErrSignature  = errors.New("webhook signature verification failed")
	ErrBadRequest = errors.New("bad request")
)
