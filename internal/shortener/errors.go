package shortener

import "errors"

var (
	// ErrNotFound is returned by a Repository when no row matches.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateCode is returned by Repository.Save when the code is already taken.
	ErrDuplicateCode = errors.New("duplicate short code")

	ErrInvalidURL        = errors.New("invalid url")
	ErrInvalidCustomCode = errors.New("invalid custom code")
	ErrInvalidExpiry     = errors.New("invalid expiry")
	ErrCodeInUse         = errors.New("short code already in use")
	ErrExhaustedAttempts = errors.New("unable to generate a unique short code")

	ErrRateLimited  = errors.New("rate limit exceeded")
	ErrCodeNotFound = errors.New("short code not found")
	ErrExpired      = errors.New("short url has expired")
)
