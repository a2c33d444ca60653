package domain

import "errors"

var (
	ErrNotFound = errors.New("resource not found")

	// ErrCredentialUnreadable covers both a corrupted and a tampered envelope.
	// Callers must not tell the two apart.
	ErrCredentialUnreadable = errors.New("failed to decrypt credential, please re-enter your key")

	ErrInvalidProvider = errors.New("unsupported credential provider")

	// ErrConcurrencyConflict is returned when optimistic locking detects a lost update.
	ErrConcurrencyConflict = errors.New("optimistic lock failure: the credential was updated concurrently")
)
