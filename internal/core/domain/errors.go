package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrProviderUnavailable indicates the generation provider is not
	// reachable or not configured. Resolved at provider-selection time,
	// never surfaced per-call.
	ErrProviderUnavailable = errors.New("generation provider unavailable")

	// ErrMalformedResponse indicates provider output that could not be
	// decoded even after a repair pass.
	ErrMalformedResponse = errors.New("malformed provider response")

	// ErrEmptyResponse indicates the provider returned no usable content.
	ErrEmptyResponse = errors.New("empty provider response")

	// ErrBatchCancelled indicates a batch was cancelled before all
	// sub-jobs started.
	ErrBatchCancelled = errors.New("batch cancelled")
)
