// Package apperrors defines the sentinel errors shared across the
// Eternal Sentinel core. Callers should use errors.Is to match these
// values; HTTP handlers translate them into response codes, workers
// translate them into retry/dead-letter decisions.
package apperrors

import "errors"

var (
	// ErrNotFound is returned when a lookup by token or id finds nothing.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyResolved is returned when an operation targets an entity
	// that has already left the state the operation requires (e.g. a
	// CheckIn that is no longer PENDING).
	ErrAlreadyResolved = errors.New("already resolved")

	// ErrAlreadyTriggered is returned when an operation targets a
	// PollingConfig that has already reached the terminal TRIGGERED state.
	ErrAlreadyTriggered = errors.New("already triggered")

	// ErrExpired is returned when a time-bounded artifact (check-in token,
	// trustee access token) is used after its deadline.
	ErrExpired = errors.New("expired")

	// ErrConflict is returned for any other attempt to act on an entity in
	// an incompatible state.
	ErrConflict = errors.New("conflict")

	// ErrStoreUnavailable wraps transient state-store failures. Always
	// retriable at the caller.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrUnauthorized is returned when a caller lacks the required role or
	// presents an invalid/expired credential.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation is returned for malformed caller input.
	ErrValidation = errors.New("validation error")

	// ErrInternal covers invariant violations detected at runtime.
	ErrInternal = errors.New("internal error")
)
