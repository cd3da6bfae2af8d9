package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers
// return these (optionally wrapped) so services and callers can branch on
// them with errors.Is.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: record does not exist in the store (or belongs to another tenant)
// - ErrExpired: credential has passed its expiry
// - ErrAlreadyUsed: single-use credential already consumed or revoked
// - ErrConflict: uniqueness or concurrent-write conflict
// - ErrInvalidState: record in wrong state for the requested operation
// - ErrUnavailable: backing service temporarily unavailable
//
// For validation errors (bad input, out-of-domain values), use
// pkg/domain-errors instead.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
