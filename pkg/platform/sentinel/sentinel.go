package sentinel

import "errors"

// Sentinel errors for storage and infrastructure facts. Stores return these
// (optionally wrapped) and services translate them into domain errors.
//
//   - ErrNotFound: a document, group or session entry does not exist
//   - ErrConflict: a conditional write lost against a concurrent change
//   - ErrExpired: an undo entry or pending request outlived its window
//   - ErrAlreadyUsed: a retrieval code is already held by an active document
//   - ErrInvalidState: a stored entity is in the wrong state for the operation
//   - ErrUnavailable: a collaborator is temporarily unavailable or exhausted
//
// Validation failures use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
