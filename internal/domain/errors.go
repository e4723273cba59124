// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a concurrent modification conflict (optimistic locking).
var ErrConflict = errors.New("conflict: resource was modified by another request")

// ErrValidation indicates the input failed domain validation.
var ErrValidation = errors.New("validation failed")

// ErrUnknownClaim indicates the referenced claim id does not resolve.
var ErrUnknownClaim = errors.New("unknown claim")

// ErrUnknownDecision indicates the referenced decision id does not resolve.
var ErrUnknownDecision = errors.New("unknown decision")

// ErrAlreadyExecuted indicates a decision was already executed and may not
// be executed again or overridden.
var ErrAlreadyExecuted = errors.New("decision already executed")

// ErrInvalidTransition indicates a claim state transition outside the
// allowed edge set. The claim is left unchanged.
var ErrInvalidTransition = errors.New("invalid state transition")
