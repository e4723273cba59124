// Package messagequeue defines the message queue port (interface).
package messagequeue

import "context"

// Handler processes a message received from the queue.
type Handler func(ctx context.Context, subject string, data []byte) error

// Queue is the port interface for publishing and subscribing to messages.
// Publishing is fire-and-forget: the core never observes completion
// synchronously, and delivery is at-least-once, so handlers must be
// idempotent.
type Queue interface {
	// Publish sends a message to the given subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// Subscribe registers a handler for messages on the given subject.
	// The returned function cancels the subscription.
	Subscribe(ctx context.Context, subject string, handler Handler) (cancel func(), err error)

	// Drain gracefully drains all subscriptions before closing.
	Drain() error

	// Close shuts down the queue connection immediately.
	Close() error

	// IsConnected reports whether the queue is currently connected.
	IsConnected() bool
}

// Subject constants for the claim pipeline.
const (
	SubjectClaimValidate  = "claims.validate"  // run validation rules after creation
	SubjectClaimSubmit    = "claims.submit"    // submit a validated claim to the payer
	SubjectDenialProcess  = "denials.process"  // classify and score a recorded denial
	SubjectAuthRequest    = "workflows.auth"   // request prior authorization from the payer
	SubjectOutcomeResolve = "outcomes.resolve" // re-evaluate pending outcomes for a claim
)
