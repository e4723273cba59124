// Package database defines the port interface for the claim repository.
package database

import (
	"context"
	"time"

	"github.com/joebrashear31/RCM-Automation-Project/internal/domain/claim"
	"github.com/joebrashear31/RCM-Automation-Project/internal/domain/decision"
	"github.com/joebrashear31/RCM-Automation-Project/internal/domain/denial"
	"github.com/joebrashear31/RCM-Automation-Project/internal/domain/outcome"
)

// OutcomeFilter narrows outcome listings. Zero values match everything.
type OutcomeFilter struct {
	Category denial.Category
	Action   decision.Action
	ClaimID  string
	Since    time.Time
}

// Store is the port interface for persisting pipeline entities. Each
// method is atomic with respect to the entity it persists.
type Store interface {
	// CreateClaim persists a new claim.
	CreateClaim(ctx context.Context, c *claim.Claim) error

	// GetClaim returns a claim by id, or domain.ErrNotFound.
	GetClaim(ctx context.Context, id string) (*claim.Claim, error)

	// UpdateClaimStatus saves a transitioned claim using an optimistic
	// version check: the update applies only if the stored version still
	// matches c.Version, and bumps the version on success. A lost race
	// returns domain.ErrConflict and leaves the stored claim unchanged.
	UpdateClaimStatus(ctx context.Context, c *claim.Claim) error

	// AppendTransition appends an immutable state transition record.
	AppendTransition(ctx context.Context, rec *claim.TransitionRecord) error

	// ListTransitions returns a claim's transition history, oldest first.
	ListTransitions(ctx context.Context, claimID string) ([]claim.TransitionRecord, error)

	// CreateDenial persists a new denial event.
	CreateDenial(ctx context.Context, ev *denial.Event) error

	// GetDenial returns a denial event by id, or domain.ErrNotFound.
	GetDenial(ctx context.Context, id string) (*denial.Event, error)

	// SaveDecision persists a new agent decision.
	SaveDecision(ctx context.Context, d *decision.AgentDecision) error

	// GetDecision returns a decision by id, or domain.ErrNotFound.
	GetDecision(ctx context.Context, id string) (*decision.AgentDecision, error)

	// ListDecisionsByClaim returns a claim's decisions, newest first.
	ListDecisionsByClaim(ctx context.Context, claimID string) ([]decision.AgentDecision, error)

	// MarkDecisionExecuted atomically flips a pending decision to
	// executed, recording the action taken. Returns
	// domain.ErrAlreadyExecuted if the decision is no longer pending,
	// domain.ErrNotFound if the id does not resolve. At most one of
	// {execute, override} ever succeeds per decision.
	MarkDecisionExecuted(ctx context.Context, id string, action decision.Action) error

	// AnnotateOverride atomically attaches a human override to a pending
	// decision, preserving the original decision fields. Same error
	// contract as MarkDecisionExecuted.
	AnnotateOverride(ctx context.Context, id string, ov decision.Override) error

	// SaveOutcome records an execution outcome, keyed by decision id.
	// Recording is idempotent per decision: a replayed record for a
	// decision whose outcome is already finalized is a no-op.
	SaveOutcome(ctx context.Context, rec *outcome.Record) error

	// GetOutcomeByDecision returns the outcome for a decision, or
	// domain.ErrNotFound.
	GetOutcomeByDecision(ctx context.Context, decisionID string) (*outcome.Record, error)

	// ListOutcomes returns outcome records matching the filter,
	// newest first.
	ListOutcomes(ctx context.Context, f OutcomeFilter) ([]outcome.Record, error)
}
