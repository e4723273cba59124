package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joebrashear31/RCM-Automation-Project/internal/domain"
	"github.com/joebrashear31/RCM-Automation-Project/internal/domain/claim"
	"github.com/joebrashear31/RCM-Automation-Project/internal/domain/event"
	"github.com/joebrashear31/RCM-Automation-Project/internal/port/database"
	"github.com/joebrashear31/RCM-Automation-Project/internal/port/eventstore"
	"github.com/joebrashear31/RCM-Automation-Project/internal/port/messagequeue"
)

// ClaimService manages the claim lifecycle: registration, state
// transitions with optimistic concurrency, the append-only audit trail,
// and dispatch of follow-up work onto the queue.
type ClaimService struct {
	store  database.Store
	events eventstore.Store
	queue  messagequeue.Queue
}

// NewClaimService creates a ClaimService. queue may be nil, in which case
// no follow-up work is dispatched.
func NewClaimService(store database.Store, events eventstore.Store, queue messagequeue.Queue) *ClaimService {
	return &ClaimService{store: store, events: events, queue: queue}
}

// Create registers a new claim in CREATED, appends the CLAIM_CREATED
// event, and queues the validation pass.
func (s *ClaimService) Create(ctx context.Context, req claim.CreateRequest) (*claim.Claim, error) {
	now := time.Now().UTC()
	c := &claim.Claim{
		ID:                  uuid.NewString(),
		Status:              claim.StatusCreated,
		Amount:              req.Amount,
		CPTCodes:            req.CPTCodes,
		ICDCodes:            req.ICDCodes,
		ServiceStart:        req.ServiceStart,
		ServiceEnd:          req.ServiceEnd,
		ProviderID:          req.ProviderID,
		PayerID:             req.PayerID,
		AuthorizationNumber: req.AuthorizationNumber,
		ClinicalNotes:       req.ClinicalNotes,
		Version:             1,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.CreateClaim(ctx, c); err != nil {
		return nil, fmt.Errorf("create claim: %w", err)
	}

	s.appendEvent(ctx, c.ID, event.TypeClaimCreated, c, "claim registered")
	s.publish(ctx, messagequeue.SubjectClaimValidate, claimMessage{ClaimID: c.ID})

	slog.Info("claim created", "claim_id", c.ID, "payer_id", c.PayerID, "amount", c.Amount)
	return c, nil
}

// Get returns a claim by id.
func (s *ClaimService) Get(ctx context.Context, id string) (*claim.Claim, error) {
	c, err := s.store.GetClaim(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("claim %s: %w", id, domain.ErrUnknownClaim)
		}
		return nil, fmt.Errorf("get claim %s: %w", id, err)
	}
	return c, nil
}

// NextStates returns the valid transition targets for a claim's current
// status. Terminal states return an empty slice.
func (s *ClaimService) NextStates(ctx context.Context, id string) ([]claim.Status, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return claim.ValidNextStates(c.Status), nil
}

// Events returns a claim's audit trail in insertion order.
func (s *ClaimService) Events(ctx context.Context, id string) ([]event.ClaimEvent, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.events.ListByClaim(ctx, id)
}

// Transitions returns a claim's realized transition history, oldest first.
func (s *ClaimService) Transitions(ctx context.Context, id string) ([]claim.TransitionRecord, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListTransitions(ctx, id)
}

// Transition moves a claim along a lifecycle edge. The transition is
// validated against the edge set, persisted with an optimistic version
// check, recorded in the transition history and event log, and then any
// follow-up work is queued. An invalid edge returns
// *claim.InvalidTransitionError with the claim unchanged; a lost
// concurrent race returns domain.ErrConflict.
func (s *ClaimService) Transition(ctx context.Context, id string, target claim.Status, reason string) (*claim.Claim, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	rec, err := c.ApplyTransition(target, reason)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateClaimStatus(ctx, c); err != nil {
		return nil, fmt.Errorf("update claim %s: %w", id, err)
	}

	rec.ID = uuid.NewString()
	if err := s.store.AppendTransition(ctx, rec); err != nil {
		return nil, fmt.Errorf("append transition for claim %s: %w", id, err)
	}

	s.appendEvent(ctx, c.ID, event.LifecycleType(target), rec, reason)
	s.dispatchFollowUp(ctx, c)

	slog.Info("claim transitioned",
		"claim_id", c.ID,
		"from", rec.From,
		"to", rec.To,
		"reason", reason,
	)
	return c, nil
}

// dispatchFollowUp queues pipeline work implied by the state just reached.
func (s *ClaimService) dispatchFollowUp(ctx context.Context, c *claim.Claim) {
	switch c.Status {
	case claim.StatusValidated:
		s.publish(ctx, messagequeue.SubjectClaimSubmit, claimMessage{ClaimID: c.ID})
	case claim.StatusPaid, claim.StatusWriteOff, claim.StatusDenied, claim.StatusRejected:
		// Settling states may resolve pending outcomes from earlier decisions.
		s.publish(ctx, messagequeue.SubjectOutcomeResolve, claimMessage{ClaimID: c.ID})
	}
}

// claimMessage is the queue payload for claim-scoped subjects.
type claimMessage struct {
	ClaimID string `json:"claim_id"`
}

// appendEvent writes to the audit log. Failures are logged, not
// propagated: the primary write already succeeded.
func (s *ClaimService) appendEvent(ctx context.Context, claimID string, typ event.Type, payload any, description string) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("event payload marshal failed", "claim_id", claimID, "type", typ, "error", err)
		data = nil
	}
	ev := &event.ClaimEvent{
		ID:          uuid.NewString(),
		ClaimID:     claimID,
		Type:        typ,
		Payload:     data,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.events.Append(ctx, ev); err != nil {
		slog.Error("event append failed", "claim_id", claimID, "type", typ, "error", err)
	}
}

// publish sends a fire-and-forget queue message. Failures are logged,
// not propagated.
func (s *ClaimService) publish(ctx context.Context, subject string, msg any) {
	if s.queue == nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("queue payload marshal failed", "subject", subject, "error", err)
		return
	}
	if err := s.queue.Publish(ctx, subject, data); err != nil {
		slog.Error("queue publish failed", "subject", subject, "error", err)
	}
}
