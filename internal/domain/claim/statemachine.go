package claim

import (
	"fmt"
	"time"

	"github.com/joebrashear31/RCM-Automation-Project/internal/domain"
)

// transitions is the static edge set of the claim lifecycle. A transition
// is allowed iff (from, to) appears here. Terminal states have no edges.
var transitions = map[Status][]Status{
	StatusCreated:       {StatusValidated},
	StatusValidated:     {StatusSubmitted},
	StatusSubmitted:     {StatusRejected, StatusAccepted, StatusDenied},
	StatusRejected:      {StatusResubmitted},
	StatusDenied:        {StatusAppealPending, StatusResubmitted, StatusWriteOff},
	StatusAppealPending: {StatusAccepted, StatusDenied, StatusWriteOff},
	StatusResubmitted:   {StatusAccepted, StatusDenied, StatusRejected},
	StatusAccepted:      {StatusPaid, StatusWriteOff},
}

// CanTransition reports whether from → to is an allowed lifecycle edge.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidNextStates returns the allowed target states from the given status.
// Terminal states return an empty slice.
func ValidNextStates(from Status) []Status {
	next := transitions[from]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

// InvalidTransitionError reports an attempted transition outside the edge
// set. It carries the current state and valid next states so the caller
// can correct and retry.
type InvalidTransitionError struct {
	ClaimID   string
	From      Status
	To        Status
	ValidNext []Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("claim %s: cannot transition from %s to %s (valid next states: %v)",
		e.ClaimID, e.From, e.To, e.ValidNext)
}

// Unwrap lets callers match with errors.Is(err, domain.ErrInvalidTransition).
func (e *InvalidTransitionError) Unwrap() error { return domain.ErrInvalidTransition }

// ApplyTransition moves the claim to the target status, stamping
// status-specific timestamps, and returns the audit record for the edge.
// On an invalid edge the claim is left unchanged and an
// *InvalidTransitionError is returned.
//
// ApplyTransition only mutates the in-memory claim value. Persistence,
// event logging, and downstream task submission are the caller's job.
func (c *Claim) ApplyTransition(target Status, reason string) (*TransitionRecord, error) {
	if !CanTransition(c.Status, target) {
		return nil, &InvalidTransitionError{
			ClaimID:   c.ID,
			From:      c.Status,
			To:        target,
			ValidNext: ValidNextStates(c.Status),
		}
	}

	now := time.Now().UTC()
	record := &TransitionRecord{
		ClaimID:   c.ID,
		From:      c.Status,
		To:        target,
		Reason:    reason,
		CreatedAt: now,
	}

	c.Status = target
	c.UpdatedAt = now

	switch target {
	case StatusSubmitted, StatusResubmitted:
		c.SubmittedAt = &now
	case StatusAccepted, StatusDenied, StatusRejected:
		c.RespondedAt = &now
	case StatusPaid:
		c.PaidAt = &now
	}

	return record, nil
}
