// Package event defines the append-only ClaimEvent audit entity.
package event

import (
	"encoding/json"
	"time"

	"github.com/joebrashear31/RCM-Automation-Project/internal/domain/claim"
)

// Type identifies the kind of claim event.
type Type string

const (
	TypeClaimCreated     Type = "CLAIM_CREATED"
	TypeClaimValidated   Type = "CLAIM_VALIDATED"
	TypeClaimSubmitted   Type = "CLAIM_SUBMITTED"
	TypeClaimRejected    Type = "CLAIM_REJECTED"
	TypeClaimAccepted    Type = "CLAIM_ACCEPTED"
	TypeClaimDenied      Type = "CLAIM_DENIED"
	TypeAppealFiled      Type = "APPEAL_FILED"
	TypeClaimResubmitted Type = "CLAIM_RESUBMITTED"
	TypeClaimPaid        Type = "CLAIM_PAID"
	TypeClaimWrittenOff  Type = "CLAIM_WRITTEN_OFF"
	TypeAgentDecision    Type = "AGENT_DECISION"
	TypeWorkflowExecuted Type = "WORKFLOW_EXECUTED"
	TypeHumanOverride    Type = "HUMAN_OVERRIDE"
)

// lifecycleEvents maps each reachable claim status to its lifecycle event.
var lifecycleEvents = map[claim.Status]Type{
	claim.StatusValidated:     TypeClaimValidated,
	claim.StatusSubmitted:     TypeClaimSubmitted,
	claim.StatusRejected:      TypeClaimRejected,
	claim.StatusAccepted:      TypeClaimAccepted,
	claim.StatusDenied:        TypeClaimDenied,
	claim.StatusAppealPending: TypeAppealFiled,
	claim.StatusResubmitted:   TypeClaimResubmitted,
	claim.StatusPaid:          TypeClaimPaid,
	claim.StatusWriteOff:      TypeClaimWrittenOff,
}

// LifecycleType returns the event type appended when a claim reaches the
// given status.
func LifecycleType(status claim.Status) Type {
	return lifecycleEvents[status]
}

// ClaimEvent represents a single immutable event in a claim's audit trail.
// Events record realized history only; rejected operations are not events.
type ClaimEvent struct {
	ID          string          `json:"id"`
	ClaimID     string          `json:"claim_id"`
	Type        Type            `json:"type"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
