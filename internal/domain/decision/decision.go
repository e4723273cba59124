// Package decision defines the AgentDecision entity, the deterministic
// rule table, and the stateless decision-scoring engine.
package decision

import (
	"fmt"
	"time"

	"github.com/joebrashear31/RCM-Automation-Project/internal/domain"
	"github.com/joebrashear31/RCM-Automation-Project/internal/domain/denial"
)

// Action is a remedial action the pipeline can take on a denied claim.
type Action string

const (
	ActionAppeal       Action = "APPEAL"
	ActionResubmit     Action = "RESUBMIT"
	ActionWriteOff     Action = "WRITE_OFF"
	ActionRequestAuth  Action = "REQUEST_AUTH"
	ActionNoAction     Action = "NO_ACTION"
	ActionFlagForHuman Action = "FLAG_FOR_HUMAN"
)

// ParseAction validates an action value received from an external caller.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionAppeal, ActionResubmit, ActionWriteOff, ActionRequestAuth,
		ActionNoAction, ActionFlagForHuman:
		return a, nil
	default:
		return "", fmt.Errorf("action %q: %w", s, domain.ErrValidation)
	}
}

// ExecutionStatus tracks whether a decision has been acted on. It is the
// only mutable aspect of a persisted decision.
type ExecutionStatus string

const (
	ExecutionPending    ExecutionStatus = "pending"
	ExecutionExecuted   ExecutionStatus = "executed"
	ExecutionOverridden ExecutionStatus = "overridden"
)

// Override is a human reviewer's annotation on a pending decision. The
// original agent decision is preserved unmodified alongside it.
type Override struct {
	Action   Action    `json:"action"`
	Reviewer string    `json:"reviewer"`
	Notes    string    `json:"notes,omitempty"`
	At       time.Time `json:"at"`
}

// AgentDecision binds the engine's output to one denial event and one
// claim. Created once per classification pass; execution status is the
// only field that changes afterward, and an override is additive.
type AgentDecision struct {
	ID            string          `json:"id"`
	ClaimID       string          `json:"claim_id"`
	DenialEventID string          `json:"denial_event_id"`
	Decision      Action          `json:"decision"`
	Confidence    float64         `json:"confidence"`
	Rationale     string          `json:"rationale"`
	MissingInfo   []string        `json:"missing_info"`
	Category      denial.Category `json:"category"`
	RuleAction    RecommendedAction `json:"rule_action"`
	SuccessRate   float64         `json:"historical_success_rate"`

	ExecutionStatus ExecutionStatus `json:"execution_status"`
	ExecutedAction  Action          `json:"executed_action,omitempty"`
	Override        *Override       `json:"override,omitempty"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Payload is the externally visible decision contract.
type Payload struct {
	Decision    string   `json:"decision"`
	Confidence  float64  `json:"confidence"`
	Rationale   string   `json:"rationale"`
	MissingInfo []string `json:"missing_info"`
}

// Payload renders the decision in its wire shape.
func (d *AgentDecision) Payload() Payload {
	missing := d.MissingInfo
	if missing == nil {
		missing = []string{}
	}
	return Payload{
		Decision:    string(d.Decision),
		Confidence:  d.Confidence,
		Rationale:   d.Rationale,
		MissingInfo: missing,
	}
}
