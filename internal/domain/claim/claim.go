// Package claim defines the Claim domain entity and its lifecycle state machine.
package claim

import (
	"fmt"
	"time"

	"github.com/joebrashear31/RCM-Automation-Project/internal/domain"
)

// Status represents the current lifecycle state of a claim.
type Status string

const (
	StatusCreated       Status = "CREATED"
	StatusValidated     Status = "VALIDATED"
	StatusSubmitted     Status = "SUBMITTED"
	StatusRejected      Status = "REJECTED"
	StatusAccepted      Status = "ACCEPTED"
	StatusDenied        Status = "DENIED"
	StatusAppealPending Status = "APPEAL_PENDING"
	StatusResubmitted   Status = "RESUBMITTED"
	StatusPaid          Status = "PAID"
	StatusWriteOff      Status = "WRITE_OFF"
)

// ParseStatus validates a status value received from an external caller.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusCreated, StatusValidated, StatusSubmitted, StatusRejected,
		StatusAccepted, StatusDenied, StatusAppealPending, StatusResubmitted,
		StatusPaid, StatusWriteOff:
		return st, nil
	default:
		return "", fmt.Errorf("status %q: %w", s, domain.ErrValidation)
	}
}

// Terminal reports whether the status ends the claim lifecycle.
// Claims are never deleted; they park in a terminal state.
func (s Status) Terminal() bool {
	return s == StatusPaid || s == StatusWriteOff
}

// Claim represents a billing request submitted to a payer for reimbursement.
// Status is mutated only through validated state transitions.
type Claim struct {
	ID           string    `json:"id"`
	Status       Status    `json:"status"`
	Amount       float64   `json:"amount"`
	PaidAmount   float64   `json:"paid_amount,omitempty"`
	CPTCodes     []string  `json:"cpt_codes"`
	ICDCodes     []string  `json:"icd_codes"`
	ServiceStart time.Time `json:"service_start"`
	ServiceEnd   time.Time `json:"service_end"`
	ProviderID   string    `json:"provider_id"`
	PayerID      string    `json:"payer_id"`

	// Supporting documentation used by the decision engine to spot
	// missing information before recommending an action.
	AuthorizationNumber string `json:"authorization_number,omitempty"`
	ClinicalNotes       string `json:"clinical_notes,omitempty"`
	CodingReviewed      bool   `json:"coding_reviewed,omitempty"`
	AppealAttempts      int    `json:"appeal_attempts,omitempty"`

	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks that required claim fields are present.
func (c *Claim) Validate() error {
	if c.Amount <= 0 {
		return fmt.Errorf("amount must be positive: %w", domain.ErrValidation)
	}
	if len(c.CPTCodes) == 0 {
		return fmt.Errorf("at least one procedure code is required: %w", domain.ErrValidation)
	}
	if len(c.ICDCodes) == 0 {
		return fmt.Errorf("at least one diagnosis code is required: %w", domain.ErrValidation)
	}
	if c.ProviderID == "" {
		return fmt.Errorf("provider_id is required: %w", domain.ErrValidation)
	}
	if c.PayerID == "" {
		return fmt.Errorf("payer_id is required: %w", domain.ErrValidation)
	}
	if c.ServiceEnd.Before(c.ServiceStart) {
		return fmt.Errorf("service_end precedes service_start: %w", domain.ErrValidation)
	}
	if c.Status != "" {
		if _, err := ParseStatus(string(c.Status)); err != nil {
			return err
		}
	}
	return nil
}

// CreateRequest holds the fields needed to register a new claim.
type CreateRequest struct {
	Amount              float64   `json:"amount"`
	CPTCodes            []string  `json:"cpt_codes"`
	ICDCodes            []string  `json:"icd_codes"`
	ServiceStart        time.Time `json:"service_start"`
	ServiceEnd          time.Time `json:"service_end"`
	ProviderID          string    `json:"provider_id"`
	PayerID             string    `json:"payer_id"`
	AuthorizationNumber string    `json:"authorization_number,omitempty"`
	ClinicalNotes       string    `json:"clinical_notes,omitempty"`
}

// TransitionRecord is the immutable audit record of one realized state
// transition. Append-only; no update or delete path exists.
type TransitionRecord struct {
	ID        string    `json:"id"`
	ClaimID   string    `json:"claim_id"`
	From      Status    `json:"from_status"`
	To        Status    `json:"to_status"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
