// Package outcome defines the OutcomeRecord entity for the learning loop.
package outcome

import (
	"fmt"
	"time"

	"github.com/joebrashear31/RCM-Automation-Project/internal/domain"
	"github.com/joebrashear31/RCM-Automation-Project/internal/domain/decision"
	"github.com/joebrashear31/RCM-Automation-Project/internal/domain/denial"
)

// Result is the real-world outcome of an executed decision.
type Result string

const (
	ResultSuccess Result = "SUCCESS"
	ResultFailure Result = "FAILURE"
	ResultPending Result = "PENDING"
)

// ParseResult validates a result value received from an external caller.
func ParseResult(s string) (Result, error) {
	switch r := Result(s); r {
	case ResultSuccess, ResultFailure, ResultPending:
		return r, nil
	default:
		return "", fmt.Errorf("outcome result %q: %w", s, domain.ErrValidation)
	}
}

// Record captures what happened after a decision was executed. One record
// exists per decision; it may arrive and resolve long after execution,
// and is immutable once the result leaves PENDING.
type Record struct {
	ID               string          `json:"id"`
	DecisionID       string          `json:"decision_id"`
	ClaimID          string          `json:"claim_id"`
	Category         denial.Category `json:"category"`
	Action           decision.Action `json:"action"`
	Result           Result          `json:"result"`
	RecoveredRevenue float64         `json:"recovered_revenue"`
	ResolutionDays   int             `json:"resolution_days,omitempty"`
	ResolvedAt       *time.Time      `json:"resolved_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Finalized reports whether the record's result is settled.
func (r *Record) Finalized() bool {
	return r.Result == ResultSuccess || r.Result == ResultFailure
}
