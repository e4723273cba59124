// Package denial defines the DenialEvent entity and the denial classifier.
package denial

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/joebrashear31/RCM-Automation-Project/internal/domain"
)

// Category is the normalized classification of a denial's root cause.
type Category string

const (
	CategoryEligibility       Category = "ELIGIBILITY"
	CategoryMedicalNecessity  Category = "MEDICAL_NECESSITY"
	CategoryCodingError       Category = "CODING_ERROR"
	CategoryPriorAuthMissing  Category = "PRIOR_AUTH_MISSING"
	CategoryTimelyFiling      Category = "TIMELY_FILING"
	CategoryCoverageExhausted Category = "COVERAGE_EXHAUSTED"
	CategoryDuplicate         Category = "DUPLICATE"
	CategoryDocumentation     Category = "DOCUMENTATION"
	CategoryUnknown           Category = "UNKNOWN"
)

// ParseCategory validates a category value received from an external caller.
func ParseCategory(s string) (Category, error) {
	switch c := Category(s); c {
	case CategoryEligibility, CategoryMedicalNecessity, CategoryCodingError,
		CategoryPriorAuthMissing, CategoryTimelyFiling, CategoryCoverageExhausted,
		CategoryDuplicate, CategoryDocumentation, CategoryUnknown:
		return c, nil
	default:
		return "", fmt.Errorf("category %q: %w", s, domain.ErrValidation)
	}
}

// Event is the immutable record of a payer denial, input to classification.
type Event struct {
	ID         string          `json:"id"`
	ClaimID    string          `json:"claim_id"`
	ReasonCode string          `json:"reason_code"`
	ReasonText string          `json:"reason_text"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Category   Category        `json:"category,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}
