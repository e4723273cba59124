package decision

import (
	"fmt"
	"strings"

	"github.com/joebrashear31/RCM-Automation-Project/internal/domain/claim"
	"github.com/joebrashear31/RCM-Automation-Project/internal/domain/denial"
)

// EngineConfig holds the tunable knobs of the scoring engine. It is passed
// explicitly into Decide so scoring stays deterministic and testable.
type EngineConfig struct {
	// ConfidenceThreshold is the auto-execution threshold. Any missing
	// information caps confidence strictly below it.
	ConfidenceThreshold float64
	// ConfidenceFloor is the minimum confidence at which the engine keeps
	// the nominal action; below it the decision becomes FLAG_FOR_HUMAN.
	ConfidenceFloor float64
	// HighValueAmount is the claim amount above which a confidence
	// penalty applies.
	HighValueAmount float64
	// HistoryWeight scales the linear historical-success-rate adjustment.
	HistoryWeight float64
}

// DefaultEngineConfig returns the engine defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		ConfidenceThreshold: 0.7,
		ConfidenceFloor:     0.6,
		HighValueAmount:     10000,
		HistoryWeight:       0.3,
	}
}

// Base confidence by rule-match strength.
const (
	baseKnownCategory   = 0.75
	baseUnknownCategory = 0.3
	highValuePenalty    = 0.1
	missingInfoMargin   = 0.05
	neutralSuccessRate  = 0.5
)

// Input carries everything the engine scores over. The engine reads the
// claim but never mutates it.
type Input struct {
	Claim       *claim.Claim
	Category    denial.Category
	RuleAction  RecommendedAction
	SuccessRate float64 // historical rate for (category, action); 0.5 is neutral
	MissingInfo []string
}

// Result is the engine's recommendation plus its justification. It is
// never persisted by the engine itself.
type Result struct {
	Decision    Action
	Confidence  float64
	Rationale   string
	MissingInfo []string
}

// Decide scores a denied claim and returns a recommended action with
// confidence and a derivation trace. It is a pure, stateless function:
// it never touches persisted state and never executes anything.
func Decide(in Input, cfg EngineConfig) Result {
	var trace []string

	action, base := resolveAction(in, &trace)
	confidence := base

	// Linear blend with the historical success rate around the neutral
	// midpoint. Bounded by HistoryWeight so history adjusts, never
	// dominates.
	delta := cfg.HistoryWeight * (in.SuccessRate - neutralSuccessRate)
	if delta != 0 {
		confidence += delta
		trace = append(trace, fmt.Sprintf("historical success rate %.0f%% adjusts confidence by %+.2f", in.SuccessRate*100, delta))
	}

	if in.Claim != nil && in.Claim.Amount > cfg.HighValueAmount {
		confidence -= highValuePenalty
		trace = append(trace, fmt.Sprintf("high-value claim ($%.2f) applies a %.2f penalty", in.Claim.Amount, highValuePenalty))
	}

	// Missing information always forces a human-reviewable outcome: cap
	// confidence strictly below the auto-execution threshold.
	if len(in.MissingInfo) > 0 {
		ceiling := cfg.ConfidenceThreshold - missingInfoMargin
		if confidence > ceiling {
			confidence = ceiling
		}
		trace = append(trace, "missing information: "+strings.Join(in.MissingInfo, ", "))
	}

	confidence = clamp01(confidence)

	if confidence < cfg.ConfidenceFloor && action != ActionFlagForHuman {
		trace = append(trace, fmt.Sprintf("confidence %.2f below floor %.2f, flagging for human review", confidence, cfg.ConfidenceFloor))
		action = ActionFlagForHuman
	}

	return Result{
		Decision:    action,
		Confidence:  confidence,
		Rationale:   strings.Join(trace, ". ") + ".",
		MissingInfo: in.MissingInfo,
	}
}

// resolveAction maps the rule-table recommendation to a concrete action
// and returns the base confidence for the match strength.
func resolveAction(in Input, trace *[]string) (Action, float64) {
	if in.Category == denial.CategoryUnknown || in.RuleAction == RecommendFlagForHuman {
		*trace = append(*trace, fmt.Sprintf("no rule for category %s, human review required", in.Category))
		return ActionFlagForHuman, baseUnknownCategory
	}

	*trace = append(*trace, fmt.Sprintf("rule table recommends %s for %s denial", in.RuleAction, in.Category))

	switch in.RuleAction {
	case RecommendAppeal:
		return ActionAppeal, baseKnownCategory
	case RecommendResubmit:
		return ActionResubmit, baseKnownCategory
	case RecommendWriteOff:
		return ActionWriteOff, baseKnownCategory
	case RecommendRequestAuth:
		return ActionRequestAuth, baseKnownCategory
	case RecommendNoAction:
		return ActionNoAction, baseKnownCategory
	case RecommendWriteOffOrCollect:
		// Patient collection is not an automatable action; small balances
		// are written off, larger ones go to a human for billing review.
		if in.Claim != nil && in.Claim.Amount > 5000 {
			*trace = append(*trace, "balance too large to write off automatically, routing to human for patient billing")
			return ActionFlagForHuman, baseKnownCategory
		}
		*trace = append(*trace, "small balance written off rather than billed to patient")
		return ActionWriteOff, baseKnownCategory
	default:
		return ActionFlagForHuman, baseUnknownCategory
	}
}

// IdentifyMissing lists unresolved data points that would weaken an
// automated action for the given category. reasonText is the payer's
// denial narrative.
func IdentifyMissing(c *claim.Claim, category denial.Category, reasonText string) []string {
	if c == nil {
		return nil
	}
	var missing []string

	switch category {
	case denial.CategoryPriorAuthMissing:
		if c.AuthorizationNumber == "" {
			missing = append(missing, "prior_authorization_number")
		}
	case denial.CategoryMedicalNecessity:
		if c.ClinicalNotes == "" {
			missing = append(missing, "clinical_documentation")
		}
		if c.AppealAttempts == 0 && c.ClinicalNotes == "" {
			missing = append(missing, "appeal_history")
		}
	case denial.CategoryDocumentation:
		if c.ClinicalNotes == "" {
			missing = append(missing, "clinical_documentation")
		}
	case denial.CategoryCodingError:
		// A narrative disputing the submitted codes needs a coding audit
		// before resubmission unless coding was already reviewed. A bare
		// CARC code with no narrative does not.
		if !c.CodingReviewed && disputesCodes(reasonText) {
			missing = append(missing, "coding_audit")
		}
	}

	return missing
}

// disputesCodes reports whether the reason text argues about the
// submitted procedure or diagnosis codes.
func disputesCodes(text string) bool {
	lowered := strings.ToLower(text)
	if lowered == "" {
		return false
	}
	for _, word := range []string{"code", "coding", "cpt", "diagnosis"} {
		if strings.Contains(lowered, word) {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
