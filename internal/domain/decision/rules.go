package decision

import "github.com/joebrashear31/RCM-Automation-Project/internal/domain/denial"

// RecommendedAction is the rule table's output vocabulary. It is a
// superset of Action: COVERAGE_EXHAUSTED recommends a write-off-or-collect
// disposition that the engine resolves to a concrete action based on the
// claim amount.
type RecommendedAction string

const (
	RecommendAppeal            RecommendedAction = "APPEAL"
	RecommendResubmit          RecommendedAction = "RESUBMIT"
	RecommendWriteOff          RecommendedAction = "WRITE_OFF"
	RecommendRequestAuth       RecommendedAction = "REQUEST_AUTH"
	RecommendNoAction          RecommendedAction = "NO_ACTION"
	RecommendFlagForHuman      RecommendedAction = "FLAG_FOR_HUMAN"
	RecommendWriteOffOrCollect RecommendedAction = "WRITE_OFF_OR_COLLECT_PATIENT"
)

// ruleTable is the deterministic category → action baseline. The engine
// starts from this floor and records its rationale whenever it diverges.
var ruleTable = map[denial.Category]RecommendedAction{
	denial.CategoryEligibility:       RecommendWriteOff,
	denial.CategoryCodingError:       RecommendResubmit,
	denial.CategoryMedicalNecessity:  RecommendAppeal,
	denial.CategoryPriorAuthMissing:  RecommendRequestAuth,
	denial.CategoryTimelyFiling:      RecommendWriteOff,
	denial.CategoryCoverageExhausted: RecommendWriteOffOrCollect,
	denial.CategoryDuplicate:         RecommendNoAction,
	denial.CategoryDocumentation:     RecommendRequestAuth, // document resubmission
	denial.CategoryUnknown:           RecommendFlagForHuman,
}

// RecommendActionFor returns the rule-table baseline for a category.
func RecommendActionFor(category denial.Category) RecommendedAction {
	if action, ok := ruleTable[category]; ok {
		return action
	}
	return RecommendFlagForHuman
}
