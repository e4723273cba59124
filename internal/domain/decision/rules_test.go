package decision

import (
	"testing"

	"github.com/joebrashear31/RCM-Automation-Project/internal/domain/denial"
)

func TestRuleTable(t *testing.T) {
	tests := []struct {
		category denial.Category
		want     RecommendedAction
	}{
		{denial.CategoryEligibility, RecommendWriteOff},
		{denial.CategoryCodingError, RecommendResubmit},
		{denial.CategoryMedicalNecessity, RecommendAppeal},
		{denial.CategoryPriorAuthMissing, RecommendRequestAuth},
		{denial.CategoryTimelyFiling, RecommendWriteOff},
		{denial.CategoryCoverageExhausted, RecommendWriteOffOrCollect},
		{denial.CategoryDuplicate, RecommendNoAction},
		{denial.CategoryDocumentation, RecommendRequestAuth},
		{denial.CategoryUnknown, RecommendFlagForHuman},
	}

	for _, tt := range tests {
		if got := RecommendActionFor(tt.category); got != tt.want {
			t.Errorf("RecommendActionFor(%s) = %s, want %s", tt.category, got, tt.want)
		}
	}
}

func TestRuleTableUnlistedCategory(t *testing.T) {
	if got := RecommendActionFor(denial.Category("BRAND_NEW")); got != RecommendFlagForHuman {
		t.Errorf("unlisted category = %s, want FLAG_FOR_HUMAN", got)
	}
}
