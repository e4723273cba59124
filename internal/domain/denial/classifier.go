package denial

import (
	"fmt"
	"strings"
)

// Classification is the result of normalizing a payer denial.
type Classification struct {
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"`
	Detail     string   `json:"detail"`
}

// Classifier confidence levels by match source. Code-table hits beat text
// matches; text agreement corroborates but never overrides a code hit.
const (
	confCodeExact     = 0.9
	confCodePrefix    = 0.8
	confText          = 0.7
	confUnknown       = 0.2
	confCorroboration = 0.05
)

// codeTable maps CARC-style payer reason codes to normalized categories.
type codeEntry struct {
	code     string
	category Category
}

var codeTable = []codeEntry{
	{"CO-50", CategoryCodingError},  // invalid/non-covered procedure code
	{"CO-19", CategoryCodingError},  // invalid diagnosis code
	{"CO-29", CategoryPriorAuthMissing},
	{"CO-18", CategoryDuplicate},
	{"CO-11", CategoryEligibility},  // coverage terminated
	{"CO-197", CategoryEligibility}, // coordination of benefits required
	{"CO-16", CategoryTimelyFiling},
	{"CO-55", CategoryMedicalNecessity},
	{"CO-119", CategoryCoverageExhausted}, // benefit maximum reached
	{"CO-252", CategoryDocumentation},     // additional documentation required
}

// keywordRule matches when every word appears in the lowercased reason text.
// Rules are evaluated in fixed order so classification stays deterministic.
type keywordRule struct {
	words    []string
	category Category
}

var keywordRules = []keywordRule{
	{[]string{"timely", "filing"}, CategoryTimelyFiling},
	{[]string{"filing", "deadline"}, CategoryTimelyFiling},
	{[]string{"submitted", "late"}, CategoryTimelyFiling},
	{[]string{"prior", "auth"}, CategoryPriorAuthMissing},
	{[]string{"authorization", "required"}, CategoryPriorAuthMissing},
	{[]string{"pre", "authorization"}, CategoryPriorAuthMissing},
	{[]string{"medical", "necessity"}, CategoryMedicalNecessity},
	{[]string{"not", "medically", "necessary"}, CategoryMedicalNecessity},
	{[]string{"experimental"}, CategoryMedicalNecessity},
	{[]string{"invalid", "cpt"}, CategoryCodingError},
	{[]string{"procedure", "code", "invalid"}, CategoryCodingError},
	{[]string{"invalid", "diagnosis"}, CategoryCodingError},
	{[]string{"diagnosis", "code", "invalid"}, CategoryCodingError},
	{[]string{"duplicate"}, CategoryDuplicate},
	{[]string{"already", "processed"}, CategoryDuplicate},
	{[]string{"previously", "paid"}, CategoryDuplicate},
	{[]string{"benefits", "exhausted"}, CategoryCoverageExhausted},
	{[]string{"benefit", "maximum"}, CategoryCoverageExhausted},
	{[]string{"coverage", "terminated"}, CategoryEligibility},
	{[]string{"coverage", "ended"}, CategoryEligibility},
	{[]string{"coordination", "benefits"}, CategoryEligibility},
	{[]string{"not", "eligible"}, CategoryEligibility},
	{[]string{"documentation", "required"}, CategoryDocumentation},
	{[]string{"records", "requested"}, CategoryDocumentation},
	{[]string{"missing", "documentation"}, CategoryDocumentation},
}

// Classify normalizes a payer denial code and reason text into a category.
// Classification by code takes priority; text matching is a fallback, and
// when code and text agree the text serves as corroboration. No match in
// either source resolves to UNKNOWN, never an error.
//
// Classify is a pure function: identical inputs always produce the
// identical result.
func Classify(code, text string) Classification {
	byCode, codeConf := classifyByCode(code)
	byText := classifyByText(text)

	switch {
	case byCode != CategoryUnknown && byText == byCode:
		return Classification{
			Category:   byCode,
			Confidence: min(0.99, codeConf+confCorroboration),
			Detail:     fmt.Sprintf("code %s corroborated by reason text", strings.ToUpper(strings.TrimSpace(code))),
		}
	case byCode != CategoryUnknown:
		return Classification{
			Category:   byCode,
			Confidence: codeConf,
			Detail:     fmt.Sprintf("matched denial code %s", strings.ToUpper(strings.TrimSpace(code))),
		}
	case byText != CategoryUnknown:
		return Classification{
			Category:   byText,
			Confidence: confText,
			Detail:     "matched denial reason text",
		}
	default:
		return Classification{
			Category:   CategoryUnknown,
			Confidence: confUnknown,
			Detail:     "no code or text match",
		}
	}
}

// classifyByCode resolves a payer code via exact then prefix lookup.
func classifyByCode(code string) (Category, float64) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return CategoryUnknown, 0
	}

	for _, entry := range codeTable {
		if entry.code == normalized {
			return entry.category, confCodeExact
		}
	}

	// Payers append modifier suffixes (e.g. CO-50-N115); a table code that
	// prefixes the raw code still identifies the category.
	for _, entry := range codeTable {
		if strings.HasPrefix(normalized, entry.code) {
			return entry.category, confCodePrefix
		}
	}

	return CategoryUnknown, 0
}

// classifyByText matches keyword rules against the lowercased reason text.
func classifyByText(text string) Category {
	lowered := strings.ToLower(text)
	if lowered == "" {
		return CategoryUnknown
	}

	for _, rule := range keywordRules {
		if containsAll(lowered, rule.words) {
			return rule.category
		}
	}
	return CategoryUnknown
}

func containsAll(text string, words []string) bool {
	for _, w := range words {
		if !strings.Contains(text, w) {
			return false
		}
	}
	return true
}
