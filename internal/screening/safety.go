package screening

import (
	"fmt"
	"regexp"

	"github.com/hassanmzia/ai-healthcare-embodiment/internal/model"
)

// Safety thresholds.
const (
	AdultAge                 = 18
	MinEvidenceSymptoms      = 2
	HighRiskContradictionMin = 0.80
)

// phiPattern matches a labeled name such as "Name: Jane Doe".
var phiPattern = regexp.MustCompile(`(?i)\bname\s*:`)

// SafetyInput is everything the safety evaluator looks at.
type SafetyInput struct {
	Note         string
	RiskScore    float64
	SymptomCount int
	Age          int
}

// EvaluateSafety returns the raised flags in a fixed order: PHI, low
// evidence, minor patient, high-risk-low-evidence. Flags are additive.
func EvaluateSafety(in SafetyInput) []model.SafetyFlag {
	flags := []model.SafetyFlag{}

	if phiPattern.MatchString(in.Note) {
		flags = append(flags, model.SafetyFlag{
			Code:     model.FlagPHIDetected,
			Severity: model.SeverityCritical,
			Detail:   "clinical note contains a labeled name",
		})
	}

	lowEvidence := in.SymptomCount < MinEvidenceSymptoms
	if lowEvidence {
		flags = append(flags, model.SafetyFlag{
			Code:     model.FlagLowEvidence,
			Severity: model.SeverityWarning,
			Detail:   fmt.Sprintf("%d core symptom(s), need %d", in.SymptomCount, MinEvidenceSymptoms),
		})
	}

	if in.Age < AdultAge {
		flags = append(flags, model.SafetyFlag{
			Code:     model.FlagMinorPatient,
			Severity: model.SeverityWarning,
			Detail:   fmt.Sprintf("age %d is below %d", in.Age, AdultAge),
		})
	}

	if in.RiskScore >= HighRiskContradictionMin && lowEvidence {
		flags = append(flags, model.SafetyFlag{
			Code:     model.FlagHighRiskLowEvidence,
			Severity: model.SeverityCritical,
			Detail:   fmt.Sprintf("risk %.3f with %d symptom(s)", in.RiskScore, in.SymptomCount),
		})
	}

	return flags
}
