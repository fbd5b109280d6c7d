package screening

import "github.com/hassanmzia/ai-healthcare-embodiment/internal/model"

// Candidate gate thresholds.
const (
	MinCandidateSymptoms = 2
	MinCandidateVisits   = 6
)

// FilterResult is the admission decision with its per-gate breakdown.
type FilterResult struct {
	LesionsPresent bool `json:"mri_lesions"`
	NoteMSTerms    bool `json:"note_has_ms_terms"`
	MinSymptoms    bool `json:"symptoms_gte_2"`
	MinVisits      bool `json:"visits_gte_6"`
}

// Admitted reports whether every gate passed.
func (r FilterResult) Admitted() bool {
	return r.LesionsPresent && r.NoteMSTerms && r.MinSymptoms && r.MinVisits
}

// Filter applies the four candidate gates. It never fails: a missing or
// malformed field fails its own gate.
func Filter(p *model.PatientRecord) FilterResult {
	if p == nil {
		return FilterResult{}
	}
	return FilterResult{
		LesionsPresent: p.LesionsPresent,
		NoteMSTerms:    noteMentionsMS(p),
		MinSymptoms:    p.Symptoms.Count() >= MinCandidateSymptoms,
		MinVisits:      p.VisitCount >= MinCandidateVisits,
	}
}

// Tally adds the gate outcomes to a running count.
func (r FilterResult) Tally(c *model.GateCounts) {
	if r.LesionsPresent {
		c.LesionsPresent++
	}
	if r.NoteMSTerms {
		c.NoteMSTerms++
	}
	if r.MinSymptoms {
		c.MinSymptoms++
	}
	if r.MinVisits {
		c.MinVisits++
	}
}
