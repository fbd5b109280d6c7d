package analytics

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/hassanmzia/ai-healthcare-embodiment/internal/model"
	"github.com/hassanmzia/ai-healthcare-embodiment/internal/screening"
)

// ScoredCase is the stored outcome of one patient that a simulation replays.
type ScoredCase struct {
	PatientID      string
	OriginalAction model.Action
	Flags          []model.SafetyFlag
	RiskScore      float64
}

// CasesFromAssessments extracts replayable cases from stored assessments.
func CasesFromAssessments(assessments []model.RiskAssessment) []ScoredCase {
	out := make([]ScoredCase, len(assessments))
	for i := range assessments {
		a := &assessments[i]
		out[i] = ScoredCase{
			PatientID:      a.PatientID,
			RiskScore:      a.RiskScore,
			Flags:          a.Flags,
			OriginalAction: a.Action,
		}
	}
	return out
}

// SimulatedDecision is one patient's outcome under the alternate policy.
type SimulatedDecision struct {
	PatientID      string              `json:"patient_id"`
	OriginalAction model.Action        `json:"original_action"`
	Action         model.Action        `json:"action"`
	Rationale      []string            `json:"rationale"`
	RiskScore      float64             `json:"risk_score"`
	Autonomy       model.AutonomyLevel `json:"autonomy_level"`
	Changed        bool                `json:"changed"`
}

// SimulationResult is the alternate action distribution and its quality.
type SimulationResult struct {
	Precision *float64            `json:"precision"`
	Recall    *float64            `json:"recall"`
	F1        *float64            `json:"f1_score"`
	Policy    model.Policy        `json:"policy"`
	Decisions []SimulatedDecision `json:"decisions"`
	Confusion model.Confusion     `json:"confusion"`
	Actions   model.ActionCounts  `json:"results"`
	Total     int                 `json:"total"`
	Changed   int                 `json:"changed"`
}

// Simulate replays the coordinator over stored (score, flags) pairs under
// policy. Scoring and safety are not re-run. Each call uses its own quota
// limiter and admits in ascending patient-ID order, the same order a batch
// run uses, so identical inputs give identical results. cases is not
// modified.
func Simulate(cases []ScoredCase, truth map[string]bool, policy model.Policy) (*SimulationResult, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	ordered := make([]ScoredCase, len(cases))
	copy(ordered, cases)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].PatientID < ordered[j].PatientID })

	for i, c := range ordered {
		if _, ok := truth[c.PatientID]; !ok {
			return nil, fmt.Errorf("%w: patient %s", ErrMissingLabel, c.PatientID)
		}
		if i > 0 && ordered[i-1].PatientID == c.PatientID {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCase, c.PatientID)
		}
	}

	coord := screening.NewCoordinator(policy)
	limiter := screening.NewReplayLimiter(policy.MaxAutoActionsPerDay)

	res := &SimulationResult{
		Policy:    policy,
		Total:     len(ordered),
		Decisions: make([]SimulatedDecision, 0, len(ordered)),
	}
	for _, c := range ordered {
		d := coord.Decide(c.RiskScore, c.Flags, limiter)
		changed := d.Action != c.OriginalAction
		if changed {
			res.Changed++
		}
		res.Actions.Add(d.Action)
		res.Confusion.Add(d.Action.Flagged(), truth[c.PatientID])
		res.Decisions = append(res.Decisions, SimulatedDecision{
			PatientID:      c.PatientID,
			OriginalAction: c.OriginalAction,
			Action:         d.Action,
			Autonomy:       d.Autonomy,
			Rationale:      d.Rationale,
			RiskScore:      c.RiskScore,
			Changed:        changed,
		})
	}

	res.Precision = res.Confusion.Precision()
	res.Recall = res.Confusion.Recall()
	res.F1 = res.Confusion.F1()

	slog.Debug("What-if simulation complete",
		"policy", policy.Name,
		"cases", res.Total,
		"changed", res.Changed,
		"auto_actions", res.Actions.AutoOrder)

	return res, nil
}
