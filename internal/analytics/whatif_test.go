package analytics

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hassanmzia/ai-healthcare-embodiment/internal/model"
)

func policy(t *testing.T, review, draft, auto float64, quota int) model.Policy {
	t.Helper()
	p, err := model.NewPolicy("what-if", review, draft, auto, quota)
	require.NoError(t, err)
	return p
}

func highScoreCases(n int) ([]ScoredCase, map[string]bool) {
	cases := make([]ScoredCase, n)
	truth := make(map[string]bool, n)
	// Reverse order so the replay has to sort.
	for i := range cases {
		id := fmt.Sprintf("P%05d", n-1-i)
		cases[i] = ScoredCase{PatientID: id, RiskScore: 0.95, Flags: []model.SafetyFlag{}, OriginalAction: model.ActionAutoOrder}
		truth[id] = i%2 == 0
	}
	return cases, truth
}

func TestSimulate_QuotaAppliedInIDOrder(t *testing.T) {
	cases, truth := highScoreCases(25)

	res, err := Simulate(cases, truth, policy(t, 0.65, 0.80, 0.90, 20))
	require.NoError(t, err)

	assert.Equal(t, 20, res.Actions.AutoOrder)
	assert.Equal(t, 5, res.Actions.DraftOrder)
	assert.Equal(t, 5, res.Changed)
	for i, d := range res.Decisions {
		assert.Equal(t, fmt.Sprintf("P%05d", i), d.PatientID)
		if i < 20 {
			assert.Equal(t, model.ActionAutoOrder, d.Action)
		} else {
			assert.Equal(t, model.ActionDraftOrder, d.Action)
			assert.True(t, d.Changed)
		}
	}
}

func TestSimulate_Idempotent(t *testing.T) {
	cases, truth := highScoreCases(30)
	cases[3].Flags = []model.SafetyFlag{{Code: model.FlagLowEvidence, Severity: model.SeverityWarning}}
	cases[7].RiskScore = 0.7
	before := make([]ScoredCase, len(cases))
	copy(before, cases)

	p := policy(t, 0.6, 0.75, 0.85, 10)
	first, err := Simulate(cases, truth, p)
	require.NoError(t, err)
	second, err := Simulate(cases, truth, p)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("simulations differ (-first +second):\n%s", diff)
	}
	assert.Equal(t, before, cases, "input cases must not be modified")
}

func TestSimulate_SafetyOverrideStillApplies(t *testing.T) {
	cases := []ScoredCase{{
		PatientID:      "A",
		RiskScore:      0.99,
		Flags:          []model.SafetyFlag{{Code: model.FlagPHIDetected, Severity: model.SeverityCritical}},
		OriginalAction: model.ActionRecommendReview,
	}}

	res, err := Simulate(cases, map[string]bool{"A": true}, policy(t, 0.1, 0.2, 0.3, 100))
	require.NoError(t, err)

	assert.Equal(t, model.ActionRecommendReview, res.Decisions[0].Action)
	assert.False(t, res.Decisions[0].Changed)
	assert.Zero(t, res.Changed)
}

func TestSimulate_Metrics(t *testing.T) {
	cases := []ScoredCase{
		{PatientID: "A", RiskScore: 0.9},
		{PatientID: "B", RiskScore: 0.7},
		{PatientID: "C", RiskScore: 0.5},
		{PatientID: "D", RiskScore: 0.2},
	}
	truth := map[string]bool{"A": true, "B": false, "C": true, "D": false}

	strict, err := Simulate(cases, truth, policy(t, 0.8, 0.85, 0.95, 5))
	require.NoError(t, err)
	require.NotNil(t, strict.Precision)
	assert.InDelta(t, 1.0, *strict.Precision, 1e-9)
	assert.InDelta(t, 0.5, *strict.Recall, 1e-9)

	lenient, err := Simulate(cases, truth, policy(t, 0.4, 0.85, 0.95, 5))
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, *lenient.Precision, 1e-9)
	assert.InDelta(t, 1.0, *lenient.Recall, 1e-9)

	none, err := Simulate(cases, truth, policy(t, 1, 1, 1, 5))
	require.NoError(t, err)
	assert.Nil(t, none.Precision)
	assert.Nil(t, none.F1)
}

func TestSimulate_Errors(t *testing.T) {
	cases := []ScoredCase{{PatientID: "A", RiskScore: 0.5}}

	_, err := Simulate(cases, map[string]bool{"A": true}, model.Policy{Name: "bad", ReviewThreshold: 0.9, DraftThreshold: 0.1, AutoThreshold: 0.95})
	assert.ErrorIs(t, err, model.ErrInvalidPolicy)

	_, err = Simulate(cases, map[string]bool{}, policy(t, 0.6, 0.8, 0.9, 1))
	assert.ErrorIs(t, err, ErrMissingLabel)

	dup := append(cases, ScoredCase{PatientID: "A", RiskScore: 0.9})
	_, err = Simulate(dup, map[string]bool{"A": true}, policy(t, 0.6, 0.8, 0.9, 1))
	assert.ErrorIs(t, err, ErrDuplicateCase)
}

func TestCasesFromAssessments(t *testing.T) {
	a := assessment("A", 0.81, model.ActionDraftOrder, adult(model.SexMale, 40), model.FlagLowEvidence)
	cases := CasesFromAssessments([]model.RiskAssessment{a})

	require.Len(t, cases, 1)
	assert.Equal(t, ScoredCase{PatientID: "A", RiskScore: 0.81, OriginalAction: model.ActionDraftOrder, Flags: a.Flags}, cases[0])
}
