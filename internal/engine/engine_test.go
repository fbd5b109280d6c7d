package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hassanmzia/ai-healthcare-embodiment/internal/analytics"
	"github.com/hassanmzia/ai-healthcare-embodiment/internal/common"
	"github.com/hassanmzia/ai-healthcare-embodiment/internal/config"
	"github.com/hassanmzia/ai-healthcare-embodiment/internal/model"
	"github.com/hassanmzia/ai-healthcare-embodiment/internal/testutil"
)

type recordingRecorder struct {
	mu   sync.Mutex
	runs []model.RunResult
}

func (r *recordingRecorder) ObserveRun(run *model.RunResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, *run)
}

func activeDefaultPolicy() *model.Policy {
	p := model.DefaultPolicy()
	p.Active = true
	return &p
}

// screeningPopulation returns 25 high-risk candidates (the first 20 truly at
// risk) followed by 5 patients that fail the candidate gates.
func screeningPopulation() []model.PatientRecord {
	return testutil.Population(30, func(i int, b *testutil.PatientBuilder) *testutil.PatientBuilder {
		switch {
		case i < 20:
			return b.HighRisk().AtRisk()
		case i < 25:
			return b.HighRisk()
		default:
			return b
		}
	})
}

func setupEngine(t *testing.T) (*ScreeningEngine, *testutil.TestDB, *recordingRecorder) {
	t.Helper()
	db := testutil.SetupTestDBWithOptions(t, testutil.TestDBOptions{
		Patients: screeningPopulation(),
		Policy:   activeDefaultPolicy(),
	})
	rec := &recordingRecorder{}
	return New(db.Storage, nil, rec), db, rec
}

func TestRunScreening(t *testing.T) {
	eng, db, rec := setupEngine(t)
	ctx := context.Background()

	var evaluated atomic.Int64
	var loaded int
	run, err := eng.RunScreening(ctx, RunOptions{
		OnLoaded:    func(total int) { loaded = total },
		OnEvaluated: func(string, error) { evaluated.Add(1) },
	})
	require.NoError(t, err)

	assert.Equal(t, model.RunCompleted, run.Status)
	assert.Equal(t, 30, loaded)
	assert.Equal(t, int64(30), evaluated.Load())
	assert.Equal(t, 30, run.TotalPatients)
	assert.Equal(t, 25, run.CandidatesFound)
	assert.Equal(t, 20, run.Actions.AutoOrder)
	assert.Equal(t, 5, run.Actions.DraftOrder)
	require.NotNil(t, run.Precision)
	assert.InDelta(t, 0.8, *run.Precision, 1e-9)

	stored, err := db.Storage.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunCompleted, stored.Status)
	assert.Equal(t, config.PolicyHash(stored.Policy), stored.PolicyHash)
	assert.Equal(t, 20, stored.Actions.AutoOrder)

	assessments, err := db.Storage.GetAssessmentsByRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, assessments, 25)
	for i, a := range assessments {
		want := model.ActionAutoOrder
		if i >= 20 {
			want = model.ActionDraftOrder
		}
		assert.Equal(t, want, a.Action, a.PatientID)
	}

	require.Len(t, rec.runs, 1)
	assert.Equal(t, run.ID, rec.runs[0].ID)
}

func TestRunScreening_NamedPolicy(t *testing.T) {
	eng, db, _ := setupEngine(t)
	ctx := context.Background()

	strict, err := model.NewPolicy("strict", 0.65, 0.80, 0.90, 3)
	require.NoError(t, err)
	db.SeedPolicy(strict)

	run, err := eng.RunScreening(ctx, RunOptions{Policy: "strict"})
	require.NoError(t, err)
	assert.Equal(t, "strict", run.Policy.Name)
	assert.Equal(t, 3, run.Actions.AutoOrder)
	assert.Equal(t, 22, run.Actions.DraftOrder)

	_, err = eng.RunScreening(ctx, RunOptions{Policy: "missing"})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRunScreening_Preconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("no active policy", func(t *testing.T) {
		db := testutil.SetupTestDBWithOptions(t, testutil.TestDBOptions{Patients: screeningPopulation()})
		_, err := New(db.Storage, nil, nil).RunScreening(ctx, RunOptions{})
		assert.ErrorIs(t, err, common.ErrNoActivePolicy)
	})

	t.Run("no patients", func(t *testing.T) {
		db := testutil.SetupTestDBWithOptions(t, testutil.TestDBOptions{Policy: activeDefaultPolicy()})
		_, err := New(db.Storage, nil, nil).RunScreening(ctx, RunOptions{})
		assert.ErrorIs(t, err, common.ErrNoPatients)

		runs, err := db.Storage.ListRuns(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, runs)
	})
}

func TestRunScreening_CanceledRunIsPersistedAsFailed(t *testing.T) {
	db := testutil.SetupTestDBWithOptions(t, testutil.TestDBOptions{
		Patients: screeningPopulation(),
		Policy:   activeDefaultPolicy(),
	})
	rec := &recordingRecorder{}
	eng := NewWithConfig(db.Storage, nil, rec, Config{Workers: 1})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	run, err := eng.RunScreening(ctx, RunOptions{
		OnEvaluated: func(string, error) { cancel() },
	})
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, run)
	assert.Equal(t, model.RunFailed, run.Status)

	stored, err := db.Storage.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunFailed, stored.Status)
	assert.NotEmpty(t, stored.ErrorMessage)

	require.Len(t, rec.runs, 1)
	assert.Equal(t, model.RunFailed, rec.runs[0].Status)
}

func TestRunMetrics(t *testing.T) {
	eng, _, _ := setupEngine(t)
	ctx := context.Background()

	run, err := eng.RunScreening(ctx, RunOptions{})
	require.NoError(t, err)

	report, err := eng.RunMetrics(ctx, run.ID, analytics.MetricsOptions{})
	require.NoError(t, err)

	assert.Equal(t, 25, report.Total)
	assert.Equal(t, 25, report.Flagged)
	require.NotNil(t, report.Precision)
	require.NotNil(t, report.Recall)
	assert.InDelta(t, 0.8, *report.Precision, 1e-9)
	assert.InDelta(t, 1.0, *report.Recall, 1e-9)
	assert.Equal(t, 20, report.Actions.AutoOrder)
}

func TestRunMetrics_RequiresCompletedRun(t *testing.T) {
	eng, db, _ := setupEngine(t)
	ctx := context.Background()

	pending := model.NewRunResult("pending-run", model.DefaultPolicy())
	require.NoError(t, db.Storage.SaveRun(ctx, pending))

	_, err := eng.RunMetrics(ctx, pending.ID, analytics.MetricsOptions{})
	assert.ErrorIs(t, err, common.ErrRunNotComplete)

	_, err = eng.WhatIf(ctx, pending.ID, model.DefaultPolicy())
	assert.ErrorIs(t, err, common.ErrRunNotComplete)

	_, err = eng.RunMetrics(ctx, "no-such-run", analytics.MetricsOptions{})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestWhatIf(t *testing.T) {
	eng, db, _ := setupEngine(t)
	ctx := context.Background()

	run, err := eng.RunScreening(ctx, RunOptions{})
	require.NoError(t, err)

	tighter, err := model.NewPolicy("tighter", 0.65, 0.80, 0.90, 5)
	require.NoError(t, err)

	result, err := eng.WhatIf(ctx, run.ID, tighter)
	require.NoError(t, err)
	assert.Equal(t, 25, result.Total)
	assert.Equal(t, 5, result.Actions.AutoOrder)
	assert.Equal(t, 20, result.Actions.DraftOrder)
	assert.Equal(t, 15, result.Changed)

	// the stored run is untouched
	assessments, err := db.Storage.GetAssessmentsByRun(ctx, run.ID)
	require.NoError(t, err)
	auto := 0
	for _, a := range assessments {
		if a.Action == model.ActionAutoOrder {
			auto++
		}
	}
	assert.Equal(t, 20, auto)

	_, err = eng.WhatIf(ctx, run.ID, model.Policy{Name: "bad", ReviewThreshold: 0.9, DraftThreshold: 0.5, AutoThreshold: 0.95})
	assert.Error(t, err)
}
