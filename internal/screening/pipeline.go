package screening

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hassanmzia/ai-healthcare-embodiment/internal/model"
)

// ErrNotCandidate is returned by Evaluate for a patient the filter rejected.
var ErrNotCandidate = errors.New("patient is not a screening candidate")

// NotCandidateError carries the gate breakdown for a rejected patient.
type NotCandidateError struct {
	PatientID string
	Gates     FilterResult
}

func (e *NotCandidateError) Error() string {
	return fmt.Sprintf("%s: %s (lesions=%t note_terms=%t symptoms=%t visits=%t)",
		ErrNotCandidate, e.PatientID,
		e.Gates.LesionsPresent, e.Gates.NoteMSTerms, e.Gates.MinSymptoms, e.Gates.MinVisits)
}

func (e *NotCandidateError) Unwrap() error {
	return ErrNotCandidate
}

// Options configures pipeline execution.
type Options struct {
	// Scorer defaults to DefaultScorer.
	Scorer *Scorer
	// Clock defaults to time.Now. It drives timestamps and the quota window.
	Clock func() time.Time
	// OnEvaluated is called once per patient from worker goroutines.
	OnEvaluated func(patientID string, err error)
	// RunID defaults to a fresh UUID.
	RunID string
	// Workers bounds per-patient parallelism. Values below 1 mean 1.
	Workers int
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{Workers: 4}
}

func (o Options) withDefaults() Options {
	if o.Scorer == nil {
		o.Scorer = DefaultScorer()
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	if o.RunID == "" {
		o.RunID = uuid.NewString()
	}
	return o
}

// planned is a patient that passed the pure stages and awaits quota admission.
type planned struct {
	assessment model.RiskAssessment
	decision   Decision
}

// stageResult is one patient's outcome from the parallel phase.
type stageResult struct {
	err   error
	plan  *planned
	gates FilterResult
}

// Evaluate runs the whole pipeline for one patient against policy, consuming
// limiter for AUTO_ORDER. It is safe to call concurrently with a shared
// limiter; admission order then follows call order.
//
// policy must already be validated; policies are checked when they are
// created or activated and when EvaluateBatch starts, never per patient.
func Evaluate(p *model.PatientRecord, policy model.Policy, limiter *QuotaLimiter, opts Options) (model.RiskAssessment, error) {
	opts = opts.withDefaults()
	coord := NewCoordinator(policy)

	res := evaluateStages(p, coord, opts)
	if res.err != nil {
		return model.RiskAssessment{}, res.err
	}
	coord.Admit(&res.plan.decision, limiter)
	return finalize(res.plan), nil
}

// evaluateStages runs filter, scorer, note analyzer, safety and the
// pre-quota part of the coordinator. It touches no shared state.
func evaluateStages(p *model.PatientRecord, coord *Coordinator, opts Options) stageResult {
	if p == nil {
		return stageResult{err: &model.DataError{Field: "record", Reason: "nil patient record"}}
	}
	if err := p.Validate(); err != nil {
		return stageResult{err: err}
	}

	gates := Filter(p)
	if !gates.Admitted() {
		return stageResult{gates: gates, err: &NotCandidateError{PatientID: p.ID, Gates: gates}}
	}

	score, contributions := opts.Scorer.Score(p)
	notes := AnalyzeNote(p.Note)
	profile := p.Profile()
	flags := EvaluateSafety(SafetyInput{
		Note:         p.Note,
		RiskScore:    score,
		SymptomCount: profile.SymptomCount,
		Age:          p.Age,
	})

	decision := coord.Plan(score, flags)

	return stageResult{
		gates: gates,
		plan: &planned{
			assessment: model.RiskAssessment{
				RunID:         opts.RunID,
				PatientID:     p.ID,
				ModelVersion:  ModelVersion,
				CreatedAt:     opts.Clock().UTC(),
				RiskScore:     score,
				Contributions: contributions,
				Notes:         notes,
				Subject:       profile,
				Flags:         flags,
			},
			decision: decision,
		},
	}
}

func finalize(pl *planned) model.RiskAssessment {
	a := pl.assessment
	a.BaseAction = pl.decision.BaseAction
	a.Action = pl.decision.Action
	a.Autonomy = pl.decision.Autonomy
	a.Rationale = pl.decision.Rationale
	return a
}

// EvaluateBatch screens a patient population under one policy snapshot.
//
// The pure stages run on a bounded worker pool. Quota admission then happens
// sequentially in ascending patient-ID order against one fresh QuotaLimiter,
// so repeated runs over the same data and policy give the same per-patient
// outcomes regardless of scheduling. A patient with bad data is recorded in
// RunResult.Failures and does not stop the batch. An invalid policy fails the
// run before any patient is processed.
//
// The AUTO_ORDER bound is per QuotaWindow, not per run: a run whose admission
// phase spans more than QuotaWindow gets a fresh quota for each window.
func EvaluateBatch(ctx context.Context, patients []model.PatientRecord, policy model.Policy, opts Options) (*model.RunResult, error) {
	opts = opts.withDefaults()
	run := model.NewRunResult(opts.RunID, policy)
	run.TotalPatients = len(patients)

	if err := policy.Validate(); err != nil {
		_ = run.Fail(opts.Clock().UTC(), err)
		return run, fmt.Errorf("run %s: %w", run.ID, err)
	}
	if err := run.Start(opts.Clock().UTC()); err != nil {
		return run, err
	}

	slog.Info("Starting screening run",
		"run_id", run.ID,
		"patients", len(patients),
		"workers", opts.Workers,
		"policy", policy.Name)

	coord := NewCoordinator(policy)
	results := make([]stageResult, len(patients))
	duplicates := duplicateIndexes(patients)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i := range patients {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p := &patients[i]
			if duplicates[i] {
				results[i] = stageResult{err: &model.DataError{PatientID: p.ID, Field: "patient_id", Reason: "duplicate identifier in batch"}}
			} else {
				results[i] = evaluateStages(p, coord, opts)
			}
			if opts.OnEvaluated != nil {
				opts.OnEvaluated(p.ID, results[i].err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		_ = run.Fail(opts.Clock().UTC(), err)
		return run, fmt.Errorf("run %s canceled: %w", run.ID, err)
	}

	plans := make([]*planned, 0, len(patients))
	for i, res := range results {
		res.gates.Tally(&run.Gates)
		switch {
		case res.err == nil:
			plans = append(plans, res.plan)
		case errors.Is(res.err, ErrNotCandidate):
			// Filtered out; counted through the gate tally only.
		default:
			run.Failures = append(run.Failures, model.ItemFailure{
				PatientID: patients[i].ID,
				Reason:    res.err.Error(),
			})
			slog.Warn("Patient evaluation failed",
				"run_id", run.ID,
				"patient_id", patients[i].ID,
				"error", res.err)
		}
	}

	sort.SliceStable(plans, func(i, j int) bool {
		return plans[i].assessment.PatientID < plans[j].assessment.PatientID
	})

	limiter := NewQuotaLimiterWithClock(policy.MaxAutoActionsPerDay, opts.Clock)
	truth := make(map[string]bool, len(patients))
	for i := range patients {
		truth[patients[i].ID] = patients[i].AtRisk
	}

	var confusion model.Confusion
	flaggedSafety := 0
	run.Assessments = make([]model.RiskAssessment, 0, len(plans))
	for _, pl := range plans {
		coord.Admit(&pl.decision, limiter)
		a := finalize(pl)
		run.Assessments = append(run.Assessments, a)

		run.Actions.Add(a.Action)
		confusion.Add(a.Action.Flagged(), truth[a.PatientID])
		if a.NeedsManualReview() {
			flaggedSafety++
		}
	}

	run.CandidatesFound = len(plans)
	run.FlaggedCount = run.Actions.Flagged()
	run.Precision = confusion.Precision()
	run.Recall = confusion.Recall()
	run.F1 = confusion.F1()
	run.SafetyFlagRate = model.Ratio(flaggedSafety, len(plans))

	if err := run.Complete(opts.Clock().UTC()); err != nil {
		return run, err
	}

	slog.Info("Screening run completed",
		"run_id", run.ID,
		"candidates", run.CandidatesFound,
		"flagged", run.FlaggedCount,
		"auto_actions", run.Actions.AutoOrder,
		"failures", len(run.Failures),
		"duration", run.Duration)

	return run, nil
}

// duplicateIndexes marks every occurrence of a patient ID after the first.
func duplicateIndexes(patients []model.PatientRecord) []bool {
	seen := make(map[string]struct{}, len(patients))
	dup := make([]bool, len(patients))
	for i := range patients {
		id := patients[i].ID
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			dup[i] = true
			continue
		}
		seen[id] = struct{}{}
	}
	return dup
}
