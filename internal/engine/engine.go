// Package engine runs screening batches against stored patients and policies
// and produces metrics and what-if reports for completed runs.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hassanmzia/ai-healthcare-embodiment/internal/analytics"
	"github.com/hassanmzia/ai-healthcare-embodiment/internal/common"
	"github.com/hassanmzia/ai-healthcare-embodiment/internal/config"
	"github.com/hassanmzia/ai-healthcare-embodiment/internal/model"
	"github.com/hassanmzia/ai-healthcare-embodiment/internal/screening"
	"github.com/hassanmzia/ai-healthcare-embodiment/internal/service"
)

// ScreeningEngine orchestrates screening runs over the stored population.
type ScreeningEngine struct {
	storage  service.Storage
	recorder service.RunRecorder
	scorer   *screening.Scorer
	clock    func() time.Time
	config   Config
}

// Config holds configuration options for the screening engine.
type Config struct {
	// Workers bounds per-patient parallelism.
	Workers int
	// PatientLimit caps how many stored patients a run loads. Zero loads all.
	PatientLimit int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Workers: 4,
	}
}

// New creates a new screening engine with the given dependencies. A nil scorer
// uses the default weights and a nil recorder disables telemetry.
func New(storage service.Storage, scorer *screening.Scorer, recorder service.RunRecorder) *ScreeningEngine {
	return NewWithConfig(storage, scorer, recorder, DefaultConfig())
}

// NewWithConfig creates a new screening engine with custom configuration.
func NewWithConfig(storage service.Storage, scorer *screening.Scorer, recorder service.RunRecorder, cfg Config) *ScreeningEngine {
	if scorer == nil {
		scorer = screening.DefaultScorer()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &ScreeningEngine{
		storage:  storage,
		recorder: recorder,
		scorer:   scorer,
		clock:    time.Now,
		config:   cfg,
	}
}

// RunOptions configures a single screening run.
type RunOptions struct {
	// OnEvaluated is called once per patient from worker goroutines.
	OnEvaluated func(patientID string, err error)
	// OnLoaded is called with the population size before evaluation starts.
	OnLoaded func(total int)
	// Policy selects a policy by ID or name. Empty uses the active policy.
	Policy string
}

// RunScreening evaluates the stored population under a snapshot of the
// selected policy and persists the run with its assessments. A run that fails
// after it was created is persisted as FAILED and returned with the error.
func (e *ScreeningEngine) RunScreening(ctx context.Context, opts RunOptions) (*model.RunResult, error) {
	policy, err := e.resolvePolicy(ctx, opts.Policy)
	if err != nil {
		return nil, err
	}

	patients, err := e.storage.GetPatients(ctx, e.config.PatientLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load patients: %w", err)
	}
	if len(patients) == 0 {
		return nil, common.ErrNoPatients
	}
	if opts.OnLoaded != nil {
		opts.OnLoaded(len(patients))
	}

	pending := model.NewRunResult(uuid.NewString(), *policy)
	pending.PolicyHash = config.PolicyHash(*policy)
	pending.TotalPatients = len(patients)
	if err := e.storage.SaveRun(ctx, pending); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	slog.Info("Created screening run",
		"run_id", pending.ID,
		"policy", policy.Name,
		"policy_hash", pending.PolicyHash,
		"patients", len(patients))

	if err := pending.Start(e.clock().UTC()); err != nil {
		return nil, err
	}
	if err := e.storage.UpdateRun(ctx, pending); err != nil {
		return nil, fmt.Errorf("failed to mark run %s running: %w", pending.ID, err)
	}

	run, runErr := screening.EvaluateBatch(ctx, patients, *policy, screening.Options{
		Scorer:      e.scorer,
		Clock:       e.clock,
		OnEvaluated: opts.OnEvaluated,
		RunID:       pending.ID,
		Workers:     e.config.Workers,
	})
	run.CreatedAt = pending.CreatedAt
	run.PolicyHash = pending.PolicyHash

	// Persisting the outcome must survive cancellation of the caller's context.
	persistCtx := context.WithoutCancel(ctx)

	if runErr != nil {
		if !run.Status.IsTerminal() {
			_ = run.Fail(e.clock().UTC(), runErr)
		}
		if err := e.storage.UpdateRun(persistCtx, run); err != nil {
			common.LogError(err, "Failed to persist failed run", common.Fields{"run_id": run.ID})
		}
		e.observe(run)
		return run, runErr
	}

	if err := e.storage.FinishRun(persistCtx, run); err != nil {
		_ = run.Fail(e.clock().UTC(), err)
		run.Assessments = nil
		if updErr := e.storage.UpdateRun(persistCtx, run); updErr != nil {
			common.LogError(updErr, "Failed to persist failed run", common.Fields{"run_id": run.ID})
		}
		e.observe(run)
		return run, fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}

	e.observe(run)
	return run, nil
}

// RunMetrics computes the quality report for a completed run.
func (e *ScreeningEngine) RunMetrics(ctx context.Context, runID string, opts analytics.MetricsOptions) (*analytics.MetricsReport, error) {
	assessments, truth, err := e.loadCompletedRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	return analytics.ComputeMetrics(assessments, truth, opts)
}

// WhatIf replays a completed run's stored scores and safety flags under an
// alternate policy. Nothing is persisted.
func (e *ScreeningEngine) WhatIf(ctx context.Context, runID string, policy model.Policy) (*analytics.SimulationResult, error) {
	assessments, truth, err := e.loadCompletedRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	return analytics.Simulate(analytics.CasesFromAssessments(assessments), truth, policy)
}

func (e *ScreeningEngine) resolvePolicy(ctx context.Context, idOrName string) (*model.Policy, error) {
	if idOrName != "" {
		p, err := e.storage.GetPolicy(ctx, idOrName)
		if err != nil {
			return nil, fmt.Errorf("failed to load policy: %w", err)
		}
		return p, nil
	}

	p, err := e.storage.GetActivePolicy(ctx)
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.ErrNoActivePolicy
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load active policy: %w", err)
	}
	return p, nil
}

func (e *ScreeningEngine) loadCompletedRun(ctx context.Context, runID string) ([]model.RiskAssessment, map[string]bool, error) {
	run, err := e.storage.GetRun(ctx, runID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load run: %w", err)
	}
	if run.Status != model.RunCompleted {
		return nil, nil, fmt.Errorf("run %s is %s: %w", run.ID, run.Status, common.ErrRunNotComplete)
	}

	assessments, err := e.storage.GetAssessmentsByRun(ctx, run.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load assessments: %w", err)
	}

	ids := make([]string, len(assessments))
	for i := range assessments {
		ids[i] = assessments[i].PatientID
	}
	truth := map[string]bool{}
	if len(ids) > 0 {
		truth, err = e.storage.GetGroundTruth(ctx, ids)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load ground truth: %w", err)
		}
	}

	slog.Debug("Loaded run for analysis",
		"run_id", run.ID,
		"assessments", len(assessments),
		"labels", len(truth))

	return assessments, truth, nil
}

func (e *ScreeningEngine) observe(run *model.RunResult) {
	if e.recorder != nil {
		e.recorder.ObserveRun(run)
	}
}
