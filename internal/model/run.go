package model

import (
	"fmt"
	"time"
)

// RunStatus is the lifecycle state of a screening run.
type RunStatus string

// Run status constants.
const (
	RunPending   RunStatus = "PENDING"
	RunRunning   RunStatus = "RUNNING"
	RunCompleted RunStatus = "COMPLETED"
	RunFailed    RunStatus = "FAILED"
)

// IsTerminal reports whether no further transition is allowed.
func (s RunStatus) IsTerminal() bool {
	return s == RunCompleted || s == RunFailed
}

// GateCounts records how many patients passed each candidate gate.
type GateCounts struct {
	LesionsPresent int `json:"mri_lesions"`
	NoteMSTerms    int `json:"note_has_ms_terms"`
	MinSymptoms    int `json:"symptoms_gte_2"`
	MinVisits      int `json:"visits_gte_6"`
}

// ActionCounts tallies final actions.
type ActionCounts struct {
	NoAction        int `json:"no_actions"`
	RecommendReview int `json:"recommend_actions"`
	DraftOrder      int `json:"draft_actions"`
	AutoOrder       int `json:"auto_actions"`
}

// Add counts one action.
func (c *ActionCounts) Add(a Action) {
	switch a {
	case ActionRecommendReview:
		c.RecommendReview++
	case ActionDraftOrder:
		c.DraftOrder++
	case ActionAutoOrder:
		c.AutoOrder++
	default:
		c.NoAction++
	}
}

// Flagged returns the number of actions other than NO_ACTION.
func (c ActionCounts) Flagged() int {
	return c.RecommendReview + c.DraftOrder + c.AutoOrder
}

// Total returns the number of counted actions.
func (c ActionCounts) Total() int {
	return c.NoAction + c.Flagged()
}

// ItemFailure records a patient whose evaluation failed in isolation.
type ItemFailure struct {
	PatientID string `json:"patient_id"`
	Reason    string `json:"reason"`
}

// RunResult is the aggregate outcome of one screening run.
type RunResult struct {
	CreatedAt       time.Time        `json:"created_at"`
	StartedAt       *time.Time       `json:"started_at,omitempty"`
	CompletedAt     *time.Time       `json:"completed_at,omitempty"`
	Precision       *float64         `json:"precision"`
	Recall          *float64         `json:"recall"`
	F1              *float64         `json:"f1_score"`
	SafetyFlagRate  *float64         `json:"safety_flag_rate"`
	ID              string           `json:"id"`
	PolicyHash      string           `json:"policy_hash,omitempty"`
	Status          RunStatus        `json:"status"`
	ErrorMessage    string           `json:"error_message,omitempty"`
	Policy          Policy           `json:"policy_snapshot"`
	Failures        []ItemFailure    `json:"failures"`
	Assessments     []RiskAssessment `json:"-"`
	Gates           GateCounts       `json:"gate_counts"`
	Actions         ActionCounts     `json:"actions"`
	Duration        time.Duration    `json:"duration"`
	TotalPatients   int              `json:"total_patients"`
	CandidatesFound int              `json:"candidates_found"`
	FlaggedCount    int              `json:"flagged_count"`
}

// NewRunResult creates a pending run bound to a policy snapshot.
func NewRunResult(id string, policy Policy) *RunResult {
	return &RunResult{
		ID:        id,
		Policy:    policy,
		Status:    RunPending,
		CreatedAt: time.Now().UTC(),
	}
}

// Start moves a pending run to running.
func (r *RunResult) Start(at time.Time) error {
	if r.Status != RunPending {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, RunRunning)
	}
	r.Status = RunRunning
	r.StartedAt = &at
	return nil
}

// Complete moves a running run to completed.
func (r *RunResult) Complete(at time.Time) error {
	if r.Status != RunRunning {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, RunCompleted)
	}
	r.Status = RunCompleted
	r.CompletedAt = &at
	if r.StartedAt != nil {
		r.Duration = at.Sub(*r.StartedAt)
	}
	return nil
}

// Fail moves a non-terminal run to failed and records the cause.
func (r *RunResult) Fail(at time.Time, cause error) error {
	if r.Status.IsTerminal() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, RunFailed)
	}
	r.Status = RunFailed
	r.CompletedAt = &at
	if cause != nil {
		r.ErrorMessage = cause.Error()
	}
	if r.StartedAt != nil {
		r.Duration = at.Sub(*r.StartedAt)
	}
	return nil
}
