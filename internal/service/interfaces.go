// Package service defines the interfaces for all application services.
package service

import (
	"context"

	"github.com/hassanmzia/ai-healthcare-embodiment/internal/model"
)

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Patient operations
	SavePatients(ctx context.Context, patients []model.PatientRecord) error
	GetPatients(ctx context.Context, limit int) ([]model.PatientRecord, error)
	GetPatient(ctx context.Context, id string) (*model.PatientRecord, error)
	CountPatients(ctx context.Context) (int, error)
	GetGroundTruth(ctx context.Context, patientIDs []string) (map[string]bool, error)

	// Policy operations
	CreatePolicy(ctx context.Context, policy *model.Policy) error
	GetPolicy(ctx context.Context, idOrName string) (*model.Policy, error)
	ListPolicies(ctx context.Context) ([]model.Policy, error)
	ActivatePolicy(ctx context.Context, idOrName string) (*model.Policy, error)
	GetActivePolicy(ctx context.Context) (*model.Policy, error)

	// Run operations
	SaveRun(ctx context.Context, run *model.RunResult) error
	UpdateRun(ctx context.Context, run *model.RunResult) error
	FinishRun(ctx context.Context, run *model.RunResult) error
	GetRun(ctx context.Context, id string) (*model.RunResult, error)
	ListRuns(ctx context.Context, limit int) ([]model.RunResult, error)

	// Assessment operations
	SaveAssessments(ctx context.Context, assessments []model.RiskAssessment) error
	GetAssessmentsByRun(ctx context.Context, runID string) ([]model.RiskAssessment, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RunRecorder receives run outcomes for observability.
type RunRecorder interface {
	ObserveRun(run *model.RunResult)
}
