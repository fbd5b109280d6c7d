// Package storage provides the SQLite persistence layer for screening data.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hassanmzia/ai-healthcare-embodiment/internal/model"
)

// Validation errors.
var (
	ErrNilContext   = errors.New("context cannot be nil")
	ErrEmptyString  = errors.New("string parameter cannot be empty")
	ErrNilParameter = errors.New("parameter cannot be nil")
	ErrEmptySlice   = errors.New("slice cannot be empty")
	ErrInvalidRun   = errors.New("invalid run")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validatePatients checks every record before any is written.
func validatePatients(patients []model.PatientRecord) error {
	if patients == nil {
		return fmt.Errorf("%w: patients", ErrNilParameter)
	}
	if len(patients) == 0 {
		return fmt.Errorf("%w: patients", ErrEmptySlice)
	}
	for i := range patients {
		if err := patients[i].Validate(); err != nil {
			return fmt.Errorf("patient at index %d: %w", i, err)
		}
	}
	return nil
}

// validatePolicy ensures a policy is present and well formed.
func validatePolicy(policy *model.Policy) error {
	if policy == nil {
		return fmt.Errorf("%w: policy", ErrNilParameter)
	}
	if err := validateString(policy.ID, "policy.ID"); err != nil {
		return err
	}
	return policy.Validate()
}

// validateRun ensures a run is present and has an identity and status.
func validateRun(run *model.RunResult) error {
	if run == nil {
		return fmt.Errorf("%w: run", ErrNilParameter)
	}
	if strings.TrimSpace(run.ID) == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidRun)
	}
	switch run.Status {
	case model.RunPending, model.RunRunning, model.RunCompleted, model.RunFailed:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidRun, run.Status)
	}
	return nil
}
