package model

import (
	"errors"
	"fmt"
)

// Domain errors.
var (
	ErrInvalidPolicy     = errors.New("invalid policy")
	ErrInvalidPatient    = errors.New("invalid patient record")
	ErrInvalidTransition = errors.New("invalid run status transition")
)

// ValidationError reports a malformed Policy. It is raised when a policy is
// built or activated, never while a run is deciding.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidPolicy, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidPolicy
}

// DataError reports a missing or malformed patient field. It fails only the
// patient it belongs to.
type DataError struct {
	PatientID string
	Field     string
	Reason    string
}

func (e *DataError) Error() string {
	if e.PatientID == "" {
		return fmt.Sprintf("%s: %s: %s", ErrInvalidPatient, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s %s: %s: %s", ErrInvalidPatient, e.PatientID, e.Field, e.Reason)
}

func (e *DataError) Unwrap() error {
	return ErrInvalidPatient
}
