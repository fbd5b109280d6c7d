package model

import (
	"sort"
	"time"
)

// Action is the clinical action chosen for a patient.
type Action string

// Action constants, in ascending autonomy.
const (
	ActionNoAction        Action = "NO_ACTION"
	ActionRecommendReview Action = "RECOMMEND_NEURO_REVIEW"
	ActionDraftOrder      Action = "DRAFT_MRI_ORDER"
	ActionAutoOrder       Action = "AUTO_ORDER_MRI_AND_NOTIFY_NEURO"
)

// Actions lists every action in ascending autonomy order.
var Actions = []Action{ActionNoAction, ActionRecommendReview, ActionDraftOrder, ActionAutoOrder}

// AutonomyLevel is the ordinal tier of action taken without human sign-off.
type AutonomyLevel int

// Autonomy levels.
const (
	AutonomyNone          AutonomyLevel = 0
	AutonomyRecommendOnly AutonomyLevel = 1
	AutonomyDraftOrder    AutonomyLevel = 2
	AutonomyAutoOrder     AutonomyLevel = 3
)

// Autonomy returns the tier an action implies.
func (a Action) Autonomy() AutonomyLevel {
	switch a {
	case ActionRecommendReview:
		return AutonomyRecommendOnly
	case ActionDraftOrder:
		return AutonomyDraftOrder
	case ActionAutoOrder:
		return AutonomyAutoOrder
	default:
		return AutonomyNone
	}
}

// IsValid reports whether a is a known action.
func (a Action) IsValid() bool {
	for _, known := range Actions {
		if a == known {
			return true
		}
	}
	return false
}

// Flagged reports whether the action counts as a positive screen.
func (a Action) Flagged() bool {
	return a != ActionNoAction
}

func (l AutonomyLevel) String() string {
	switch l {
	case AutonomyNone:
		return "NONE"
	case AutonomyRecommendOnly:
		return "RECOMMEND_ONLY"
	case AutonomyDraftOrder:
		return "DRAFT_ORDER"
	case AutonomyAutoOrder:
		return "AUTO_ORDER_WITH_GUARDRAILS"
	default:
		return "UNKNOWN"
	}
}

// Severity grades a safety flag.
type Severity string

// Severity constants.
const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Safety flag codes.
const (
	FlagPHIDetected         = "PHI_DETECTED"
	FlagLowEvidence         = "LOW_EVIDENCE_CASE"
	FlagMinorPatient        = "MINOR_PATIENT"
	FlagHighRiskLowEvidence = "HIGH_RISK_LOW_EVIDENCE"
)

// SafetyFlag is a named governance concern raised for a patient.
type SafetyFlag struct {
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Detail   string   `json:"detail,omitempty"`
}

// FlagCodes returns the codes of flags in order.
func FlagCodes(flags []SafetyFlag) []string {
	codes := make([]string, len(flags))
	for i, f := range flags {
		codes[i] = f.Code
	}
	return codes
}

// NoteAnalysis is the terminology evidence extracted from a clinical note.
type NoteAnalysis struct {
	Excerpt             string   `json:"note_excerpt"`
	SupportiveTerms     []string `json:"ms_terms_found"`
	CountervailingTerms []string `json:"nonms_terms_found"`
	SupportiveFound     bool     `json:"note_ms_terms_flag"`
	CountervailingFound bool     `json:"note_nonms_terms_flag"`
}

// FeatureContributions maps a feature name to its signed score contribution.
type FeatureContributions map[string]float64

// Sum adds the contributions in sorted key order so the result is stable.
func (fc FeatureContributions) Sum() float64 {
	keys := make([]string, 0, len(fc))
	for k := range fc {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var total float64
	for _, k := range keys {
		total += fc[k]
	}
	return total
}

// Contribution is one named entry of FeatureContributions.
type Contribution struct {
	Feature string  `json:"feature"`
	Value   float64 `json:"value"`
}

// Top returns up to n positive contributions, largest first. Ties break by name.
func (fc FeatureContributions) Top(n int) []Contribution {
	out := make([]Contribution, 0, len(fc))
	for k, v := range fc {
		if v > 0 {
			out = append(out, Contribution{Feature: k, Value: v})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Feature < out[j].Feature
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// RiskAssessment is the pipeline output for one patient in one run.
type RiskAssessment struct {
	CreatedAt     time.Time            `json:"created_at"`
	Contributions FeatureContributions `json:"feature_contributions"`
	RunID         string               `json:"run_id"`
	PatientID     string               `json:"patient_id"`
	ModelVersion  string               `json:"model_version"`
	BaseAction    Action               `json:"base_action"`
	Action        Action               `json:"action"`
	Notes         NoteAnalysis         `json:"notes_analysis"`
	Subject       SubjectProfile       `json:"subject"`
	Flags         []SafetyFlag         `json:"flags"`
	Rationale     []string             `json:"rationale"`
	RiskScore     float64              `json:"risk_score"`
	Autonomy      AutonomyLevel        `json:"autonomy_level"`
}

// FlagCount returns the number of safety flags.
func (a *RiskAssessment) FlagCount() int {
	return len(a.Flags)
}

// NeedsManualReview reports whether any safety flag was raised.
func (a *RiskAssessment) NeedsManualReview() bool {
	return len(a.Flags) > 0
}
