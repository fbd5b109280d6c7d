package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Default policy values.
const (
	DefaultReviewThreshold      = 0.65
	DefaultDraftThreshold       = 0.80
	DefaultAutoThreshold        = 0.90
	DefaultMaxAutoActionsPerDay = 20
)

// Policy is a named set of decision thresholds plus the daily auto-action quota.
// A Policy obtained from NewPolicy or accepted by Validate satisfies
// ReviewThreshold <= DraftThreshold <= AutoThreshold, each within [0,1].
type Policy struct {
	CreatedAt            time.Time `json:"created_at"`
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	CreatedBy            string    `json:"created_by"`
	ReviewThreshold      float64   `json:"risk_review_threshold"`
	DraftThreshold       float64   `json:"draft_order_threshold"`
	AutoThreshold        float64   `json:"auto_order_threshold"`
	MaxAutoActionsPerDay int       `json:"max_auto_actions_per_day"`
	Active               bool      `json:"is_active"`
}

// DefaultPolicy returns the system default policy.
func DefaultPolicy() Policy {
	return Policy{
		ID:                   uuid.NewString(),
		Name:                 "Default MS Screening Policy",
		CreatedBy:            "system",
		CreatedAt:            time.Now().UTC(),
		ReviewThreshold:      DefaultReviewThreshold,
		DraftThreshold:       DefaultDraftThreshold,
		AutoThreshold:        DefaultAutoThreshold,
		MaxAutoActionsPerDay: DefaultMaxAutoActionsPerDay,
	}
}

// NewPolicy builds and validates a policy.
func NewPolicy(name string, review, draft, auto float64, maxAuto int) (Policy, error) {
	p := Policy{
		ID:                   uuid.NewString(),
		Name:                 name,
		CreatedAt:            time.Now().UTC(),
		ReviewThreshold:      review,
		DraftThreshold:       draft,
		AutoThreshold:        auto,
		MaxAutoActionsPerDay: maxAuto,
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// Validate checks threshold ordering, ranges and the quota.
func (p Policy) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	thresholds := []struct {
		name  string
		value float64
	}{
		{"risk_review_threshold", p.ReviewThreshold},
		{"draft_order_threshold", p.DraftThreshold},
		{"auto_order_threshold", p.AutoThreshold},
	}
	for _, th := range thresholds {
		// NaN fails both comparisons, so test for the in-range case.
		if !(th.value >= 0 && th.value <= 1) {
			return &ValidationError{Field: th.name, Reason: fmt.Sprintf("must be within [0,1], got %v", th.value)}
		}
	}
	if p.ReviewThreshold > p.DraftThreshold {
		return &ValidationError{
			Field:  "draft_order_threshold",
			Reason: fmt.Sprintf("must be >= review threshold (%.3f > %.3f)", p.ReviewThreshold, p.DraftThreshold),
		}
	}
	if p.DraftThreshold > p.AutoThreshold {
		return &ValidationError{
			Field:  "auto_order_threshold",
			Reason: fmt.Sprintf("must be >= draft threshold (%.3f > %.3f)", p.DraftThreshold, p.AutoThreshold),
		}
	}
	if p.MaxAutoActionsPerDay < 0 {
		return &ValidationError{Field: "max_auto_actions_per_day", Reason: fmt.Sprintf("must not be negative, got %d", p.MaxAutoActionsPerDay)}
	}
	return nil
}

func (p Policy) String() string {
	return fmt.Sprintf("%s (review=%.2f draft=%.2f auto=%.2f max_auto=%d)",
		p.Name, p.ReviewThreshold, p.DraftThreshold, p.AutoThreshold, p.MaxAutoActionsPerDay)
}
