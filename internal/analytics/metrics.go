// Package analytics scores screening runs against ground truth and replays
// stored decisions under alternate policies.
package analytics

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hassanmzia/ai-healthcare-embodiment/internal/model"
)

// Common errors.
var (
	ErrMissingLabel     = errors.New("missing ground-truth label")
	ErrInvalidDimension = errors.New("invalid subgroup dimension")
	ErrDuplicateCase    = errors.New("duplicate patient in case set")
)

// MetricsOptions tunes ComputeMetrics.
type MetricsOptions struct {
	// HistogramBins defaults to DefaultHistogramBins.
	HistogramBins int
	// Dimensions defaults to every supported dimension.
	Dimensions []Dimension
}

// LevelCount is one entry of an autonomy distribution.
type LevelCount struct {
	Level string `json:"level"`
	Count int    `json:"count"`
}

// MetricsReport is the full quality report for one set of assessments.
type MetricsReport struct {
	Precision      *float64                      `json:"precision"`
	Recall         *float64                      `json:"recall"`
	F1             *float64                      `json:"f1_score"`
	SafetyFlagRate *float64                      `json:"safety_flag_rate"`
	Fairness       map[Dimension][]SubgroupStats `json:"fairness"`
	FlagCounts     map[string]int                `json:"flag_counts"`
	Autonomy       []LevelCount                  `json:"autonomy_distribution"`
	Calibration    []CalibrationBin              `json:"calibration"`
	Distribution   ScoreDistribution             `json:"distribution"`
	Confusion      model.Confusion               `json:"confusion"`
	Actions        model.ActionCounts            `json:"actions"`
	Total          int                           `json:"total_assessed"`
	Flagged        int                           `json:"flagged_count"`
}

// ComputeMetrics scores assessments against truth, keyed by patient ID. Every
// assessment must have a label. A positive prediction is any action other
// than NO_ACTION.
func ComputeMetrics(assessments []model.RiskAssessment, truth map[string]bool, opts MetricsOptions) (*MetricsReport, error) {
	labels := make([]bool, len(assessments))
	for i := range assessments {
		label, ok := truth[assessments[i].PatientID]
		if !ok {
			return nil, fmt.Errorf("%w: patient %s", ErrMissingLabel, assessments[i].PatientID)
		}
		labels[i] = label
	}

	dims := opts.Dimensions
	if len(dims) == 0 {
		dims = Dimensions
	}

	r := &MetricsReport{
		Total:      len(assessments),
		FlagCounts: make(map[string]int),
		Fairness:   make(map[Dimension][]SubgroupStats, len(dims)),
	}

	scores := make([]float64, len(assessments))
	levels := make(map[model.AutonomyLevel]int)
	flagged := 0
	for i := range assessments {
		a := &assessments[i]
		scores[i] = a.RiskScore
		r.Actions.Add(a.Action)
		r.Confusion.Add(a.Action.Flagged(), labels[i])
		levels[a.Autonomy]++
		if a.NeedsManualReview() {
			flagged++
		}
		for _, f := range a.Flags {
			r.FlagCounts[f.Code]++
		}
	}

	r.Flagged = r.Actions.Flagged()
	r.Precision = r.Confusion.Precision()
	r.Recall = r.Confusion.Recall()
	r.F1 = r.Confusion.F1()
	r.SafetyFlagRate = model.Ratio(flagged, len(assessments))
	r.Distribution = Distribution(scores, opts.HistogramBins)
	r.Calibration = Calibration(scores, labels)
	r.Autonomy = autonomyDistribution(levels)

	for _, d := range dims {
		groups, err := SubgroupAnalysis(assessments, truth, d)
		if err != nil {
			return nil, err
		}
		r.Fairness[d] = groups
	}
	return r, nil
}

func autonomyDistribution(levels map[model.AutonomyLevel]int) []LevelCount {
	keys := make([]model.AutonomyLevel, 0, len(levels))
	for k := range levels {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	out := make([]LevelCount, len(keys))
	for i, k := range keys {
		out[i] = LevelCount{Level: k.String(), Count: levels[k]}
	}
	return out
}
