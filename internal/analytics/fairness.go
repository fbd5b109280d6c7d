package analytics

import (
	"fmt"
	"sort"

	"github.com/hassanmzia/ai-healthcare-embodiment/internal/model"
)

// Dimension is a demographic or clinical attribute to stratify by.
type Dimension string

// Supported subgroup dimensions.
const (
	DimensionSex       Dimension = "sex"
	DimensionAgeBand   Dimension = "age_band"
	DimensionLookalike Dimension = "lookalike"
)

// Dimensions lists every supported dimension.
var Dimensions = []Dimension{DimensionSex, DimensionAgeBand, DimensionLookalike}

// ParseDimension validates a dimension name. "lookalike_dx" is accepted as
// an alias for lookalike.
func ParseDimension(s string) (Dimension, error) {
	switch s {
	case string(DimensionSex):
		return DimensionSex, nil
	case string(DimensionAgeBand):
		return DimensionAgeBand, nil
	case string(DimensionLookalike), "lookalike_dx":
		return DimensionLookalike, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDimension, s)
	}
}

func (d Dimension) key(p model.SubjectProfile) string {
	switch d {
	case DimensionSex:
		return string(p.Sex)
	case DimensionAgeBand:
		return model.AgeBand(p.Age)
	default:
		return string(p.Lookalike)
	}
}

// SubgroupStats are per-group screening rates.
type SubgroupStats struct {
	Group           string  `json:"group"`
	N               int     `json:"n"`
	FlaggedRate     float64 `json:"flagged_rate"`
	MeanRisk        float64 `json:"avg_risk"`
	DraftOrAutoRate float64 `json:"auto_or_draft_rate"`
	AutoRate        float64 `json:"auto_rate"`
	SafetyFlagRate  float64 `json:"safety_flag_rate"`
	PositiveRate    float64 `json:"true_at_risk_rate"`
	ImagingRate     float64 `json:"mri_rate"`
}

// SubgroupAnalysis stratifies assessments by dim. Every group that has at
// least one assessment is reported, sorted by group key. Assessments with no
// ground-truth label count as negatives for PositiveRate.
func SubgroupAnalysis(assessments []model.RiskAssessment, truth map[string]bool, dim Dimension) ([]SubgroupStats, error) {
	if _, err := ParseDimension(string(dim)); err != nil {
		return nil, err
	}

	type acc struct {
		risk        float64
		n           int
		flagged     int
		draftOrAuto int
		auto        int
		safety      int
		pos         int
		imaging     int
	}
	groups := make(map[string]*acc)
	for i := range assessments {
		a := &assessments[i]
		k := dim.key(a.Subject)
		g, ok := groups[k]
		if !ok {
			g = &acc{}
			groups[k] = g
		}
		g.n++
		g.risk += a.RiskScore
		if a.Action.Flagged() {
			g.flagged++
		}
		if a.Autonomy >= model.AutonomyDraftOrder {
			g.draftOrAuto++
		}
		if a.Autonomy == model.AutonomyAutoOrder {
			g.auto++
		}
		if a.NeedsManualReview() {
			g.safety++
		}
		if truth[a.PatientID] {
			g.pos++
		}
		if a.Subject.HasImaging {
			g.imaging++
		}
	}

	out := make([]SubgroupStats, 0, len(groups))
	for k, g := range groups {
		n := float64(g.n)
		out = append(out, SubgroupStats{
			Group:           k,
			N:               g.n,
			FlaggedRate:     float64(g.flagged) / n,
			MeanRisk:        g.risk / n,
			DraftOrAutoRate: float64(g.draftOrAuto) / n,
			AutoRate:        float64(g.auto) / n,
			SafetyFlagRate:  float64(g.safety) / n,
			PositiveRate:    float64(g.pos) / n,
			ImagingRate:     float64(g.imaging) / n,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Group < out[j].Group })
	return out, nil
}
