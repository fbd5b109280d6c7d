package screening

import (
	"fmt"

	"github.com/hassanmzia/ai-healthcare-embodiment/internal/model"
)

// Scorer computes the bounded risk score and its per-feature breakdown.
type Scorer struct {
	weights Weights
}

// NewScorer creates a scorer over a validated copy of w.
func NewScorer(w Weights) (*Scorer, error) {
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scoring weights: %w", err)
	}
	return &Scorer{weights: w.Clone()}, nil
}

// DefaultScorer returns a scorer using DefaultWeights.
func DefaultScorer() *Scorer {
	return &Scorer{weights: DefaultWeights()}
}

// Weights returns a copy of the scorer's weight table.
func (s *Scorer) Weights() Weights {
	return s.weights.Clone()
}

// Score returns clamp(Σ contributions, 0, 1) and the contributions.
// Every feature appears in the breakdown, with 0 when it did not fire.
func (s *Scorer) Score(p *model.PatientRecord) (float64, model.FeatureContributions) {
	w := s.weights
	contributions := make(model.FeatureContributions, len(model.SymptomNames)+8)
	var raw float64

	add := func(feature string, value float64) {
		contributions[feature] = value
		raw += value
	}

	if w.Base != 0 {
		add(FeatureBase, w.Base)
	}

	for _, name := range model.SymptomNames {
		v := 0.0
		if p.Symptoms.Has(name) {
			v = w.Symptoms[name]
		}
		add(name, v)
	}

	add(FeatureLesions, boolWeight(p.LesionsPresent, w.Lesions))
	add(FeatureNoteMSTerms, boolWeight(noteMentionsMS(p), w.NoteMSTerms))

	lookalike := p.Lookalike
	if lookalike == "" {
		lookalike = model.LookalikeNone
	}
	add(FeatureLookalikePenalty, w.LookalikePenalties[lookalike])

	add(FeatureVitaminDDeficient, boolWeight(vitaminDDeficient(p.Extended, w.VitaminDDeficientNgML), w.VitaminDDeficientBonus))
	add(FeatureMonoHistory, boolWeight(p.Extended.MonoHistory != nil && *p.Extended.MonoHistory, w.MonoHistoryBonus))
	add(FeatureSmartformNeuro, smartformBonus(p.Extended.SmartformNeuroScore, w))
	add(FeaturePathsFunctionLow, pathsBonus(p.Extended.PathsFunctionScore, w))

	return clamp01(raw), contributions
}

func boolWeight(on bool, weight float64) float64 {
	if on {
		return weight
	}
	return 0
}

// vitaminDDeficient prefers the recorded flag and falls back to the lab value.
func vitaminDDeficient(ext model.ExtendedMarkers, thresholdNgML float64) bool {
	if ext.VitaminDDeficient != nil {
		return *ext.VitaminDDeficient
	}
	if ext.VitaminDNgML != nil {
		return *ext.VitaminDNgML < thresholdNgML
	}
	return false
}

// smartformBonus scales the structured symptom score linearly, capped at
// SmartformMaxPoints.
func smartformBonus(score *float64, w Weights) float64 {
	if score == nil {
		return 0
	}
	points := *score
	if points < 0 {
		points = 0
	}
	if points > w.SmartformMaxPoints {
		points = w.SmartformMaxPoints
	}
	return points * w.SmartformPerPoint
}

// pathsBonus grows linearly from 0 at the threshold to PathsLowMaxBonus at a
// function score of 0. Lower function scores mean worse performance.
func pathsBonus(score *float64, w Weights) float64 {
	if score == nil || w.PathsLowThreshold <= 0 {
		return 0
	}
	v := *score
	if v >= w.PathsLowThreshold {
		return 0
	}
	if v < 0 {
		v = 0
	}
	return w.PathsLowMaxBonus * (w.PathsLowThreshold - v) / w.PathsLowThreshold
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
