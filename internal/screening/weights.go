// Package screening implements the per-patient MS risk decision pipeline:
// candidate filtering, risk scoring, note analysis, safety evaluation and the
// policy-driven coordinator with its run-scoped auto-action quota.
package screening

import (
	"fmt"

	"github.com/hassanmzia/ai-healthcare-embodiment/internal/model"
)

// ModelVersion tags assessments produced by the extended-feature scorer.
const ModelVersion = "v2"

// Contribution keys for non-symptom features.
const (
	FeatureBase              = "base"
	FeatureLesions           = "mri_lesions"
	FeatureNoteMSTerms       = "note_has_ms_terms"
	FeatureLookalikePenalty  = "lookalike_penalty"
	FeatureVitaminDDeficient = "vitamin_d_deficient"
	FeatureMonoHistory       = "infectious_mono_history"
	FeatureSmartformNeuro    = "smartform_neuro"
	FeaturePathsFunctionLow  = "paths_like_function_low"
)

// Default scoring constants.
const (
	DefaultLesionWeight           = 0.18
	DefaultNoteMSTermsWeight      = 0.12
	DefaultVitaminDDeficientBonus = 0.06
	DefaultVitaminDDeficientNgML  = 20.0
	DefaultMonoHistoryBonus       = 0.05
	DefaultSmartformPerPoint      = 0.02
	DefaultSmartformMaxPoints     = 8.0
	DefaultPathsLowThreshold      = 70.0
	DefaultPathsLowMaxBonus       = 0.04
)

// Weights holds every constant the scorer uses. A score is always exactly
// reconstructable from the weights and the patient record.
type Weights struct {
	Symptoms               map[string]float64          `mapstructure:"symptoms" yaml:"symptoms"`
	LookalikePenalties     map[model.Lookalike]float64 `mapstructure:"lookalike_penalties" yaml:"lookalike_penalties"`
	Base                   float64                     `mapstructure:"base" yaml:"base"`
	Lesions                float64                     `mapstructure:"mri_lesions" yaml:"mri_lesions"`
	NoteMSTerms            float64                     `mapstructure:"note_has_ms_terms" yaml:"note_has_ms_terms"`
	VitaminDDeficientBonus float64                     `mapstructure:"vitamin_d_deficient_bonus" yaml:"vitamin_d_deficient_bonus"`
	VitaminDDeficientNgML  float64                     `mapstructure:"vitamin_d_deficient_ngml" yaml:"vitamin_d_deficient_ngml"`
	MonoHistoryBonus       float64                     `mapstructure:"mono_history_bonus" yaml:"mono_history_bonus"`
	SmartformPerPoint      float64                     `mapstructure:"smartform_per_point" yaml:"smartform_per_point"`
	SmartformMaxPoints     float64                     `mapstructure:"smartform_max_points" yaml:"smartform_max_points"`
	PathsLowThreshold      float64                     `mapstructure:"paths_low_threshold" yaml:"paths_low_threshold"`
	PathsLowMaxBonus       float64                     `mapstructure:"paths_low_max_bonus" yaml:"paths_low_max_bonus"`
}

// DefaultWeights returns the reference weight table. Symptom weights sum to
// 0.82 and descend from the most diagnostic symptom (optic neuritis).
func DefaultWeights() Weights {
	return Weights{
		Symptoms: map[string]float64{
			model.SymptomOpticNeuritis:   0.22,
			model.SymptomParesthesia:     0.14,
			model.SymptomWeakness:        0.13,
			model.SymptomGaitInstability: 0.10,
			model.SymptomVertigo:         0.08,
			model.SymptomFatigue:         0.06,
			model.SymptomBladderIssues:   0.05,
			model.SymptomCognitiveFog:    0.04,
		},
		LookalikePenalties: map[model.Lookalike]float64{
			model.LookalikeMigraine:      -0.08,
			model.LookalikeB12Deficiency: -0.10,
			model.LookalikeAnxiety:       -0.05,
			model.LookalikeFibromyalgia:  -0.07,
			model.LookalikeStrokeTIA:     -0.12,
			model.LookalikeNone:          0,
		},
		Lesions:                DefaultLesionWeight,
		NoteMSTerms:            DefaultNoteMSTermsWeight,
		VitaminDDeficientBonus: DefaultVitaminDDeficientBonus,
		VitaminDDeficientNgML:  DefaultVitaminDDeficientNgML,
		MonoHistoryBonus:       DefaultMonoHistoryBonus,
		SmartformPerPoint:      DefaultSmartformPerPoint,
		SmartformMaxPoints:     DefaultSmartformMaxPoints,
		PathsLowThreshold:      DefaultPathsLowThreshold,
		PathsLowMaxBonus:       DefaultPathsLowMaxBonus,
	}
}

// Validate rejects weight tables that would break the scoring contract.
func (w Weights) Validate() error {
	for _, name := range model.SymptomNames {
		v, ok := w.Symptoms[name]
		if !ok {
			return fmt.Errorf("missing symptom weight %q", name)
		}
		if v < 0 {
			return fmt.Errorf("symptom weight %q must not be negative", name)
		}
	}
	for dx, v := range w.LookalikePenalties {
		if v > 0 {
			return fmt.Errorf("lookalike penalty %q must not be positive", dx)
		}
	}
	if w.SmartformMaxPoints < 0 {
		return fmt.Errorf("smartform max points must not be negative")
	}
	if w.PathsLowThreshold <= 0 && w.PathsLowMaxBonus != 0 {
		return fmt.Errorf("paths low threshold must be positive when a bonus is configured")
	}
	return nil
}

// Clone returns a deep copy so callers can adjust a table safely.
func (w Weights) Clone() Weights {
	out := w
	out.Symptoms = make(map[string]float64, len(w.Symptoms))
	for k, v := range w.Symptoms {
		out.Symptoms[k] = v
	}
	out.LookalikePenalties = make(map[model.Lookalike]float64, len(w.LookalikePenalties))
	for k, v := range w.LookalikePenalties {
		out.LookalikePenalties[k] = v
	}
	return out
}
