package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/hassanmzia/ai-healthcare-embodiment/internal/common"
	"github.com/hassanmzia/ai-healthcare-embodiment/internal/model"
	"github.com/hassanmzia/ai-healthcare-embodiment/internal/screening"
)

// LoadScoringWeights builds the scorer's weight table from the default table
// overlaid with any scoring.* keys set in v (config file or MSLAB_ env vars).
// A nil v uses the global viper instance.
func LoadScoringWeights(v *viper.Viper) (screening.Weights, error) {
	if v == nil {
		v = viper.GetViper()
	}
	w := screening.DefaultWeights()

	for _, name := range model.SymptomNames {
		if key := "scoring.symptoms." + name; v.IsSet(key) {
			w.Symptoms[name] = v.GetFloat64(key)
		}
	}
	for _, dx := range model.Lookalikes {
		// viper lowercases keys, so stroke_TIA is looked up as stroke_tia.
		if key := "scoring.lookalike_penalties." + strings.ToLower(string(dx)); v.IsSet(key) {
			w.LookalikePenalties[dx] = v.GetFloat64(key)
		}
	}

	scalars := []struct {
		key string
		dst *float64
	}{
		{"scoring.base", &w.Base},
		{"scoring.mri_lesions", &w.Lesions},
		{"scoring.note_has_ms_terms", &w.NoteMSTerms},
		{"scoring.vitamin_d_deficient_bonus", &w.VitaminDDeficientBonus},
		{"scoring.vitamin_d_deficient_ngml", &w.VitaminDDeficientNgML},
		{"scoring.mono_history_bonus", &w.MonoHistoryBonus},
		{"scoring.smartform_per_point", &w.SmartformPerPoint},
		{"scoring.smartform_max_points", &w.SmartformMaxPoints},
		{"scoring.paths_low_threshold", &w.PathsLowThreshold},
		{"scoring.paths_low_max_bonus", &w.PathsLowMaxBonus},
	}
	for _, s := range scalars {
		if v.IsSet(s.key) {
			*s.dst = v.GetFloat64(s.key)
		}
	}

	if err := w.Validate(); err != nil {
		return screening.Weights{}, fmt.Errorf("%w: scoring: %v", common.ErrInvalidConfig, err)
	}
	return w, nil
}
