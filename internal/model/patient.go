// Package model defines the core domain models used throughout the application.
package model

import (
	"fmt"
	"math"
	"strings"
)

// Sex is the recorded sex of a patient.
type Sex string

// Sex constants.
const (
	SexFemale Sex = "F"
	SexMale   Sex = "M"
)

// Lookalike is a recorded differential diagnosis that commonly mimics MS.
type Lookalike string

// Lookalike diagnosis constants.
const (
	LookalikeNone          Lookalike = "none"
	LookalikeMigraine      Lookalike = "migraine"
	LookalikeB12Deficiency Lookalike = "b12_deficiency"
	LookalikeAnxiety       Lookalike = "anxiety"
	LookalikeFibromyalgia  Lookalike = "fibromyalgia"
	LookalikeStrokeTIA     Lookalike = "stroke_TIA"
)

// Lookalikes lists every known lookalike category in display order.
var Lookalikes = []Lookalike{
	LookalikeMigraine,
	LookalikeB12Deficiency,
	LookalikeAnxiety,
	LookalikeFibromyalgia,
	LookalikeStrokeTIA,
	LookalikeNone,
}

// IsValid reports whether l is a known lookalike category.
func (l Lookalike) IsValid() bool {
	for _, known := range Lookalikes {
		if l == known {
			return true
		}
	}
	return false
}

// Symptom names, in weight order.
const (
	SymptomOpticNeuritis   = "optic_neuritis"
	SymptomParesthesia     = "paresthesia"
	SymptomWeakness        = "weakness"
	SymptomGaitInstability = "gait_instability"
	SymptomVertigo         = "vertigo"
	SymptomFatigue         = "fatigue"
	SymptomBladderIssues   = "bladder_issues"
	SymptomCognitiveFog    = "cognitive_fog"
)

// SymptomNames lists the eight tracked symptoms in a fixed order.
var SymptomNames = []string{
	SymptomOpticNeuritis,
	SymptomParesthesia,
	SymptomWeakness,
	SymptomGaitInstability,
	SymptomVertigo,
	SymptomFatigue,
	SymptomBladderIssues,
	SymptomCognitiveFog,
}

// Symptoms holds the eight boolean symptom flags.
type Symptoms struct {
	OpticNeuritis   bool `json:"optic_neuritis"`
	Paresthesia     bool `json:"paresthesia"`
	Weakness        bool `json:"weakness"`
	GaitInstability bool `json:"gait_instability"`
	Vertigo         bool `json:"vertigo"`
	Fatigue         bool `json:"fatigue"`
	BladderIssues   bool `json:"bladder_issues"`
	CognitiveFog    bool `json:"cognitive_fog"`
}

// Has reports whether the named symptom is present. Unknown names are false.
func (s Symptoms) Has(name string) bool {
	switch name {
	case SymptomOpticNeuritis:
		return s.OpticNeuritis
	case SymptomParesthesia:
		return s.Paresthesia
	case SymptomWeakness:
		return s.Weakness
	case SymptomGaitInstability:
		return s.GaitInstability
	case SymptomVertigo:
		return s.Vertigo
	case SymptomFatigue:
		return s.Fatigue
	case SymptomBladderIssues:
		return s.BladderIssues
	case SymptomCognitiveFog:
		return s.CognitiveFog
	}
	return false
}

// Count returns the number of symptoms present.
func (s Symptoms) Count() int {
	n := 0
	for _, name := range SymptomNames {
		if s.Has(name) {
			n++
		}
	}
	return n
}

// ExtendedMarkers are optional precursor markers. Nil means not recorded.
type ExtendedMarkers struct {
	VitaminDNgML        *float64 `json:"vitamin_d_ngml,omitempty"`
	VitaminDDeficient   *bool    `json:"vitamin_d_deficient,omitempty"`
	MonoHistory         *bool    `json:"infectious_mono_history,omitempty"`
	SmartformNeuroScore *float64 `json:"smartform_neuro_symptom_score,omitempty"`
	PathsFunctionScore  *float64 `json:"paths_like_function_score,omitempty"`
}

// PatientRecord is an immutable patient snapshot supplied by the data source.
type PatientRecord struct {
	ID             string          `json:"patient_id"`
	Sex            Sex             `json:"sex"`
	Lookalike      Lookalike       `json:"lookalike_dx"`
	Note           string          `json:"note"`
	Extended       ExtendedMarkers `json:"extended"`
	Symptoms       Symptoms        `json:"symptoms"`
	Age            int             `json:"age"`
	VisitCount     int             `json:"visits_last_year"`
	HasImaging     bool            `json:"has_mri"`
	LesionsPresent bool            `json:"mri_lesions"`
	NoteHasMSTerms bool            `json:"note_has_ms_terms"`
	AtRisk         bool            `json:"true_at_risk"`
}

// Validate checks the fields the pipeline cannot work without.
func (p *PatientRecord) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return &DataError{Field: "patient_id", Reason: "missing identifier"}
	}
	if p.Age < 0 || p.Age > 130 {
		return &DataError{PatientID: p.ID, Field: "age", Reason: fmt.Sprintf("out of range: %d", p.Age)}
	}
	if p.VisitCount < 0 {
		return &DataError{PatientID: p.ID, Field: "visits_last_year", Reason: fmt.Sprintf("negative: %d", p.VisitCount)}
	}
	if p.Lookalike != "" && !p.Lookalike.IsValid() {
		return &DataError{PatientID: p.ID, Field: "lookalike_dx", Reason: fmt.Sprintf("unknown category %q", p.Lookalike)}
	}
	markers := []struct {
		field string
		value *float64
	}{
		{"vitamin_d_ngml", p.Extended.VitaminDNgML},
		{"smartform_neuro_symptom_score", p.Extended.SmartformNeuroScore},
		{"paths_like_function_score", p.Extended.PathsFunctionScore},
	}
	for _, m := range markers {
		if m.value != nil && (math.IsNaN(*m.value) || math.IsInf(*m.value, 0)) {
			return &DataError{PatientID: p.ID, Field: m.field, Reason: fmt.Sprintf("not a finite number: %v", *m.value)}
		}
	}
	if v := p.Extended.VitaminDNgML; v != nil && *v < 0 {
		return &DataError{PatientID: p.ID, Field: "vitamin_d_ngml", Reason: "negative"}
	}
	if v := p.Extended.PathsFunctionScore; v != nil && (*v < 0 || *v > 100) {
		return &DataError{PatientID: p.ID, Field: "paths_like_function_score", Reason: "must be within 0-100"}
	}
	return nil
}

// Profile returns the demographic snapshot used for subgroup analysis.
func (p *PatientRecord) Profile() SubjectProfile {
	lookalike := p.Lookalike
	if lookalike == "" {
		lookalike = LookalikeNone
	}
	return SubjectProfile{
		Age:          p.Age,
		Sex:          p.Sex,
		Lookalike:    lookalike,
		HasImaging:   p.HasImaging,
		SymptomCount: p.Symptoms.Count(),
	}
}

// SubjectProfile is the subset of patient attributes copied onto an assessment.
type SubjectProfile struct {
	Sex          Sex       `json:"sex"`
	Lookalike    Lookalike `json:"lookalike_dx"`
	Age          int       `json:"age"`
	SymptomCount int       `json:"symptom_count"`
	HasImaging   bool      `json:"has_mri"`
}

// AgeBand buckets an age into the bands used for fairness reporting.
func AgeBand(age int) string {
	switch {
	case age < 30:
		return "<30"
	case age < 40:
		return "30-39"
	case age < 50:
		return "40-49"
	case age < 60:
		return "50-59"
	case age < 70:
		return "60-69"
	default:
		return "70+"
	}
}
