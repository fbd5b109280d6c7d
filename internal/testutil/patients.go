package testutil

import (
	"fmt"

	"github.com/hassanmzia/ai-healthcare-embodiment/internal/model"
)

// PatientBuilder constructs patient records fluently.
//
//	p := testutil.NewPatient("P1").Candidate().AtRisk().Build()
type PatientBuilder struct {
	p model.PatientRecord
}

// NewPatient starts from an adult with no symptoms who fails every gate.
func NewPatient(id string) *PatientBuilder {
	return &PatientBuilder{p: model.PatientRecord{
		ID:         id,
		Age:        40,
		Sex:        model.SexFemale,
		Lookalike:  model.LookalikeNone,
		VisitCount: 2,
	}}
}

// Candidate makes the patient pass every gate with optic neuritis,
// paresthesia and weakness, imaging lesions and a supportive note. The
// default weights score it 0.79.
func (b *PatientBuilder) Candidate() *PatientBuilder {
	b.p.VisitCount = 8
	b.p.HasImaging = true
	b.p.LesionsPresent = true
	b.p.NoteHasMSTerms = true
	b.p.Note = "Patient seen for follow-up; neurology referral placed."
	b.p.Symptoms = model.Symptoms{
		OpticNeuritis: true,
		Paresthesia:   true,
		Weakness:      true,
	}
	return b
}

// HighRisk makes the patient a candidate with all eight symptoms, which
// clamps the score to 1.0.
func (b *PatientBuilder) HighRisk() *PatientBuilder {
	b.Candidate()
	b.p.Symptoms = model.Symptoms{
		OpticNeuritis:   true,
		Paresthesia:     true,
		Weakness:        true,
		GaitInstability: true,
		Vertigo:         true,
		Fatigue:         true,
		BladderIssues:   true,
		CognitiveFog:    true,
	}
	return b
}

// AtRisk marks the ground-truth label.
func (b *PatientBuilder) AtRisk() *PatientBuilder {
	b.p.AtRisk = true
	return b
}

// Age sets the age.
func (b *PatientBuilder) Age(age int) *PatientBuilder {
	b.p.Age = age
	return b
}

// Sex sets the sex.
func (b *PatientBuilder) Sex(s model.Sex) *PatientBuilder {
	b.p.Sex = s
	return b
}

// Lookalike sets the recorded lookalike diagnosis.
func (b *PatientBuilder) Lookalike(l model.Lookalike) *PatientBuilder {
	b.p.Lookalike = l
	return b
}

// Note replaces the clinical note.
func (b *PatientBuilder) Note(text string) *PatientBuilder {
	b.p.Note = text
	return b
}

// Build returns the record.
func (b *PatientBuilder) Build() model.PatientRecord {
	return b.p
}

// Population returns n patients with IDs P00001.. built by fn.
func Population(n int, fn func(i int, b *PatientBuilder) *PatientBuilder) []model.PatientRecord {
	out := make([]model.PatientRecord, n)
	for i := range out {
		b := NewPatient(fmt.Sprintf("P%05d", i+1))
		if fn != nil {
			b = fn(i, b)
		}
		out[i] = b.Build()
	}
	return out
}
