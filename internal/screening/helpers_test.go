package screening

import (
	"fmt"

	"github.com/hassanmzia/ai-healthcare-embodiment/internal/model"
)

func ptrFloat(v float64) *float64 { return &v }

func ptrBool(v bool) *bool { return &v }

// candidate returns a patient that passes every gate with three symptoms
// (optic neuritis, paresthesia, weakness), lesions and one supportive term.
func candidate(id string) model.PatientRecord {
	return model.PatientRecord{
		ID:             id,
		Age:            40,
		Sex:            model.SexFemale,
		VisitCount:     8,
		Lookalike:      model.LookalikeNone,
		HasImaging:     true,
		LesionsPresent: true,
		NoteHasMSTerms: true,
		Note:           "Patient seen for follow-up; neurology referral placed.",
		Symptoms: model.Symptoms{
			OpticNeuritis: true,
			Paresthesia:   true,
			Weakness:      true,
		},
	}
}

// highRisk returns a candidate whose score clamps to 1.0 with no safety flags.
func highRisk(id string) model.PatientRecord {
	p := candidate(id)
	p.Symptoms = model.Symptoms{
		OpticNeuritis:   true,
		Paresthesia:     true,
		Weakness:        true,
		GaitInstability: true,
		Vertigo:         true,
		Fatigue:         true,
		BladderIssues:   true,
		CognitiveFog:    true,
	}
	return p
}

func patientID(i int) string {
	return fmt.Sprintf("P%05d", i)
}
