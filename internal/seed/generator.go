// Package seed generates a reproducible synthetic patient population and the
// default screening policy.
package seed

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/hassanmzia/ai-healthcare-embodiment/internal/model"
)

var (
	lookalikeDist = []struct {
		dx   model.Lookalike
		prob float64
	}{
		{model.LookalikeMigraine, 0.18},
		{model.LookalikeB12Deficiency, 0.10},
		{model.LookalikeAnxiety, 0.12},
		{model.LookalikeFibromyalgia, 0.08},
		{model.LookalikeStrokeTIA, 0.05},
		{model.LookalikeNone, 0.47},
	}

	// lookalikeLatent lowers the latent risk of patients with a competing
	// diagnosis. It is separate from the scorer's penalty table.
	lookalikeLatent = map[model.Lookalike]float64{
		model.LookalikeMigraine:      0.6,
		model.LookalikeB12Deficiency: 0.7,
		model.LookalikeAnxiety:       0.4,
		model.LookalikeFibromyalgia:  0.5,
		model.LookalikeStrokeTIA:     0.8,
		model.LookalikeNone:          0,
	}

	// symptomSignal weights each symptom's contribution to the latent
	// evidence, in model.SymptomNames order.
	symptomSignal = []float64{1.6, 1.1, 1.0, 0.8, 0.7, 0.6, 0.4, 0.3}

	msPhrases = []string{
		"demyelinating",
		"periventricular lesions",
		"oligoclonal bands",
		"optic neuritis",
		"relapsing symptoms",
		"neurology referral",
		"MRI brain w/wo contrast",
	}
	otherPhrases = []string{
		"tension headache",
		"vitamin deficiency",
		"stress-related",
		"poor sleep",
		"peripheral neuropathy",
		"viral illness",
		"benign positional vertigo",
	}
)

// Generator produces synthetic patients. The same seed always yields the
// same population. A Generator is not safe for concurrent use.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator returns a generator seeded with seed.
func NewGenerator(seed int64) *Generator {
	// #nosec G404 -- synthetic test data, not security sensitive.
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Population generates n patients with IDs P00000 through P<n-1>.
func (g *Generator) Population(n int) []model.PatientRecord {
	out := make([]model.PatientRecord, n)
	for i := range out {
		out[i] = g.Patient(i)
	}
	return out
}

// Patient generates one patient with extended markers.
func (g *Generator) Patient(index int) model.PatientRecord {
	p := model.PatientRecord{
		ID:         fmt.Sprintf("P%05d", index),
		Age:        int(clip(g.rng.NormFloat64()*14+42, 18, 85)),
		Sex:        model.SexMale,
		VisitCount: int(clip(float64(g.poisson(3)), 0, 15)),
	}
	if g.rng.Float64() < 0.62 {
		p.Sex = model.SexFemale
	}
	p.Lookalike = g.lookalike()

	symptoms := g.symptoms(p.Sex, p.Age)
	p.Symptoms = symptoms.record()

	signal := 0.0
	for i, on := range symptoms {
		if on {
			signal += symptomSignal[i]
		}
	}
	penalty := lookalikeLatent[p.Lookalike]

	p.NoteHasMSTerms = g.rng.Float64() < sigmoid(signal-penalty-1.2)
	if p.NoteHasMSTerms {
		p.Note = g.note(msPhrases)
	} else {
		p.Note = g.note(otherPhrases)
	}

	imagingProb := 0.20 + 0.05*float64(p.VisitCount)/10
	if symptoms[0] {
		imagingProb += 0.10
	}
	p.HasImaging = g.rng.Float64() < imagingProb
	p.LesionsPresent = p.HasImaging && g.rng.Float64() < sigmoid(signal-1.0)

	latent := signal - penalty - 1.6
	if p.NoteHasMSTerms {
		latent += 0.9
	}
	if p.LesionsPresent {
		latent += 0.8
	}
	p.AtRisk = g.rng.Float64() < sigmoid(latent)

	p.Extended = g.markers(p, symptoms.count())
	return p
}

type symptomSet [8]bool

func (s symptomSet) record() model.Symptoms {
	return model.Symptoms{
		OpticNeuritis:   s[0],
		Paresthesia:     s[1],
		Weakness:        s[2],
		GaitInstability: s[3],
		Vertigo:         s[4],
		Fatigue:         s[5],
		BladderIssues:   s[6],
		CognitiveFog:    s[7],
	}
}

func (s symptomSet) count() int {
	n := 0
	for _, on := range s {
		if on {
			n++
		}
	}
	return n
}

func (g *Generator) symptoms(sex model.Sex, age int) symptomSet {
	base := 0.08
	if sex == model.SexFemale {
		base += 0.03
	}
	if age < 55 {
		base += 0.01
	}

	var s symptomSet
	for i := range s {
		s[i] = g.rng.Float64() < base
	}

	// Correlated patterns: optic neuritis with paresthesia, gait with weakness.
	if g.rng.Float64() < 0.05 {
		s[0] = true
		s[1] = g.rng.Float64() < 0.65
	}
	if g.rng.Float64() < 0.06 {
		s[3] = true
		s[2] = g.rng.Float64() < 0.5
	}
	return s
}

func (g *Generator) lookalike() model.Lookalike {
	r := g.rng.Float64()
	acc := 0.0
	for _, l := range lookalikeDist {
		acc += l.prob
		if r < acc {
			return l.dx
		}
	}
	return model.LookalikeNone
}

// note joins one to three distinct phrases.
func (g *Generator) note(phrases []string) string {
	k := 1 + g.rng.Intn(3)
	idx := g.rng.Perm(len(phrases))[:k]
	picked := make([]string, k)
	for i, j := range idx {
		picked[i] = phrases[j]
	}
	return strings.Join(picked, " ; ")
}

func (g *Generator) markers(p model.PatientRecord, symptomCount int) model.ExtendedMarkers {
	risk := 0.0
	if p.AtRisk {
		risk = 1
	}

	vitD := clip(g.rng.NormFloat64()*10+28, 5, 80)
	vitD = round(clip(vitD-6*risk+g.rng.NormFloat64()*3, 5, 80), 2)
	deficient := vitD < 20
	mono := g.rng.Float64() < 0.10+0.18*risk
	smartform := round(clip(float64(symptomCount)+g.rng.NormFloat64()*0.75, 0, 8), 4)
	paths := round(clip(100-6*risk-0.15*float64(p.Age)+g.rng.NormFloat64()*6, 0, 100), 4)

	return model.ExtendedMarkers{
		VitaminDNgML:        &vitD,
		VitaminDDeficient:   &deficient,
		MonoHistory:         &mono,
		SmartformNeuroScore: &smartform,
		PathsFunctionScore:  &paths,
	}
}

// poisson draws from a Poisson distribution (Knuth's method; fine for small
// lambda).
func (g *Generator) poisson(lambda float64) int {
	limit := math.Exp(-lambda)
	k := 0
	for p := g.rng.Float64(); p > limit; p *= g.rng.Float64() {
		k++
	}
	return k
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

func clip(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
