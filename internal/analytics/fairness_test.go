package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hassanmzia/ai-healthcare-embodiment/internal/model"
)

func TestSubgroupAnalysis_BySex(t *testing.T) {
	assessments := []model.RiskAssessment{
		assessment("A", 0.95, model.ActionAutoOrder, adult(model.SexFemale, 40)),
		assessment("B", 0.85, model.ActionDraftOrder, adult(model.SexFemale, 45)),
		assessment("C", 0.70, model.ActionRecommendReview, adult(model.SexFemale, 52), model.FlagPHIDetected),
		assessment("D", 0.10, model.ActionNoAction, adult(model.SexFemale, 61)),
		assessment("E", 0.50, model.ActionNoAction, adult(model.SexMale, 33)),
	}
	assessments[4].Subject.HasImaging = false
	truth := map[string]bool{"A": true, "B": true, "C": false, "D": false, "E": true}

	groups, err := SubgroupAnalysis(assessments, truth, DimensionSex)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	f := groups[0]
	assert.Equal(t, "F", f.Group)
	assert.Equal(t, 4, f.N)
	assert.InDelta(t, 0.75, f.FlaggedRate, 1e-9)
	assert.InDelta(t, 0.65, f.MeanRisk, 1e-9)
	assert.InDelta(t, 0.5, f.DraftOrAutoRate, 1e-9)
	assert.InDelta(t, 0.25, f.AutoRate, 1e-9)
	assert.InDelta(t, 0.25, f.SafetyFlagRate, 1e-9)
	assert.InDelta(t, 0.5, f.PositiveRate, 1e-9)
	assert.InDelta(t, 1.0, f.ImagingRate, 1e-9)

	m := groups[1]
	assert.Equal(t, "M", m.Group)
	assert.Equal(t, 1, m.N)
	assert.Zero(t, m.FlaggedRate)
	assert.InDelta(t, 1.0, m.PositiveRate, 1e-9)
	assert.Zero(t, m.ImagingRate)
}

func TestSubgroupAnalysis_AgeBandAndLookalike(t *testing.T) {
	a := assessment("A", 0.9, model.ActionDraftOrder, adult(model.SexFemale, 25))
	b := assessment("B", 0.9, model.ActionDraftOrder, adult(model.SexFemale, 72))
	b.Subject.Lookalike = model.LookalikeMigraine
	truth := map[string]bool{"A": true, "B": false}

	bands, err := SubgroupAnalysis([]model.RiskAssessment{a, b}, truth, DimensionAgeBand)
	require.NoError(t, err)
	require.Len(t, bands, 2)
	assert.Equal(t, "70+", bands[0].Group)
	assert.Equal(t, "<30", bands[1].Group)

	dx, err := SubgroupAnalysis([]model.RiskAssessment{a, b}, truth, DimensionLookalike)
	require.NoError(t, err)
	assert.Equal(t, "migraine", dx[0].Group)
	assert.Equal(t, "none", dx[1].Group)
}

func TestSubgroupAnalysis_InvalidDimension(t *testing.T) {
	_, err := SubgroupAnalysis(nil, nil, Dimension("zip_code"))
	assert.ErrorIs(t, err, ErrInvalidDimension)
}

func TestParseDimension(t *testing.T) {
	d, err := ParseDimension("lookalike_dx")
	require.NoError(t, err)
	assert.Equal(t, DimensionLookalike, d)

	_, err = ParseDimension("race")
	assert.ErrorIs(t, err, ErrInvalidDimension)
}
