package seed

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hassanmzia/ai-healthcare-embodiment/internal/model"
	"github.com/hassanmzia/ai-healthcare-embodiment/internal/testutil"
)

func TestGenerator_Deterministic(t *testing.T) {
	a := NewGenerator(7).Population(50)
	b := NewGenerator(7).Population(50)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("same seed produced different populations (-a +b):\n%s", diff)
	}

	c := NewGenerator(8).Population(50)
	assert.NotEqual(t, a, c)
}

func TestGenerator_ValidRecords(t *testing.T) {
	patients := NewGenerator(DefaultSeed).Population(1000)

	atRisk, candidates := 0, 0
	seen := map[string]bool{}
	for i := range patients {
		p := &patients[i]
		require.NoError(t, p.Validate())
		require.False(t, seen[p.ID], "duplicate id %s", p.ID)
		seen[p.ID] = true

		assert.GreaterOrEqual(t, p.Age, 18)
		assert.LessOrEqual(t, p.Age, 85)
		assert.LessOrEqual(t, p.VisitCount, 15)
		assert.True(t, p.Lookalike.IsValid())
		assert.NotEmpty(t, p.Note)
		if p.LesionsPresent {
			assert.True(t, p.HasImaging, "lesions without imaging for %s", p.ID)
		}

		ext := p.Extended
		require.NotNil(t, ext.VitaminDNgML)
		assert.Equal(t, *ext.VitaminDNgML < 20, *ext.VitaminDDeficient)
		assert.InDelta(t, 4, *ext.SmartformNeuroScore, 4)
		assert.InDelta(t, 50, *ext.PathsFunctionScore, 50)

		if p.AtRisk {
			atRisk++
		}
		if p.LesionsPresent || p.NoteHasMSTerms || p.Symptoms.Count() >= 2 || p.VisitCount >= 6 {
			candidates++
		}
	}

	// The population is mostly healthy but not degenerate.
	assert.Greater(t, atRisk, 0)
	assert.Less(t, atRisk, 500)
	assert.Greater(t, candidates, 0)
	assert.Equal(t, "P00000", patients[0].ID)
	assert.Equal(t, "P00999", patients[999].ID)
}

func TestSeed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	var batches []int
	res, err := Seed(ctx, db.Storage, Options{
		Patients: 1200,
		Seed:     DefaultSeed,
		OnBatch:  func(stored int) { batches = append(batches, stored) },
	})
	require.NoError(t, err)

	assert.Equal(t, 1200, res.PatientsCreated)
	assert.True(t, res.PolicyCreated)
	assert.Equal(t, []int{500, 1000, 1200}, batches)

	count, err := db.Storage.CountPatients(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1200, count)

	active, err := db.Storage.GetActivePolicy(ctx)
	require.NoError(t, err)
	assert.InDelta(t, model.DefaultReviewThreshold, active.ReviewThreshold, 1e-9)
	assert.InDelta(t, model.DefaultDraftThreshold, active.DraftThreshold, 1e-9)
	assert.InDelta(t, model.DefaultAutoThreshold, active.AutoThreshold, 1e-9)
	assert.Equal(t, model.DefaultMaxAutoActionsPerDay, active.MaxAutoActionsPerDay)

	// A second seed leaves existing data alone.
	again, err := Seed(ctx, db.Storage, Options{Patients: 10})
	require.NoError(t, err)
	assert.Equal(t, 0, again.PatientsCreated)
	assert.Equal(t, 1200, again.ExistingCount)
	assert.False(t, again.PolicyCreated)

	policies, err := db.Storage.ListPolicies(ctx)
	require.NoError(t, err)
	assert.Len(t, policies, 1)
}
