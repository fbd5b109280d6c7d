package screening

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hassanmzia/ai-healthcare-embodiment/internal/model"
)

func testPolicy(t *testing.T, quota int) model.Policy {
	t.Helper()
	p, err := model.NewPolicy("test", 0.65, 0.80, 0.90, quota)
	require.NoError(t, err)
	return p
}

func TestCoordinator_BaseAction(t *testing.T) {
	coord := NewCoordinator(testPolicy(t, 20))

	tests := []struct {
		score float64
		want  model.Action
	}{
		{0.0, model.ActionNoAction},
		{0.6499, model.ActionNoAction},
		{0.65, model.ActionRecommendReview},
		{0.7999, model.ActionRecommendReview},
		{0.80, model.ActionDraftOrder},
		{0.8999, model.ActionDraftOrder},
		{0.90, model.ActionAutoOrder},
		{1.0, model.ActionAutoOrder},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, coord.BaseAction(tt.score), "score %v", tt.score)
	}
}

func TestCoordinator_BaseActionMonotonic(t *testing.T) {
	coord := NewCoordinator(testPolicy(t, 20))

	prev := model.AutonomyNone
	for i := 0; i <= 1000; i++ {
		level := coord.BaseAction(float64(i) / 1000).Autonomy()
		require.GreaterOrEqual(t, level, prev)
		prev = level
	}
}

func TestCoordinator_CollapsedThresholds(t *testing.T) {
	p, err := model.NewPolicy("collapsed", 0.7, 0.7, 0.7, 5)
	require.NoError(t, err)
	coord := NewCoordinator(p)

	assert.Equal(t, model.ActionNoAction, coord.BaseAction(0.69))
	assert.Equal(t, model.ActionAutoOrder, coord.BaseAction(0.7))
}

func TestCoordinator_SafetyOverride(t *testing.T) {
	coord := NewCoordinator(testPolicy(t, 20))
	flags := []model.SafetyFlag{{Code: model.FlagMinorPatient, Severity: model.SeverityWarning}}

	t.Run("draft is downgraded", func(t *testing.T) {
		d := coord.Decide(0.85, flags, NewQuotaLimiter(20))
		assert.Equal(t, model.ActionDraftOrder, d.BaseAction)
		assert.Equal(t, model.ActionRecommendReview, d.Action)
		assert.Equal(t, model.AutonomyRecommendOnly, d.Autonomy)
		assert.True(t, d.SafetyOverride)
		require.Len(t, d.Rationale, 2)
		assert.Contains(t, d.Rationale[1], model.FlagMinorPatient)
	})

	t.Run("auto is downgraded without consuming quota", func(t *testing.T) {
		limiter := NewQuotaLimiter(1)
		d := coord.Decide(0.95, flags, limiter)
		assert.Equal(t, model.ActionRecommendReview, d.Action)
		assert.False(t, d.QuotaDowngrade)
		assert.Equal(t, 0, limiter.Used())
	})

	t.Run("review is left alone", func(t *testing.T) {
		d := coord.Decide(0.70, flags, nil)
		assert.Equal(t, model.ActionRecommendReview, d.Action)
		assert.False(t, d.SafetyOverride)
		assert.Len(t, d.Rationale, 1)
	})

	t.Run("no action is left alone", func(t *testing.T) {
		d := coord.Decide(0.10, flags, nil)
		assert.Equal(t, model.ActionNoAction, d.Action)
		assert.False(t, d.SafetyOverride)
	})
}

func TestCoordinator_QuotaAdmission(t *testing.T) {
	coord := NewCoordinator(testPolicy(t, 2))
	limiter := NewQuotaLimiter(2)

	var actions []model.Action
	for range 4 {
		actions = append(actions, coord.Decide(1.0, nil, limiter).Action)
	}

	assert.Equal(t, []model.Action{
		model.ActionAutoOrder,
		model.ActionAutoOrder,
		model.ActionDraftOrder,
		model.ActionDraftOrder,
	}, actions)

	d := coord.Decide(1.0, nil, limiter)
	assert.True(t, d.QuotaDowngrade)
	assert.Equal(t, model.AutonomyDraftOrder, d.Autonomy)
	require.Len(t, d.Rationale, 2)
	assert.Contains(t, d.Rationale[1], "cap (2) reached")
}

func TestCoordinator_ZeroQuotaNeverAutoOrders(t *testing.T) {
	coord := NewCoordinator(testPolicy(t, 0))
	d := coord.Decide(1.0, nil, NewQuotaLimiter(0))
	assert.Equal(t, model.ActionDraftOrder, d.Action)
}

func TestCoordinator_NilLimiterDowngrades(t *testing.T) {
	coord := NewCoordinator(testPolicy(t, 20))
	d := coord.Decide(0.99, nil, nil)
	assert.Equal(t, model.ActionDraftOrder, d.Action)
	assert.True(t, d.QuotaDowngrade)
}

func TestCoordinator_FlaggedNeverAboveRecommend(t *testing.T) {
	coord := NewCoordinator(testPolicy(t, 100))
	limiter := NewQuotaLimiter(100)
	flags := []model.SafetyFlag{{Code: model.FlagPHIDetected, Severity: model.SeverityCritical}}

	for i := 0; i <= 100; i++ {
		d := coord.Decide(float64(i)/100, flags, limiter)
		require.LessOrEqual(t, d.Autonomy, model.AutonomyRecommendOnly)
	}
}
