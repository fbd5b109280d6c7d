package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicy_Validate(t *testing.T) {
	tests := []struct {
		name      string
		wantField string
		policy    Policy
		wantErr   bool
	}{
		{
			name:   "default policy",
			policy: DefaultPolicy(),
		},
		{
			name:   "collapsed thresholds are allowed",
			policy: Policy{Name: "flat", ReviewThreshold: 0.7, DraftThreshold: 0.7, AutoThreshold: 0.7},
		},
		{
			name:      "missing name",
			policy:    Policy{ReviewThreshold: 0.1, DraftThreshold: 0.2, AutoThreshold: 0.3},
			wantErr:   true,
			wantField: "name",
		},
		{
			name:      "draft below review",
			policy:    Policy{Name: "x", ReviewThreshold: 0.8, DraftThreshold: 0.7, AutoThreshold: 0.9},
			wantErr:   true,
			wantField: "draft_order_threshold",
		},
		{
			name:      "auto below draft",
			policy:    Policy{Name: "x", ReviewThreshold: 0.6, DraftThreshold: 0.9, AutoThreshold: 0.8},
			wantErr:   true,
			wantField: "auto_order_threshold",
		},
		{
			name:      "threshold above one",
			policy:    Policy{Name: "x", ReviewThreshold: 0.6, DraftThreshold: 0.9, AutoThreshold: 1.2},
			wantErr:   true,
			wantField: "auto_order_threshold",
		},
		{
			name:      "NaN threshold",
			policy:    Policy{Name: "x", ReviewThreshold: math.NaN(), DraftThreshold: 0.9, AutoThreshold: 1},
			wantErr:   true,
			wantField: "risk_review_threshold",
		},
		{
			name:      "negative quota",
			policy:    Policy{Name: "x", ReviewThreshold: 0.6, DraftThreshold: 0.8, AutoThreshold: 0.9, MaxAutoActionsPerDay: -1},
			wantErr:   true,
			wantField: "max_auto_actions_per_day",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidPolicy)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantField, ve.Field)
		})
	}
}

func TestNewPolicy(t *testing.T) {
	p, err := NewPolicy("conservative", 0.7, 0.85, 0.95, 5)
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.False(t, p.Active)

	_, err = NewPolicy("broken", 0.9, 0.5, 0.95, 5)
	assert.ErrorIs(t, err, ErrInvalidPolicy)
}
