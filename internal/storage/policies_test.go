package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hassanmzia/ai-healthcare-embodiment/internal/common"
	"github.com/hassanmzia/ai-healthcare-embodiment/internal/model"
)

func mustPolicy(t *testing.T, name string, maxAuto int) *model.Policy {
	t.Helper()
	p, err := model.NewPolicy(name, 0.5, 0.7, 0.85, maxAuto)
	require.NoError(t, err)
	return &p
}

func TestCreateAndGetPolicy(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	p := mustPolicy(t, "baseline", 10)
	p.CreatedBy = "alice"
	require.NoError(t, store.CreatePolicy(ctx, p))

	byName, err := store.GetPolicy(ctx, "baseline")
	require.NoError(t, err)
	assert.Equal(t, p.ID, byName.ID)
	assert.Equal(t, "alice", byName.CreatedBy)
	assert.InDelta(t, 0.85, byName.AutoThreshold, 1e-9)
	assert.False(t, byName.Active)

	byID, err := store.GetPolicy(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "baseline", byID.Name)

	_, err = store.GetPolicy(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = store.GetActivePolicy(ctx)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCreatePolicy_Errors(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.CreatePolicy(ctx, mustPolicy(t, "baseline", 10)))

	err := store.CreatePolicy(ctx, mustPolicy(t, "baseline", 3))
	assert.ErrorIs(t, err, common.ErrDuplicateEntry)

	invalid := mustPolicy(t, "inverted", 1)
	invalid.DraftThreshold = 0.95
	err = store.CreatePolicy(ctx, invalid)
	assert.ErrorIs(t, err, model.ErrInvalidPolicy)

	noID := mustPolicy(t, "no-id", 1)
	noID.ID = ""
	assert.ErrorIs(t, store.CreatePolicy(ctx, noID), ErrEmptyString)
}

func TestActivatePolicy_SingleActive(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	first := mustPolicy(t, "first", 10)
	first.Active = true
	require.NoError(t, store.CreatePolicy(ctx, first))

	second := mustPolicy(t, "second", 2)
	second.Active = true
	require.NoError(t, store.CreatePolicy(ctx, second))

	active, err := store.GetActivePolicy(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", active.Name, "creating an active policy deactivates the rest")

	activated, err := store.ActivatePolicy(ctx, "first")
	require.NoError(t, err)
	assert.True(t, activated.Active)

	policies, err := store.ListPolicies(ctx)
	require.NoError(t, err)
	require.Len(t, policies, 2)
	activeCount := 0
	for _, p := range policies {
		if p.Active {
			activeCount++
			assert.Equal(t, "first", p.Name)
		}
	}
	assert.Equal(t, 1, activeCount)

	_, err = store.ActivatePolicy(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestActivatePolicy_RevalidatesStoredPolicy(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.CreatePolicy(ctx, mustPolicy(t, "tampered", 10)))
	_, err := store.db.ExecContext(ctx, `UPDATE policies SET draft_order_threshold = 0.99 WHERE name = 'tampered'`)
	require.NoError(t, err)

	_, err = store.ActivatePolicy(ctx, "tampered")
	assert.ErrorIs(t, err, model.ErrInvalidPolicy)

	_, err = store.GetActivePolicy(ctx)
	assert.ErrorIs(t, err, common.ErrNotFound)
}
