package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hassanmzia/ai-healthcare-embodiment/internal/common"
	"github.com/hassanmzia/ai-healthcare-embodiment/internal/model"
)

// setupTestStorage returns a migrated in-memory database closed at test end.
func setupTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewSQLiteStorage(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		_, err := NewSQLiteStorage("  ")
		assert.ErrorIs(t, err, ErrEmptyString)
	})

	t.Run("file database creates its directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "dir", "mslab.db")
		store, err := NewSQLiteStorage(path)
		require.NoError(t, err)
		defer func() { _ = store.Close() }()

		assert.Equal(t, path, store.Path())
		require.NoError(t, store.Migrate(context.Background()))
		assert.FileExists(t, path)
	})
}

func TestMigrate(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	v, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, v)

	require.NoError(t, store.Migrate(ctx))
	v, err = store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, v)

	// idempotent
	require.NoError(t, store.Migrate(ctx))

	for _, table := range []string{"patients", "policies", "runs", "assessments", "run_failures"} {
		var name string
		err := store.db.QueryRowContext(ctx,
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		assert.NoError(t, err, table)
	}
}

func TestIsBusy(t *testing.T) {
	assert.True(t, isBusy(sqlite3.Error{Code: sqlite3.ErrBusy}))
	assert.True(t, isBusy(sqlite3.Error{Code: sqlite3.ErrLocked}))
	assert.False(t, isBusy(sqlite3.Error{Code: sqlite3.ErrConstraint}))
	assert.False(t, isBusy(common.ErrNotFound))
}

func TestValidation(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	//nolint:staticcheck // nil context is the case under test
	_, err := store.GetPatients(nil, 0)
	assert.ErrorIs(t, err, ErrNilContext)

	assert.ErrorIs(t, store.SavePatients(ctx, nil), ErrNilParameter)
	assert.ErrorIs(t, store.SavePatients(ctx, []model.PatientRecord{}), ErrEmptySlice)
	assert.ErrorIs(t, store.CreatePolicy(ctx, nil), ErrNilParameter)
	assert.ErrorIs(t, store.SaveRun(ctx, nil), ErrNilParameter)
	assert.ErrorIs(t, store.SaveRun(ctx, &model.RunResult{Status: model.RunPending}), ErrInvalidRun)
	assert.ErrorIs(t, store.SaveRun(ctx, &model.RunResult{ID: "r", Status: "DONE"}), ErrInvalidRun)

	_, err = store.GetRun(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyString)
}
