// Package testutil provides shared test helpers: an isolated in-memory
// database and a fluent builder for patient records.
package testutil

import (
	"context"
	"testing"

	"github.com/hassanmzia/ai-healthcare-embodiment/internal/model"
	"github.com/hassanmzia/ai-healthcare-embodiment/internal/service"
	"github.com/hassanmzia/ai-healthcare-embodiment/internal/storage"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage service.Storage
	t       *testing.T
}

// SetupTestDB creates a new migrated in-memory database that is closed when
// the test ends.
//
// Example:
//
//	db := testutil.SetupTestDB(t)
//	db.SeedPatients(testutil.NewPatient("P1").Candidate().Build())
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	return SetupTestDBWithOptions(t, TestDBOptions{})
}

// TestDBOptions provides configuration options for test database setup.
type TestDBOptions struct {
	CustomSetup    func(context.Context, service.Storage) error
	Patients       []model.PatientRecord
	Policy         *model.Policy
	SkipMigrations bool
}

// SetupTestDBWithOptions creates a test database with custom options.
func SetupTestDBWithOptions(t *testing.T, opts TestDBOptions) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	ctx := context.Background()

	if !opts.SkipMigrations {
		if err := store.Migrate(ctx); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
	}

	db := &TestDB{Storage: store, t: t}

	if len(opts.Patients) > 0 {
		db.SeedPatients(opts.Patients...)
	}
	if opts.Policy != nil {
		db.SeedPolicy(*opts.Policy)
	}

	if opts.CustomSetup != nil {
		if err := opts.CustomSetup(ctx, store); err != nil {
			t.Fatalf("custom setup failed: %v", err)
		}
	}

	return db
}

// SeedPatients stores patients or fails the test.
func (db *TestDB) SeedPatients(patients ...model.PatientRecord) {
	db.t.Helper()
	if err := db.Storage.SavePatients(context.Background(), patients); err != nil {
		db.t.Fatalf("failed to seed patients: %v", err)
	}
}

// SeedPolicy stores p or fails the test.
func (db *TestDB) SeedPolicy(p model.Policy) {
	db.t.Helper()
	if err := db.Storage.CreatePolicy(context.Background(), &p); err != nil {
		db.t.Fatalf("failed to seed policy %q: %v", p.Name, err)
	}
}
