package seed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hassanmzia/ai-healthcare-embodiment/internal/model"
	"github.com/hassanmzia/ai-healthcare-embodiment/internal/service"
)

// Defaults for Options.
const (
	DefaultPatients = 2500
	DefaultSeed     = 42
	batchSize       = 500
)

// Options controls seeding.
type Options struct {
	// OnBatch is called after each stored batch with the running total.
	OnBatch  func(stored int)
	Patients int
	Seed     int64
}

// Result reports what Seed created.
type Result struct {
	Policy          *model.Policy
	PatientsCreated int
	ExistingCount   int
	PolicyCreated   bool
}

// Seed stores a synthetic population when the patient table is empty and
// creates the default policy, active, when no policy exists. Existing data is
// never modified.
func Seed(ctx context.Context, store service.Storage, opts Options) (*Result, error) {
	if opts.Patients <= 0 {
		opts.Patients = DefaultPatients
	}
	res := &Result{}

	existing, err := store.CountPatients(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count patients: %w", err)
	}
	res.ExistingCount = existing

	if existing > 0 {
		slog.Warn("Skipping patient generation", "existing", existing)
	} else {
		gen := NewGenerator(opts.Seed)
		patients := gen.Population(opts.Patients)
		for start := 0; start < len(patients); start += batchSize {
			end := min(start+batchSize, len(patients))
			if err := store.SavePatients(ctx, patients[start:end]); err != nil {
				return nil, fmt.Errorf("failed to store patients %d-%d: %w", start, end, err)
			}
			if opts.OnBatch != nil {
				opts.OnBatch(end)
			}
		}
		res.PatientsCreated = len(patients)
		slog.Info("Generated synthetic patients", "count", len(patients), "seed", opts.Seed)
	}

	policies, err := store.ListPolicies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}
	if len(policies) > 0 {
		slog.Warn("Skipping policy creation", "existing", len(policies))
		return res, nil
	}

	p := model.DefaultPolicy()
	p.CreatedBy = "seed"
	p.Active = true
	if err := store.CreatePolicy(ctx, &p); err != nil {
		return nil, fmt.Errorf("failed to create default policy: %w", err)
	}
	res.Policy = &p
	res.PolicyCreated = true
	slog.Info("Created default policy", "policy", p.String())

	return res, nil
}
