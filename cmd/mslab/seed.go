package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hassanmzia/ai-healthcare-embodiment/internal/cli"
	"github.com/hassanmzia/ai-healthcare-embodiment/internal/seed"
)

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Generate a synthetic patient population and the default policy",
		Long: `Generate a reproducible synthetic population and, when no policy exists,
the default active policy (review 0.65, draft 0.80, auto 0.90, 20 auto
actions per day). Existing patients and policies are never modified.`,
		RunE: runSeed,
	}

	cmd.Flags().Int("patients", seed.DefaultPatients, "Number of synthetic patients to generate")
	cmd.Flags().Int64("seed", seed.DefaultSeed, "Random seed")

	return cmd
}

func runSeed(cmd *cobra.Command, _ []string) error {
	patients, _ := cmd.Flags().GetInt("patients")
	rngSeed, _ := cmd.Flags().GetInt64("seed")
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	bar := cli.NewProgressBar(cmd.ErrOrStderr(), patients, "Storing patients...")
	stored := 0
	res, err := seed.Seed(ctx, store, seed.Options{
		Patients: patients,
		Seed:     rngSeed,
		OnBatch: func(n int) {
			_ = bar.Add(n - stored)
			stored = n
		},
	})
	if err != nil {
		return err
	}

	if res.PatientsCreated > 0 {
		fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Created %d patients (seed %d)", res.PatientsCreated, rngSeed)))
	} else {
		fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("Skipped patient generation: %d patients already exist", res.ExistingCount)))
	}
	if res.PolicyCreated {
		fmt.Fprintln(out, cli.FormatSuccess("Created default policy (active): "+res.Policy.String()))
	} else {
		fmt.Fprintln(out, cli.FormatWarning("Skipped policy creation: policies already exist"))
	}
	return nil
}
