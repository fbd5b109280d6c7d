package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hassanmzia/ai-healthcare-embodiment/internal/cli"
	"github.com/hassanmzia/ai-healthcare-embodiment/internal/common"
	"github.com/hassanmzia/ai-healthcare-embodiment/internal/config"
	"github.com/hassanmzia/ai-healthcare-embodiment/internal/engine"
	"github.com/hassanmzia/ai-healthcare-embodiment/internal/model"
)

func screenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "screen",
		Short: "Run the screening pipeline over the stored population",
		Long: `Screen every stored patient under the active policy (or --policy).

Candidates are scored and checked by the safety layer in parallel; automatic
orders are then admitted in patient-ID order until the policy's quota is
spent, so repeated runs over the same data give the same decisions.`,
		RunE: runScreen,
	}

	cmd.Flags().String("policy", "", "Policy ID or name (default: the active policy)")
	cmd.Flags().Int("workers", 4, "Parallel workers")
	cmd.Flags().Int("limit", 0, "Screen at most this many patients (0 for all)")
	cmd.Flags().Bool("show-assessments", false, "List every flagged assessment")
	cmd.Flags().Bool("no-progress", false, "Disable the progress bar")

	_ = viper.BindPFlag("screening.workers", cmd.Flags().Lookup("workers"))
	_ = viper.BindPFlag("screening.patient_limit", cmd.Flags().Lookup("limit"))

	return cmd
}

func runScreen(cmd *cobra.Command, _ []string) error {
	policyName, _ := cmd.Flags().GetString("policy")
	showAssessments, _ := cmd.Flags().GetBool("show-assessments")
	noProgress, _ := cmd.Flags().GetBool("no-progress")
	out := cmd.OutOrStdout()

	interrupts := cli.NewInterruptHandler(cmd.ErrOrStderr(), "Screening run")
	ctx := interrupts.HandleInterrupts(cmd.Context())
	defer interrupts.Stop()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	eng, recorder, err := initEngine(store)
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar
	run, runErr := eng.RunScreening(ctx, engine.RunOptions{
		Policy: policyName,
		OnLoaded: func(total int) {
			if !noProgress {
				bar = cli.NewProgressBar(cmd.ErrOrStderr(), total, "Screening patients...")
			}
		},
		OnEvaluated: func(string, error) {
			if bar != nil {
				_ = bar.Add(1)
			}
		},
	})
	if bar != nil {
		_ = bar.Finish()
	}

	if recorder != nil && run != nil {
		path := config.ExpandPath(viper.GetString("telemetry.textfile"))
		if err := recorder.WriteTextfile(path); err != nil {
			slog.Warn("Failed to write telemetry", "path", path, "error", err)
		}
	}

	switch {
	case errors.Is(runErr, common.ErrNoActivePolicy):
		return common.NewUserError("No active policy. Run 'mslab seed' or 'mslab policy activate <name>'", runErr)
	case errors.Is(runErr, common.ErrNoPatients):
		return common.NewUserError("No patients to screen. Run 'mslab seed' first", runErr)
	case run == nil:
		return runErr
	}

	if err := cli.RenderRun(out, run); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("screening run %s failed: %w", run.ID, runErr)
	}

	if showAssessments {
		var flagged []model.RiskAssessment
		for _, a := range run.Assessments {
			if a.Action.Flagged() {
				flagged = append(flagged, a)
			}
		}
		fmt.Fprintln(out)
		if err := cli.RenderAssessments(out, flagged); err != nil {
			return err
		}
	}

	fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Next: mslab metrics %s  |  mslab whatif %s --auto 0.95", run.ID, run.ID)))
	return nil
}
