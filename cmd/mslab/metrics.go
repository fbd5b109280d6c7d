package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hassanmzia/ai-healthcare-embodiment/internal/analytics"
	"github.com/hassanmzia/ai-healthcare-embodiment/internal/cli"
	"github.com/hassanmzia/ai-healthcare-embodiment/internal/common"
)

func metricsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics <run-id>",
		Short: "Score a completed run against ground truth",
		Long: `Compute precision, recall, F1, the risk score distribution, calibration,
autonomy and safety-flag counts and per-subgroup rates for a completed run.
A run counts a patient as flagged when its action is anything but NO_ACTION.`,
		Args: cobra.ExactArgs(1),
		RunE: runMetrics,
	}

	cmd.Flags().StringSlice("dimension", nil, "Subgroup dimensions: sex, age_band, lookalike (default: all)")
	cmd.Flags().Int("bins", 10, "Histogram bins")
	cmd.Flags().Bool("json", false, "Print the report as JSON")

	_ = viper.BindPFlag("metrics.histogram_bins", cmd.Flags().Lookup("bins"))

	return cmd
}

func runMetrics(cmd *cobra.Command, args []string) error {
	dimNames, _ := cmd.Flags().GetStringSlice("dimension")
	asJSON, _ := cmd.Flags().GetBool("json")
	ctx := cmd.Context()

	opts := analytics.MetricsOptions{HistogramBins: viper.GetInt("metrics.histogram_bins")}
	for _, name := range dimNames {
		dim, err := analytics.ParseDimension(name)
		if err != nil {
			return common.NewUserError("Unknown dimension", err)
		}
		opts.Dimensions = append(opts.Dimensions, dim)
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	eng, _, err := initEngine(store)
	if err != nil {
		return err
	}

	report, err := eng.RunMetrics(ctx, args[0], opts)
	if err != nil {
		return runLookupError(args[0], err)
	}

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return cli.RenderMetrics(cmd.OutOrStdout(), report)
}

// runLookupError turns run lookup failures into user-facing messages.
func runLookupError(runID string, err error) error {
	switch {
	case errors.Is(err, common.ErrNotFound):
		return common.NewUserError(fmt.Sprintf("No run %q", runID), err)
	case errors.Is(err, common.ErrRunNotComplete):
		return common.NewUserError(fmt.Sprintf("Run %q has not completed", runID), err)
	case errors.Is(err, analytics.ErrMissingLabel):
		return common.NewUserError("Ground truth is missing for some assessed patients", err)
	default:
		return err
	}
}
