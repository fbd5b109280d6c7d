package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hassanmzia/ai-healthcare-embodiment/internal/cli"
	"github.com/hassanmzia/ai-healthcare-embodiment/internal/common"
	"github.com/hassanmzia/ai-healthcare-embodiment/internal/config"
	"github.com/hassanmzia/ai-healthcare-embodiment/internal/model"
)

func whatifCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whatif <run-id>",
		Short: "Replay a completed run under an alternate policy",
		Long: `Re-decide every assessment of a completed run under alternate thresholds
and quota, reusing the stored risk scores and safety flags. Start from the
run's own policy and override with flags, or load a YAML policy with --file.
Nothing is persisted.`,
		Args: cobra.ExactArgs(1),
		RunE: runWhatIf,
	}

	cmd.Flags().String("file", "", "YAML policy document to simulate")
	cmd.Flags().Float64("review", 0, "Review threshold override")
	cmd.Flags().Float64("draft", 0, "Draft threshold override")
	cmd.Flags().Float64("auto", 0, "Auto-order threshold override")
	cmd.Flags().Int("max-auto", 0, "Auto-order quota override")
	cmd.Flags().Bool("changes", false, "List every decision that changed")
	cmd.Flags().Bool("json", false, "Print the result as JSON")

	return cmd
}

func runWhatIf(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")
	showChanges, _ := cmd.Flags().GetBool("changes")
	asJSON, _ := cmd.Flags().GetBool("json")
	ctx := cmd.Context()
	runID := args[0]

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	var policy model.Policy
	if file != "" {
		loaded, err := config.LoadPolicyFile(file)
		if err != nil {
			return common.NewUserError("Invalid policy document", err)
		}
		policy = loaded.Policy
	} else {
		run, err := store.GetRun(ctx, runID)
		if err != nil {
			return runLookupError(runID, err)
		}
		policy = run.Policy
		policy.Name = fmt.Sprintf("what-if of %s", run.Policy.Name)
	}

	flags := cmd.Flags()
	if flags.Changed("review") {
		policy.ReviewThreshold, _ = flags.GetFloat64("review")
	}
	if flags.Changed("draft") {
		policy.DraftThreshold, _ = flags.GetFloat64("draft")
	}
	if flags.Changed("auto") {
		policy.AutoThreshold, _ = flags.GetFloat64("auto")
	}
	if flags.Changed("max-auto") {
		policy.MaxAutoActionsPerDay, _ = flags.GetInt("max-auto")
	}
	if err := policy.Validate(); err != nil {
		return common.NewUserError("Invalid policy", err)
	}

	eng, _, err := initEngine(store)
	if err != nil {
		return err
	}

	result, err := eng.WhatIf(ctx, runID, policy)
	if err != nil {
		return runLookupError(runID, err)
	}

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return cli.RenderSimulation(cmd.OutOrStdout(), result, showChanges)
}
