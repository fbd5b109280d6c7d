package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hassanmzia/ai-healthcare-embodiment/internal/cli"
	"github.com/hassanmzia/ai-healthcare-embodiment/internal/common"
)

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect screening runs",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			runs, err := store.ListRuns(ctx, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("No runs yet. Run 'mslab screen'."))
				return nil
			}
			return cli.RenderRunList(cmd.OutOrStdout(), runs)
		},
	}
	list.Flags().Int("limit", 20, "Maximum runs to show (0 for all)")

	show := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run and optionally its assessments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			withAssessments, _ := cmd.Flags().GetBool("assessments")
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			run, err := store.GetRun(ctx, args[0])
			if errors.Is(err, common.ErrNotFound) {
				return common.NewUserError(fmt.Sprintf("No run %q", args[0]), err)
			}
			if err != nil {
				return err
			}
			if err := cli.RenderRun(cmd.OutOrStdout(), run); err != nil {
				return err
			}
			if !withAssessments {
				return nil
			}

			assessments, err := store.GetAssessmentsByRun(ctx, run.ID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return cli.RenderAssessments(cmd.OutOrStdout(), assessments)
		},
	}
	show.Flags().Bool("assessments", false, "List every assessment in the run")

	cmd.AddCommand(list, show)
	return cmd
}
