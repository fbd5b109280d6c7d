package main

import (
	"errors"
	"fmt"
	"os/user"

	"github.com/spf13/cobra"

	"github.com/hassanmzia/ai-healthcare-embodiment/internal/cli"
	"github.com/hassanmzia/ai-healthcare-embodiment/internal/common"
	"github.com/hassanmzia/ai-healthcare-embodiment/internal/config"
	"github.com/hassanmzia/ai-healthcare-embodiment/internal/model"
)

func policyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "policy",
		Aliases: []string{"policies"},
		Short:   "Manage screening policies",
		Long: `Create, list and activate screening policies. Exactly one policy is active
at a time; a screening run takes a snapshot of it when it starts.`,
	}

	cmd.AddCommand(policyCreateCmd())
	cmd.AddCommand(policyListCmd())
	cmd.AddCommand(policyActivateCmd())
	cmd.AddCommand(policyApplyCmd())

	return cmd
}

func policyCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a policy from flags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			review, _ := cmd.Flags().GetFloat64("review")
			draft, _ := cmd.Flags().GetFloat64("draft")
			auto, _ := cmd.Flags().GetFloat64("auto")
			maxAuto, _ := cmd.Flags().GetInt("max-auto")
			activate, _ := cmd.Flags().GetBool("activate")

			p, err := model.NewPolicy(args[0], review, draft, auto, maxAuto)
			if err != nil {
				return common.NewUserError("Invalid policy", err)
			}
			p.CreatedBy = currentUser()
			p.Active = activate

			return storePolicy(cmd, &p)
		},
	}

	cmd.Flags().Float64("review", model.DefaultReviewThreshold, "Risk score at or above which neurology review is recommended")
	cmd.Flags().Float64("draft", model.DefaultDraftThreshold, "Risk score at or above which an MRI order is drafted")
	cmd.Flags().Float64("auto", model.DefaultAutoThreshold, "Risk score at or above which an MRI order is placed automatically")
	cmd.Flags().Int("max-auto", model.DefaultMaxAutoActionsPerDay, "Automatic orders allowed per run")
	cmd.Flags().Bool("activate", false, "Make this the active policy")

	return cmd
}

func policyApplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply <file.yaml>",
		Short: "Create a policy from a YAML document",
		Long: `Create a policy from a YAML document such as:

  name: conservative
  risk_review_threshold: 0.70
  draft_order_threshold: 0.85
  auto_order_threshold: 0.95
  max_auto_actions_per_day: 5
  activate: true

Omitted thresholds take the default policy's values.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.LoadPolicyFile(args[0])
			if err != nil {
				return common.NewUserError("Invalid policy document", err)
			}
			p := loaded.Policy
			if p.CreatedBy == "" {
				p.CreatedBy = currentUser()
			}
			p.Active = loaded.Activate

			fmt.Fprintln(cmd.OutOrStdout(), cli.SubtleStyle.Render("document "+loaded.Hash))
			return storePolicy(cmd, &p)
		},
	}
}

func storePolicy(cmd *cobra.Command, p *model.Policy) error {
	ctx := cmd.Context()
	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.CreatePolicy(ctx, p); err != nil {
		if errors.Is(err, common.ErrDuplicateEntry) {
			return common.NewUserError(fmt.Sprintf("A policy named %q already exists", p.Name), err)
		}
		return err
	}

	msg := "Created policy " + p.String()
	if p.Active {
		msg += " (active)"
	}
	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(msg))
	return nil
}

func policyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List policies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			policies, err := store.ListPolicies(ctx)
			if err != nil {
				return err
			}
			if len(policies) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("No policies yet. Run 'mslab seed' or 'mslab policy create'."))
				return nil
			}
			return cli.RenderPolicies(cmd.OutOrStdout(), policies)
		},
	}
}

func policyActivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "activate <id|name>",
		Short: "Make a policy the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			p, err := store.ActivatePolicy(ctx, args[0])
			if errors.Is(err, common.ErrNotFound) {
				return common.NewUserError(fmt.Sprintf("No policy %q", args[0]), err)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Activated "+p.String()))
			return nil
		},
	}
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "cli"
}
