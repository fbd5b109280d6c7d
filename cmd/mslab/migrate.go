package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hassanmzia/ai-healthcare-embodiment/internal/cli"
	"github.com/hassanmzia/ai-healthcare-embodiment/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

Every other command migrates automatically; use --status to inspect the
schema version without changing anything.`,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "Show current migration status without applying changes")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	status, _ := cmd.Flags().GetBool("status")
	dbPath := databasePath()
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	slog.Debug("Opening database", "database", dbPath, "status_only", status)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	current, err := store.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	if status {
		fmt.Fprintln(out, cli.FormatTitle("Database Migration Status"))
		fmt.Fprintf(out, "Database:        %s\n", dbPath)
		fmt.Fprintf(out, "Current version: %d\n", current)
		fmt.Fprintf(out, "Latest version:  %d\n", storage.ExpectedSchemaVersion)
		if current < storage.ExpectedSchemaVersion {
			fmt.Fprintln(out, cli.FormatWarning("Migrations pending; run 'mslab migrate'"))
		}
		return nil
	}

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("%s Database at schema version %d (%s)",
		cli.FolderIcon, storage.ExpectedSchemaVersion, dbPath)))
	return nil
}
