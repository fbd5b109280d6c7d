package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hassanmzia/ai-healthcare-embodiment/internal/cli"
	"github.com/hassanmzia/ai-healthcare-embodiment/internal/common"
	"github.com/hassanmzia/ai-healthcare-embodiment/internal/config"
)

var (
	cfgFile string
	version = "dev"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mslab",
		Short: "🧠 MS risk screening decision pipeline",
		Long: `mslab screens a patient population for multiple sclerosis risk.

Each candidate is scored, checked by the safety layer and mapped to a
policy-governed action: no action, neurology review, a drafted MRI order or,
under a daily quota, an automatic MRI order. Completed runs can be scored
against ground truth and replayed under alternate policies.`,
		PersistentPreRunE: initConfig,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/mslab/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")
	rootCmd.PersistentFlags().String("db", "", "database path (default: $HOME/.local/share/mslab/mslab.db)")

	// Bind flags to viper
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("database.path", rootCmd.PersistentFlags().Lookup("db"))

	viper.SetDefault("screening.workers", 4)
	viper.SetDefault("screening.patient_limit", 0)
	viper.SetDefault("metrics.histogram_bins", 10)

	// Add commands
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(policyCmd())
	rootCmd.AddCommand(screenCmd())
	rootCmd.AddCommand(runsCmd())
	rootCmd.AddCommand(metricsCmd())
	rootCmd.AddCommand(whatifCmd())
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatError(common.UserMessage(err)))
		var ue *common.UserError
		if errors.As(err, &ue) && ue.Err != nil {
			fmt.Fprintln(os.Stderr, cli.SubtleStyle.Render("  "+ue.Err.Error()))
		}
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	// Set up config file
	if cfgFile != "" {
		viper.SetConfigFile(config.ExpandPath(cfgFile))
	} else {
		viper.AddConfigPath(config.DefaultConfigDir())
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// Environment variables, e.g. MSLAB_DATABASE_PATH
	viper.SetEnvPrefix("MSLAB")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	// Set up logging
	if err := setupLogging(); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	return nil
}

func setupLogging() error {
	level, err := common.ParseLevel(viper.GetString("logging.level"))
	if err != nil {
		return err
	}

	format := viper.GetString("logging.format")
	switch format {
	case "console", "json", "":
	default:
		return fmt.Errorf("%w: invalid log format: %s", common.ErrInvalidConfig, format)
	}

	common.SetupLogger(level, format)
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mslab %s\n", version)
		},
	}
}
