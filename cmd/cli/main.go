package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dvloznov/finansmanager/internal/bootstrap"
	"github.com/dvloznov/finansmanager/internal/config"
	"github.com/dvloznov/finansmanager/internal/logger"
	"github.com/dvloznov/finansmanager/internal/store"
)

var (
	// Global flags
	cfgPath  string
	userFlag string

	cfg *config.Config
	log zerolog.Logger

	// openRepository is swapped out in tests.
	openRepository = bootstrap.OpenRepository
)

var rootCmd = &cobra.Command{
	Use:   "finctl",
	Short: "FinansManager command line client",
	Long: `finctl talks to the FinansManager proxy and the document store.

Run 'finctl setup' once to create your profile, then 'finctl chat' to log
transactions in plain language.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		if userFlag != "" {
			loaded.Client.UserID = userFlag
		}
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		l, err := logger.NewFromConfigWriter(cmd.ErrOrStderr(), loaded.Logging.Level, loaded.Logging.Format)
		if err != nil {
			return err
		}
		cfg, log = loaded, l
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "finansmanager.yaml", "path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&userFlag, "user", "", "user ID (defaults to client.user_id)")

	rootCmd.AddCommand(
		chatCmd,
		setupCmd,
		adviceCmd,
		watchCmd,
		transactionsCmd,
		exportCmd,
		syncNotionCmd,
		migrateCmd,
		importLegacyCmd,
	)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func userID() string {
	return cfg.Client.UserID
}

// withRepository opens the configured store for the duration of fn.
func withRepository(ctx context.Context, fn func(store.Repository) error) error {
	repo, err := openRepository(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := repo.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close store")
		}
	}()
	return fn(repo)
}
