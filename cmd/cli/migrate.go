package main

import (
	"errors"
	"fmt"
	"os/user"

	"github.com/spf13/cobra"

	"github.com/dvloznov/finansmanager/internal/config"
	"github.com/dvloznov/finansmanager/internal/infra/bigquery"
)

var migrateList bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply BigQuery schema migrations",
	Long: `Creates the dataset tables used by the bigquery store backend. Applied
versions are recorded in schema_migrations, so running it again only applies
new migrations. The sqlite backend creates its schema on open.`,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateList, "list", false, "list embedded migrations without applying them")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	project, dataset := cfg.Store.BigQueryProject, cfg.Store.BigQueryDataset

	if migrateList {
		migrations, err := bigquery.Migrations(project, dataset)
		if err != nil {
			return err
		}
		for _, m := range migrations {
			fmt.Fprintf(out, "%04d  %-32s  %s\n", m.Version, m.Name, m.Checksum[:12])
		}
		return nil
	}

	if cfg.Store.Backend != config.BackendBigQuery {
		return errors.New("migrate requires store.backend bigquery")
	}

	repo, err := bigquery.NewRepository(ctx, project, dataset, cfg.GetPollInterval(), log)
	if err != nil {
		return err
	}
	defer repo.Close()

	n, err := repo.Migrate(ctx, appliedBy())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Applied %d migration(s) to %s.%s\n", n, project, dataset)
	return nil
}

func appliedBy() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "finctl"
}
