package main

import (
	"github.com/spf13/cobra"

	"github.com/tendant/paper-ledger/pkg/paperledger/repo/postgres"
)

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			url, err := cfg.MigrationURL()
			if err != nil {
				return err
			}
			return postgres.RunMigrations(url, c.logger)
		},
	}
}
