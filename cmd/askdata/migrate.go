package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rhuss/askdata/pkg/storage/postgres"
)

func newMigrateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending audit store migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cfg.Audit.Type != "postgres" {
				return fmt.Errorf("audit.type is %q, migrations apply to the postgres audit store only", cfg.Audit.Type)
			}

			store, err := postgres.New(cmd.Context(), postgres.Config{
				DSN:      cfg.Audit.Postgres.DSN,
				MaxConns: cfg.Audit.Postgres.MaxConns,
			})
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.Migrate(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", n)
			return nil
		},
	}
}
