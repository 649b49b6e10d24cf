package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQLite schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := a.open(ctx)
			if err != nil {
				return err
			}
			store := c.Storage.SQLite
			if store == nil {
				return errors.New("migrate requires the sqlite storage backend")
			}

			if err := store.Migrate(ctx); err != nil {
				return err
			}
			applied, err := store.AppliedMigrations(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.jsonOut {
				return printJSON(out, applied)
			}
			for _, v := range applied {
				fmt.Fprintf(out, "%3d  %-40s %s\n", v.Version, v.Description, v.AppliedAt.Format(time.RFC3339))
			}
			return nil
		},
	}
}
