package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newPurgeTokensCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "purge-tokens",
		Short: "Delete expired email verification tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			removed, err := c.Auth.PurgeExpiredTokens(cmd.Context())
			if err != nil {
				return err
			}
			if a.jsonOut {
				return printJSON(cmd.OutOrStdout(), map[string]int{"removed": removed})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired tokens\n", removed)
			return nil
		},
	}
}

func newRelayEventsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "relay-events",
		Short: "Relay one batch of pending outbox events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			if c.Outbox == nil {
				return errors.New("relay-events requires EVENTS_BACKEND=outbox")
			}
			published, err := c.Outbox.ProcessBatch(cmd.Context())
			if err != nil {
				return err
			}
			if a.jsonOut {
				return printJSON(cmd.OutOrStdout(), map[string]int{"published": published})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %d events\n", published)
			return nil
		},
	}
}
