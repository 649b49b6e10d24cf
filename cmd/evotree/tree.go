package main

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"evotree-backend/application/queries"
	"evotree-backend/domain/core/valueobjects"
)

func newTreeCmd(a *app) *cobra.Command {
	var fresh bool

	cmd := &cobra.Command{
		Use:   "tree <mechanic-id>",
		Short: "Print the evolution tree rooted at a mechanic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := valueobjects.ParseMechanicID(args[0])
			if err != nil {
				return err
			}
			c, err := a.open(cmd.Context())
			if err != nil {
				return err
			}

			result, err := c.TreeQuery.Handle(cmd.Context(), queries.GetMechanicTreeQuery{RootID: id, SkipCache: fresh})
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			if err := json.Indent(&buf, result.JSON, "", "  "); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), buf.String())
			return nil
		},
	}
	cmd.Flags().BoolVar(&fresh, "fresh", false, "bypass the tree cache")
	return cmd
}
