package main

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"evotree-backend/domain/core/valueobjects"
	"evotree-backend/infrastructure/di"
)

// seedFile is the YAML layout accepted by `evotree seed`.
// Links refer to mechanics by name, including mechanics already stored.
type seedFile struct {
	Mechanics []seedMechanic `yaml:"mechanics"`
	Links     []seedLink     `yaml:"links"`
}

type seedMechanic struct {
	Name        string  `yaml:"name"`
	Description *string `yaml:"description"`
	Year        *int    `yaml:"year"`
}

type seedLink struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
	Type string `yaml:"type"`
}

type seedReport struct {
	Mechanics int `json:"mechanics"`
	Links     int `json:"links"`
}

func parseSeed(data []byte) (*seedFile, error) {
	var f seedFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &f, nil
}

func newSeedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Load mechanics and links from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			f, err := parseSeed(data)
			if err != nil {
				return err
			}

			c, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			report, err := seed(cmd.Context(), c, f)
			if err != nil {
				return err
			}

			if a.jsonOut {
				return printJSON(cmd.OutOrStdout(), report)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d mechanics and %d links\n", report.Mechanics, report.Links)
			return nil
		},
	}
}

func seed(ctx context.Context, c *di.Container, f *seedFile) (seedReport, error) {
	var report seedReport

	existing, err := c.Mechanics.List(ctx)
	if err != nil {
		return report, err
	}
	ids := make(map[string]valueobjects.MechanicID, len(existing)+len(f.Mechanics))
	for _, m := range existing {
		ids[m.Name()] = m.ID()
	}

	for _, sm := range f.Mechanics {
		if _, ok := ids[sm.Name]; ok {
			return report, fmt.Errorf("mechanic %q already exists", sm.Name)
		}
		m, err := c.Mechanics.Create(ctx, sm.Name, sm.Description, sm.Year)
		if err != nil {
			return report, fmt.Errorf("create mechanic %q: %w", sm.Name, err)
		}
		ids[m.Name()] = m.ID()
		report.Mechanics++
	}

	for _, sl := range f.Links {
		from, ok := ids[sl.From]
		if !ok {
			return report, fmt.Errorf("link %s -> %s: unknown mechanic %q", sl.From, sl.To, sl.From)
		}
		to, ok := ids[sl.To]
		if !ok {
			return report, fmt.Errorf("link %s -> %s: unknown mechanic %q", sl.From, sl.To, sl.To)
		}
		if _, err := c.Links.Create(ctx, from, to, sl.Type); err != nil {
			return report, fmt.Errorf("create link %s -> %s: %w", sl.From, sl.To, err)
		}
		report.Links++
	}

	return report, nil
}
