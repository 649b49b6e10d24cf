package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"evotree-backend/infrastructure/config"
	"evotree-backend/infrastructure/di"
)

// app carries the flags and the container shared by every subcommand.
type app struct {
	configFile string
	storage    string
	jsonOut    bool

	container *di.Container
	cleanup   func()
}

// run executes one command line and releases the container afterwards.
func run(ctx context.Context, args []string, out, errOut io.Writer) error {
	a := &app{}
	defer a.close()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)
	return root.ExecuteContext(ctx)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "evotree",
		Short:        "Operate the mechanics evolution tree",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "YAML config file (overrides CONFIG_FILE)")
	root.PersistentFlags().StringVar(&a.storage, "storage", "", "storage backend override: sqlite, dynamodb or memory")
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "output as JSON")

	root.AddCommand(
		newMigrateCmd(a),
		newSeedCmd(a),
		newTreeCmd(a),
		newPurgeTokensCmd(a),
		newRelayEventsCmd(a),
	)
	return root
}

// open builds the container on first use.
func (a *app) open(ctx context.Context) (*di.Container, error) {
	if a.container != nil {
		return a.container, nil
	}

	if a.configFile != "" {
		if err := os.Setenv("CONFIG_FILE", a.configFile); err != nil {
			return nil, err
		}
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if a.storage != "" {
		cfg.StorageBackend = a.storage
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	container, cleanup, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize container: %w", err)
	}
	a.container, a.cleanup = container, cleanup
	return container, nil
}

func (a *app) close() {
	if a.cleanup != nil {
		a.cleanup()
		a.cleanup = nil
	}
	a.container = nil
}

// printJSON writes v as indented JSON.
func printJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
