package main

import (
	"fmt"
	"os"

	"promptstore/infrastructure/config"
	"promptstore/infrastructure/di"

	"github.com/spf13/cobra"
)

// app carries the wired dependencies across one process; every subcommand
// shares the same container
type app struct {
	cfgFile      string
	outputFormat string
	container    *di.Container
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "promptctl",
		Short: "Manage versioned prompts",
		Long: `promptctl creates, versions and inspects prompts in the prompt store.

Every prompt belongs to a lineage identified by a user and a prompt id. New
versions bump the patch number and keep the full history of earlier content.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations["skipContainer"] == "true" {
				return nil
			}
			return a.init(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default: ./promptstore.yaml or ~/.promptstore/promptstore.yaml)")
	flags.StringVarP(&a.outputFormat, "output", "o", "json", "output format: json or yaml")
	flags.String("store-backend", config.BackendDynamoDB, "store backend: dynamodb or memory")
	flags.String("table-name", "", "DynamoDB table name")
	flags.String("aws-region", "", "AWS region")
	flags.String("dynamodb-endpoint", "", "DynamoDB endpoint override, e.g. http://localhost:8000")
	flags.String("log-level", "", "log level")

	rootCmd.AddCommand(
		a.createCmd(),
		a.newVersionCmd(),
		a.getCmd(),
		a.versionsCmd(),
		a.listCmd(),
		a.updateCmd(),
		a.archiveCmd(),
		a.deleteCmd(),
		a.importCmd(),
		a.reconcileCmd(),
		versionCmd(),
	)
	return rootCmd
}

func (a *app) init(cmd *cobra.Command) error {
	if a.container != nil {
		return nil
	}

	cfg, err := config.LoadWithViper(a.cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	// Quiet unless asked otherwise; command output goes to stdout
	if !cmd.Flags().Changed("log-level") && os.Getenv(config.EnvPrefix+"_LOG_LEVEL") == "" {
		cfg.LogLevel = "warn"
	}

	container, err := di.InitializeContainer(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	a.container = container
	return nil
}
