package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var catalogFlag string
	var logLevelFlag string
	var jsonFlag bool

	ctx := newCommandContext(&catalogFlag, &logLevelFlag, &jsonFlag)

	rootCmd := &cobra.Command{
		Use:           "labelmatch",
		Short:         "Resolve product label photos and OCR text to catalog products",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.loadConfig()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			ctx.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&catalogFlag, "catalog", "", "Catalog source (.xlsx, .csv, .db, .sqlite or mongodb); overrides CATALOG_SOURCE")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "Write JSON even when stdout is a terminal")

	rootCmd.AddCommand(newMatchCommand(ctx))
	rootCmd.AddCommand(newTextCommand(ctx))
	rootCmd.AddCommand(newVerifyCommand(ctx))
	rootCmd.AddCommand(newCatalogCommand(ctx))

	return rootCmd
}
