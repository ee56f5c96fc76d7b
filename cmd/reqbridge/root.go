package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "reqbridge",
		Short: "Requirement bridge between Vitareq and the Atlassian graph",
		Long: `reqbridge keeps requirement records from the Vitareq API in sync with the
Atlassian graph, stores connection credentials and serves requirement lookups
over HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newImportCommand())
	rootCmd.AddCommand(newPurgeCommand())
	rootCmd.AddCommand(newLookupCommand())
	rootCmd.AddCommand(newCredentialsCommand())

	return rootCmd
}
