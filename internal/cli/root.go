// Package cli implements the ipowatcher command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ipowatcher",
	Short: "IPO corpus API server and ingestion tooling",
	Long: `ipowatcher serves a read-mostly JSON API over a year-partitioned IPO
corpus, and rebuilds that corpus from the upstream listing site.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
