package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "xvenue-arb",
	Short: "Cross-venue binary-market arbitrage engine",
	Long: `Cross-venue arbitrage engine for binary YES/NO prediction markets.

For each configured pair of equivalent markets on two venues, the engine
streams live order books, detects risk-free buy-both opportunities
(YES on one venue + NO on the other for a combined cost below 1),
executes both legs concurrently, and unwinds the surviving leg when
exactly one leg fails.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
