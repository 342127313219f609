package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "optimize",
		Short: "Monte Carlo portfolio optimization",
		Long: `Downloads daily prices, simulates random long-only portfolios and reports the
maximum Sharpe ratio, minimum volatility and maximum return allocations.

Defaults come from the environment (PORTFOLIO_*, DB_PATH, ...), then --config, then flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runOptimize,
	}

	rootCmd.PersistentFlags().String("config", "", "YAML config file overlaid on environment defaults")
	rootCmd.PersistentFlags().String("db", "", "SQLite database for run history and price cache (default DB_PATH)")

	rootCmd.Flags().String("tickers", "", "Comma-separated ticker list")
	rootCmd.Flags().Int("num-portfolios", 0, "Number of random portfolios to simulate")
	rootCmd.Flags().String("window", "", "Lookback window, e.g. 90d, 18m, 3y")
	rootCmd.Flags().Uint64("seed", 0, "Random seed (0 derives one from the clock)")
	rootCmd.Flags().Int("workers", 0, "Goroutines evaluating trials")
	rootCmd.Flags().String("chart", "", "Write the efficient frontier PNG to this path")
	rootCmd.Flags().String("prices-chart", "", "Write the rebased price history PNG to this path")
	rootCmd.Flags().String("pie-dir", "", "Write one allocation pie chart PNG per optimal portfolio into this directory")
	rootCmd.Flags().Bool("no-cache", false, "Bypass the SQLite price cache")
	rootCmd.Flags().Bool("explain", false, "Ask the configured OpenAI model for a short commentary")

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recent optimization runs",
		RunE:  runHistory,
	}
	historyCmd.Flags().Int("limit", 10, "Number of runs to list")
	rootCmd.AddCommand(historyCmd)

	return rootCmd
}
