package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// options are the persistent flags shared by every command
type options struct {
	configFile string
	envPath    string
	network    string
	outputDir  string
}

func main() {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "gmx-exporter",
		Short: "Export GMX holder balances and staking metrics to CSV",
		Long: `gmx-exporter enumerates every account that ever received GMX, GLP or their
staked variants on a network, keeps the externally owned ones and writes their
balances, staking and vesting amounts as a CSV snapshot.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&opts.envPath, "env", "config/", "Path to environment files")
	rootCmd.PersistentFlags().StringVar(&opts.network, "network", "", "Network to export (arbitrum or avalanche)")
	rootCmd.PersistentFlags().StringVar(&opts.outputDir, "output", "", "Directory the CSV files are written to")

	rootCmd.AddCommand(
		newRunCommand(opts),
		newHoldersCommand(opts),
		newAccountsCommand(opts),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
