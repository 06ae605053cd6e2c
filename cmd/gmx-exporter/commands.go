package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/feral-file/gmx-exporter/internal/logger"
	"github.com/feral-file/gmx-exporter/internal/pipeline"
)

func newRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Enumerate holders and export their account data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd.Context(), opts, func(ctx context.Context, runner *pipeline.Runner) (*pipeline.Summary, error) {
				return runner.Run(ctx)
			})
		},
	}
}

func newHoldersCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "holders",
		Short: "Enumerate holders and write the address list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd.Context(), opts, func(ctx context.Context, runner *pipeline.Runner) (*pipeline.Summary, error) {
				return runner.RunHolders(ctx)
			})
		},
	}
}

func newAccountsCommand(opts *options) *cobra.Command {
	var (
		input string
		start int
		end   int
	)

	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Export account data for a slice of a previously written address list",
		Example: `  # Aggregate the first thousand holders
  gmx-exporter accounts --network arbitrum --input gmx_holders_arbitrum_123.csv --start 0 --end 1000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if start < 0 || (end > 0 && end < start) {
				return fmt.Errorf("invalid window [%d, %d)", start, end)
			}
			return execute(cmd.Context(), opts, func(ctx context.Context, runner *pipeline.Runner) (*pipeline.Summary, error) {
				return runner.RunAccounts(ctx, input, start, end)
			})
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "Address list CSV with an account column")
	cmd.Flags().IntVar(&start, "start", 0, "First list index to aggregate")
	cmd.Flags().IntVar(&end, "end", 0, "List index to stop before (0 = end of list)")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

// execute sets up the environment, runs one pipeline entry point and logs its summary
func execute(parent context.Context, opts *options, run func(context.Context, *pipeline.Runner) (*pipeline.Summary, error)) error {
	ctx, env, err := setup(parent, opts)
	if err != nil {
		return err
	}
	defer env.close()

	summary, err := run(ctx, env.runner)
	if summary != nil {
		logSummary(ctx, summary)
	}
	if err != nil {
		logger.ErrorCtx(ctx, err)
		return err
	}

	return nil
}

func logSummary(ctx context.Context, s *pipeline.Summary) {
	logger.InfoCtx(ctx, "Run finished",
		zap.String("network", s.Network),
		zap.Uint64("latest_block", s.LatestBlock),
		zap.Int("ranges", s.Ranges),
		zap.Int("failed_ranges", s.FailedRanges),
		zap.Int("logs", s.Logs),
		zap.Int("candidates", s.Candidates),
		zap.Int("eoas", s.EOAs),
		zap.Int("contracts", s.Contracts),
		zap.Int("unclassified", s.Unclassified),
		zap.Int("accounts", s.Accounts),
		zap.Int("rows", s.Rows),
		zap.Int("accounts_failed", s.AccountsFailed),
		zap.Int("accounts_dropped", s.AccountsDropped),
		zap.Strings("files", s.Files))
}
