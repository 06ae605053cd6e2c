package gmx

import (
	"context"
	"errors"

	"github.com/alitto/pond/v2"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/feral-file/gmx-exporter/internal/adapter"
	"github.com/feral-file/gmx-exporter/internal/logger"
	"github.com/feral-file/gmx-exporter/internal/metrics"
)

// OrchestratorConfig holds configuration for the account orchestrator
type OrchestratorConfig struct {
	WorkerPoolSize  int
	WorkerQueueSize int
	// ProgressEvery logs progress after this many completions; 0 disables it
	ProgressEvery int
}

// Orchestrator fans account aggregation out over a worker pool
type Orchestrator struct {
	aggregator Aggregator
	clock      adapter.Clock
	config     OrchestratorConfig
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(aggregator Aggregator, clock adapter.Clock, config OrchestratorConfig) *Orchestrator {
	if config.WorkerPoolSize < 1 {
		config.WorkerPoolSize = 1
	}
	return &Orchestrator{
		aggregator: aggregator,
		clock:      clock,
		config:     config,
	}
}

// BuildTable aggregates every account and collects the outcomes as they complete.
// A failed account is logged and left out of the rows. When ctx is cancelled the
// accounts not yet started are dropped and the table holds what completed.
func (o *Orchestrator) BuildTable(ctx context.Context, accounts []common.Address) *ResultTable {
	table := NewResultTable(accounts)
	if table.Duplicates() > 0 {
		logger.WarnCtx(ctx, "Dropped repeated accounts", zap.Int("duplicates", table.Duplicates()))
	}

	accounts = table.Accounts()
	if len(accounts) == 0 {
		return table
	}

	startTime := o.clock.Now()
	logger.InfoCtx(ctx, "Fetching account data",
		zap.Int("accounts", len(accounts)),
		zap.Int("worker_pool_size", o.config.WorkerPoolSize))

	results := make(chan Result, len(accounts))
	collected := make(chan struct{})

	go func() {
		defer close(collected)
		for r := range results {
			o.collect(ctx, table, r, len(accounts))
		}
	}()

	opts := []pond.Option{pond.WithContext(ctx)}
	if o.config.WorkerQueueSize > 0 {
		opts = append(opts, pond.WithQueueSize(o.config.WorkerQueueSize))
	}
	pool := pond.NewPool(o.config.WorkerPoolSize, opts...)

	for _, account := range accounts {
		pool.Submit(func() {
			record, err := o.aggregator.AggregateAccountData(ctx, account)
			results <- Result{Account: account, Record: record, Err: err}
		})
	}

	pool.StopAndWait()
	close(results)
	<-collected

	logger.InfoCtx(ctx, "Account data fetched",
		zap.Int("accounts", len(accounts)),
		zap.Int("rows", table.Len()),
		zap.Int("failed", len(table.Failures())),
		zap.Int("dropped", table.Pending()),
		zap.Duration("duration", o.clock.Since(startTime)))

	return table
}

func (o *Orchestrator) collect(ctx context.Context, table *ResultTable, r Result, total int) {
	table.Add(r)

	if r.Err != nil {
		metrics.AccountsTotal.WithLabelValues("failed").Inc()
		if !errors.Is(r.Err, context.Canceled) {
			logger.ErrorCtx(ctx, r.Err, zap.String("account", r.Account.Hex()))
		}
	} else {
		metrics.AccountsTotal.WithLabelValues("ok").Inc()
	}

	done := len(table.Results())
	if o.config.ProgressEvery > 0 && (done%o.config.ProgressEvery == 0 || done == total) {
		logger.InfoCtx(ctx, "Account progress",
			zap.Int("done", done),
			zap.Int("total", total))
	}
}
