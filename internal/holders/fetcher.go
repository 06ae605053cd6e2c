package holders

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/alitto/pond/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/feral-file/gmx-exporter/internal/adapter"
	"github.com/feral-file/gmx-exporter/internal/block"
	"github.com/feral-file/gmx-exporter/internal/domain"
	"github.com/feral-file/gmx-exporter/internal/logger"
	"github.com/feral-file/gmx-exporter/internal/metrics"
	"github.com/feral-file/gmx-exporter/internal/providers/ethereum"
	"github.com/feral-file/gmx-exporter/internal/retry"
)

// WorkerConfig sizes the worker pool of a stage
type WorkerConfig struct {
	PoolSize  int
	QueueSize int
}

func (c WorkerConfig) newPool(ctx context.Context) pond.Pool {
	size := c.PoolSize
	if size < 1 {
		size = 1
	}

	opts := []pond.Option{pond.WithContext(ctx)}
	if c.QueueSize > 0 {
		opts = append(opts, pond.WithQueueSize(c.QueueSize))
	}
	return pond.NewPool(size, opts...)
}

// FetchSummary reports the outcome of a log fetch
type FetchSummary struct {
	Ranges       int
	Bisected     int
	FailedRanges []block.Range
	Logs         int
}

// Fetcher retrieves logs over many block ranges in parallel
type Fetcher struct {
	client  ethereum.EthereumClient
	retrier *retry.Retrier
	clock   adapter.Clock
	config  WorkerConfig
}

// NewFetcher creates a new log fetcher
func NewFetcher(client ethereum.EthereumClient, retrier *retry.Retrier, clock adapter.Clock, config WorkerConfig) *Fetcher {
	return &Fetcher{
		client:  client,
		retrier: retrier,
		clock:   clock,
		config:  config,
	}
}

// FetchAll fetches the logs of addresses matching topic over every range.
// Transient failures are retried; a range the provider refuses as too large is
// split in half until it succeeds or cannot be split. Ranges that still fail are
// logged and reported in the summary, and their logs are absent from the result.
// Logs are returned grouped by range in the order of ranges.
func (f *Fetcher) FetchAll(ctx context.Context, ranges []block.Range, addresses []common.Address, topic common.Hash) ([]types.Log, *FetchSummary) {
	startTime := f.clock.Now()
	summary := &FetchSummary{Ranges: len(ranges)}
	if len(ranges) == 0 {
		return nil, summary
	}

	logger.InfoCtx(ctx, "Fetching logs",
		zap.Int("ranges", len(ranges)),
		zap.Int("addresses", len(addresses)),
		zap.Int("worker_pool_size", f.config.PoolSize))

	type rangeResult struct {
		logs   []types.Log
		failed []block.Range
	}

	results := make([]rangeResult, len(ranges))
	started := make([]bool, len(ranges))
	var bisected atomic.Int64

	pool := f.config.newPool(ctx)
	for i, r := range ranges {
		pool.Submit(func() {
			started[i] = true
			results[i].logs, results[i].failed = f.fetchRange(ctx, r, addresses, topic, &bisected)
		})
	}
	pool.StopAndWait()

	var logs []types.Log
	for i, res := range results {
		if !started[i] {
			summary.FailedRanges = append(summary.FailedRanges, ranges[i])
			continue
		}
		logs = append(logs, res.logs...)
		summary.FailedRanges = append(summary.FailedRanges, res.failed...)
	}
	summary.Logs = len(logs)
	summary.Bisected = int(bisected.Load())

	logger.InfoCtx(ctx, "Logs fetched",
		zap.Int("ranges", summary.Ranges),
		zap.Int("bisected", summary.Bisected),
		zap.Int("failed_ranges", len(summary.FailedRanges)),
		zap.Int("logs", summary.Logs),
		zap.Duration("duration", f.clock.Since(startTime)))

	return logs, summary
}

// fetchRange fetches one range, bisecting on ErrRangeTooLarge
func (f *Fetcher) fetchRange(ctx context.Context, r block.Range, addresses []common.Address, topic common.Hash, bisected *atomic.Int64) ([]types.Log, []block.Range) {
	logs, err := retry.Do(ctx, f.retrier, "get_logs", func(ctx context.Context) ([]types.Log, error) {
		logs, err := f.client.FetchLogs(ctx, r, addresses, topic)
		if errors.Is(err, domain.ErrRangeTooLarge) {
			return nil, retry.Permanent(err)
		}
		return logs, err
	})
	if err == nil {
		metrics.LogRangesTotal.WithLabelValues("ok").Inc()
		metrics.LogsFetchedTotal.Add(float64(len(logs)))
		return logs, nil
	}

	if errors.Is(err, domain.ErrRangeTooLarge) {
		if left, right, ok := block.Bisect(r); ok {
			metrics.LogRangesTotal.WithLabelValues("bisected").Inc()
			bisected.Add(1)
			logger.DebugCtx(ctx, "Range too large, splitting",
				zap.Stringer("range", r),
				zap.Stringer("left", left),
				zap.Stringer("right", right))

			leftLogs, leftFailed := f.fetchRange(ctx, left, addresses, topic, bisected)
			rightLogs, rightFailed := f.fetchRange(ctx, right, addresses, topic, bisected)
			return append(leftLogs, rightLogs...), append(leftFailed, rightFailed...)
		}
	}

	metrics.LogRangesTotal.WithLabelValues("failed").Inc()
	if !errors.Is(err, context.Canceled) {
		logger.ErrorCtx(ctx, err,
			zap.Uint64("from_block", r.Start),
			zap.Uint64("to_block", r.End))
	}
	return nil, []block.Range{r}
}
