package holders

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/feral-file/gmx-exporter/internal/adapter"
	"github.com/feral-file/gmx-exporter/internal/domain"
	"github.com/feral-file/gmx-exporter/internal/logger"
	"github.com/feral-file/gmx-exporter/internal/metrics"
	"github.com/feral-file/gmx-exporter/internal/providers/ethereum"
	"github.com/feral-file/gmx-exporter/internal/retry"
)

// ClassifySummary reports the outcome of classifying candidates
type ClassifySummary struct {
	Candidates int
	EOAs       int
	Contracts  int
	Failed     int
}

// Classifier tells externally owned accounts apart from contracts
type Classifier struct {
	client  ethereum.EthereumClient
	retrier *retry.Retrier
	clock   adapter.Clock
	config  WorkerConfig
}

// NewClassifier creates a new classifier
func NewClassifier(client ethereum.EthereumClient, retrier *retry.Retrier, clock adapter.Clock, config WorkerConfig) *Classifier {
	return &Classifier{
		client:  client,
		retrier: retrier,
		clock:   clock,
		config:  config,
	}
}

// Classify reports whether addr has no bytecode (EOA) or has some (contract)
func (c *Classifier) Classify(ctx context.Context, addr common.Address) (domain.Classification, error) {
	code, err := retry.Do(ctx, c.retrier, "get_code", func(ctx context.Context) ([]byte, error) {
		return c.client.CodeAt(ctx, addr)
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", domain.ErrClassification, addr.Hex(), err)
	}

	if len(code) == 0 {
		return domain.ClassificationEOA, nil
	}
	return domain.ClassificationContract, nil
}

// FilterEOAs keeps the candidates classified as EOA, in candidate order.
// Addresses that cannot be classified are logged and left out.
func (c *Classifier) FilterEOAs(ctx context.Context, candidates []common.Address) ([]common.Address, *ClassifySummary) {
	startTime := c.clock.Now()
	summary := &ClassifySummary{Candidates: len(candidates)}
	if len(candidates) == 0 {
		return nil, summary
	}

	logger.InfoCtx(ctx, "Classifying candidate addresses",
		zap.Int("candidates", len(candidates)),
		zap.Int("worker_pool_size", c.config.PoolSize))

	classes := make([]domain.Classification, len(candidates))
	var contracts, failed atomic.Int64

	pool := c.config.newPool(ctx)
	for i, addr := range candidates {
		pool.Submit(func() {
			class, err := c.Classify(ctx, addr)
			if err != nil {
				failed.Add(1)
				metrics.AddressesClassifiedTotal.WithLabelValues("error").Inc()
				if !errors.Is(err, context.Canceled) {
					logger.ErrorCtx(ctx, err, zap.String("address", addr.Hex()))
				}
				return
			}

			metrics.AddressesClassifiedTotal.WithLabelValues(string(class)).Inc()
			if class == domain.ClassificationContract {
				contracts.Add(1)
			}
			classes[i] = class
		})
	}
	pool.StopAndWait()

	eoas := make([]common.Address, 0, len(candidates))
	for i, class := range classes {
		if class == domain.ClassificationEOA {
			eoas = append(eoas, candidates[i])
		}
	}

	summary.EOAs = len(eoas)
	summary.Contracts = int(contracts.Load())
	summary.Failed = int(failed.Load())

	logger.InfoCtx(ctx, "Candidate addresses classified",
		zap.Int("candidates", summary.Candidates),
		zap.Int("eoas", summary.EOAs),
		zap.Int("contracts", summary.Contracts),
		zap.Int("failed", summary.Failed),
		zap.Duration("duration", c.clock.Since(startTime)))

	return eoas, summary
}
