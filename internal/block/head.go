package block

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/feral-file/gmx-exporter/internal/domain"
	"github.com/feral-file/gmx-exporter/internal/logger"
)

// BlockFetcher is the interface for fetching the latest block from the blockchain
//
//go:generate mockgen -source=head.go -destination=../mocks/block_fetcher.go -package=mocks -mock_names=BlockFetcher=MockBlockFetcher
type BlockFetcher interface {
	// FetchLatestBlock fetches the latest block from the blockchain
	FetchLatestBlock(ctx context.Context) (uint64, error)
}

// ScanInterval resolves the [deploymentBlock, latest] interval to scan for logs
func ScanInterval(ctx context.Context, fetcher BlockFetcher, deploymentBlock uint64) (Range, error) {
	latest, err := fetcher.FetchLatestBlock(ctx)
	if err != nil {
		return Range{}, fmt.Errorf("failed to fetch latest block: %w", err)
	}
	if deploymentBlock > latest {
		return Range{}, fmt.Errorf("%w: deployment block %d is ahead of latest block %d",
			domain.ErrInvalidRange, deploymentBlock, latest)
	}

	logger.DebugCtx(ctx, "Resolved scan interval",
		zap.Uint64("from_block", deploymentBlock),
		zap.Uint64("to_block", latest))

	return Range{Start: deploymentBlock, End: latest}, nil
}
