package ratelimit

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/time/rate"

	"github.com/feral-file/gmx-exporter/internal/adapter"
	"github.com/feral-file/gmx-exporter/internal/metrics"
)

// NewLimiter creates a token-bucket limiter allowing rps requests per second with
// the given burst. It returns nil when rps is not positive, meaning unlimited.
func NewLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// ethClient throttles every call of the wrapped client through a shared limiter
type ethClient struct {
	client  adapter.EthClient
	limiter *rate.Limiter
}

// NewEthClient wraps client so every RPC waits for a token from limiter.
// Clients sharing one limiter share its budget.
func NewEthClient(client adapter.EthClient, limiter *rate.Limiter) adapter.EthClient {
	return &ethClient{client: client, limiter: limiter}
}

// wait blocks until the limiter allows one request, or ctx is done
func (c *ethClient) wait(ctx context.Context) error {
	r := c.limiter.Reserve()
	if !r.OK() {
		return c.limiter.Wait(ctx)
	}

	delay := r.Delay()
	if delay == 0 {
		return nil
	}

	metrics.RPCRateLimitWaits.Inc()
	if err := sleep(ctx, delay); err != nil {
		r.Cancel()
		return err
	}
	return nil
}

func (c *ethClient) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.client.FilterLogs(ctx, query)
}

func (c *ethClient) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.client.HeaderByNumber(ctx, number)
}

func (c *ethClient) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.client.CodeAt(ctx, account, blockNumber)
}

func (c *ethClient) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.client.CallContract(ctx, msg, blockNumber)
}

func (c *ethClient) Close() {
	c.client.Close()
}
