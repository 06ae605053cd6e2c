package ethereum

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/feral-file/gmx-exporter/internal/adapter"
	"github.com/feral-file/gmx-exporter/internal/block"
	"github.com/feral-file/gmx-exporter/internal/logger"
	"github.com/feral-file/gmx-exporter/internal/ratelimit"
)

var _ EthereumClient = (*Pool)(nil)

// Pool is an EthereumClient backed by a fixed set of connections.
// Every call borrows one connection for its duration, so concurrent
// workers never share a connection.
type Pool struct {
	idle        chan EthereumClient
	clients     []EthereumClient
	callTimeout time.Duration
	closeOnce   sync.Once
}

// PoolConfig holds configuration for the connection pool
type PoolConfig struct {
	RPCURL string
	Size   int
	// Limiter throttles every RPC call issued through the pool; nil disables throttling
	Limiter *rate.Limiter
	// CallTimeout bounds a single call; 0 disables it
	CallTimeout time.Duration
}

// NewPool dials cfg.Size connections to the RPC endpoint
func NewPool(ctx context.Context, dialer adapter.EthClientDialer, cfg PoolConfig) (*Pool, error) {
	if cfg.Size < 1 {
		cfg.Size = 1
	}

	p := &Pool{
		idle:        make(chan EthereumClient, cfg.Size),
		clients:     make([]EthereumClient, 0, cfg.Size),
		callTimeout: cfg.CallTimeout,
	}

	for i := 0; i < cfg.Size; i++ {
		ethClient, err := dialer.Dial(ctx, cfg.RPCURL)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("failed to dial rpc endpoint: %w", err)
		}
		if cfg.Limiter != nil {
			ethClient = ratelimit.NewEthClient(ethClient, cfg.Limiter)
		}

		client := NewClient(ethClient)
		p.clients = append(p.clients, client)
		p.idle <- client
	}

	logger.DebugCtx(ctx, "RPC connection pool ready", zap.Int("size", cfg.Size))

	return p, nil
}

// Size returns the number of pooled connections
func (p *Pool) Size() int {
	return len(p.clients)
}

func (p *Pool) acquire(ctx context.Context) (EthereumClient, error) {
	select {
	case c := <-p.idle:
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// withTimeout applies the per-call timeout, if any
func (p *Pool) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.callTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.callTimeout)
}

func (p *Pool) release(c EthereumClient) {
	p.idle <- c
}

// FetchLogs implements EthereumClient on a borrowed connection
func (p *Pool) FetchLogs(ctx context.Context, r block.Range, addresses []common.Address, topic common.Hash) ([]types.Log, error) {
	c, err := p.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer p.release(c)

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	return c.FetchLogs(ctx, r, addresses, topic)
}

// CodeAt implements EthereumClient on a borrowed connection
func (p *Pool) CodeAt(ctx context.Context, address common.Address) ([]byte, error) {
	c, err := p.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer p.release(c)

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	return c.CodeAt(ctx, address)
}

// CallContract implements EthereumClient on a borrowed connection
func (p *Pool) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	c, err := p.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer p.release(c)

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	return c.CallContract(ctx, to, data)
}

// FetchLatestBlock implements EthereumClient on a borrowed connection
func (p *Pool) FetchLatestBlock(ctx context.Context) (uint64, error) {
	c, err := p.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer p.release(c)

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	return c.FetchLatestBlock(ctx)
}

// Close closes every pooled connection
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		for _, c := range p.clients {
			c.Close()
		}
	})
}
