package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/feral-file/gmx-exporter/internal/adapter"
	"github.com/feral-file/gmx-exporter/internal/block"
	"github.com/feral-file/gmx-exporter/internal/domain"
	"github.com/feral-file/gmx-exporter/internal/metrics"
)

// EthereumClient is the read-only chain access used by the exporter
//
//go:generate mockgen -source=client.go -destination=../../mocks/ethereum_client.go -package=mocks -mock_names=EthereumClient=MockEthereumClient
type EthereumClient interface {
	// FetchLogs returns the logs emitted by each address within the range that match topic.
	// One query is issued per address and the results are concatenated.
	FetchLogs(ctx context.Context, r block.Range, addresses []common.Address, topic common.Hash) ([]types.Log, error)

	// CodeAt returns the bytecode deployed at address on the latest block
	CodeAt(ctx context.Context, address common.Address) ([]byte, error)

	// CallContract executes a read-only call against the latest block
	CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error)

	// FetchLatestBlock fetches the latest block number
	FetchLatestBlock(ctx context.Context) (uint64, error)

	// Close closes the connection
	Close()
}

type ethereumClient struct {
	client adapter.EthClient
}

func NewClient(client adapter.EthClient) EthereumClient {
	return &ethereumClient{client: client}
}

// FetchLogs issues one filtered query per address over the range
func (c *ethereumClient) FetchLogs(ctx context.Context, r block.Range, addresses []common.Address, topic common.Hash) ([]types.Log, error) {
	var allLogs []types.Log
	for _, address := range addresses {
		query := ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(r.Start),
			ToBlock:   new(big.Int).SetUint64(r.End),
			Addresses: []common.Address{address},
			Topics:    [][]common.Hash{{topic}},
		}

		logs, err := c.client.FilterLogs(ctx, query)
		metrics.RPCCallsTotal.WithLabelValues("eth_getLogs", metrics.Status(err)).Inc()
		if err != nil {
			return nil, fmt.Errorf("failed to get logs of %s for range %s: %w", address.Hex(), r, classifyError(err))
		}

		allLogs = append(allLogs, logs...)
	}

	return allLogs, nil
}

// CodeAt returns the bytecode deployed at address
func (c *ethereumClient) CodeAt(ctx context.Context, address common.Address) ([]byte, error) {
	code, err := c.client.CodeAt(ctx, address, nil)
	metrics.RPCCallsTotal.WithLabelValues("eth_getCode", metrics.Status(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("failed to get code of %s: %w", address.Hex(), classifyError(err))
	}
	return code, nil
}

// CallContract executes a read-only call
func (c *ethereumClient) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	result, err := c.client.CallContract(ctx, ethereum.CallMsg{
		To:   &to,
		Data: data,
	}, nil)
	metrics.RPCCallsTotal.WithLabelValues("eth_call", metrics.Status(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("failed to call contract %s: %w", to.Hex(), classifyError(err))
	}
	return result, nil
}

// FetchLatestBlock fetches the latest block number
func (c *ethereumClient) FetchLatestBlock(ctx context.Context) (uint64, error) {
	header, err := c.client.HeaderByNumber(ctx, nil)
	metrics.RPCCallsTotal.WithLabelValues("eth_getBlockByNumber", metrics.Status(err)).Inc()
	if err != nil {
		return 0, fmt.Errorf("failed to get latest block: %w", classifyError(err))
	}
	return header.Number.Uint64(), nil
}

// Close closes the connection
func (c *ethereumClient) Close() {
	c.client.Close()
}

// classifyError tags a provider error with the matching domain error
func classifyError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if isRangeTooLargeError(err) {
		return fmt.Errorf("%w: %w", domain.ErrRangeTooLarge, err)
	}
	return fmt.Errorf("%w: %w", domain.ErrTransientRPC, err)
}

// isRangeTooLargeError checks if the provider rejected a log query because of its span or result size
func isRangeTooLargeError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "query returned more than") ||
		strings.Contains(errStr, "too many results") ||
		strings.Contains(errStr, "maximum block range") ||
		strings.Contains(errStr, "block range is too large") ||
		strings.Contains(errStr, "block range too large") ||
		strings.Contains(errStr, "log response size exceeded")
}
