package multicall

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/feral-file/gmx-exporter/internal/domain"
)

const multicall3ABI = `[{"inputs":[{"internalType":"bool","name":"requireSuccess","type":"bool"},{"components":[{"internalType":"address","name":"target","type":"address"},{"internalType":"bytes","name":"callData","type":"bytes"}],"internalType":"struct Multicall3.Call[]","name":"calls","type":"tuple[]"}],"name":"tryBlockAndAggregate","outputs":[{"internalType":"uint256","name":"blockNumber","type":"uint256"},{"internalType":"bytes32","name":"blockHash","type":"bytes32"},{"components":[{"internalType":"bool","name":"success","type":"bool"},{"internalType":"bytes","name":"returnData","type":"bytes"}],"internalType":"struct Multicall3.Result[]","name":"returnData","type":"tuple[]"}],"stateMutability":"payable","type":"function"}]`

const methodTryBlockAndAggregate = "tryBlockAndAggregate"

// ABI is the parsed Multicall3 fragment
var ABI = mustParseABI(multicall3ABI)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("invalid multicall abi: %v", err))
	}
	return parsed
}

// Call is a single read-only call inside a batch
type Call struct {
	Target   common.Address
	CallData []byte
}

// Result is the per-call outcome reported by Multicall3
type Result struct {
	Success    bool
	ReturnData []byte
}

// BatchResult holds the return data of every call, in submission order,
// together with the block the batch executed at
type BatchResult struct {
	BlockNumber uint64
	ReturnData  [][]byte
}

// Caller executes a read-only contract call
type Caller interface {
	CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error)
}

// Multicaller submits batches of calls atomically
//
//go:generate mockgen -source=multicall.go -destination=../mocks/multicall.go -package=mocks -mock_names=Caller=MockCaller,Multicaller=MockMulticaller
type Multicaller interface {
	// Aggregate submits the calls as one batch. It fails if the submission fails,
	// the response cannot be decoded or any call in the batch did not succeed.
	Aggregate(ctx context.Context, calls []Call) (*BatchResult, error)
}

type multicaller struct {
	address common.Address
	caller  Caller
}

// NewMulticaller creates a Multicaller targeting the Multicall3 deployment at address
func NewMulticaller(address common.Address, caller Caller) Multicaller {
	return &multicaller{address: address, caller: caller}
}

func (m *multicaller) Aggregate(ctx context.Context, calls []Call) (*BatchResult, error) {
	if len(calls) == 0 {
		return &BatchResult{}, nil
	}

	data, err := ABI.Pack(methodTryBlockAndAggregate, false, calls)
	if err != nil {
		return nil, fmt.Errorf("failed to pack multicall: %w", err)
	}

	raw, err := m.caller.CallContract(ctx, m.address, data)
	if err != nil {
		return nil, fmt.Errorf("failed to submit multicall: %w", err)
	}

	return Decode(raw, len(calls))
}

// Decode unpacks a tryBlockAndAggregate response carrying expected results
func Decode(raw []byte, expected int) (*BatchResult, error) {
	out, err := ABI.Unpack(methodTryBlockAndAggregate, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack multicall: %w", err)
	}
	if len(out) != 3 {
		return nil, fmt.Errorf("failed to unpack multicall: unexpected %d outputs", len(out))
	}

	blockNumber, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("failed to unpack multicall: unexpected block number type %T", out[0])
	}
	results := *abi.ConvertType(out[2], new([]Result)).(*[]Result)
	if len(results) != expected {
		return nil, fmt.Errorf("failed to unpack multicall: got %d results for %d calls", len(results), expected)
	}

	batch := &BatchResult{
		BlockNumber: blockNumber.Uint64(),
		ReturnData:  make([][]byte, len(results)),
	}
	for i, r := range results {
		if !r.Success {
			return nil, fmt.Errorf("%w: call %d", domain.ErrCallFailed, i)
		}
		batch.ReturnData[i] = r.ReturnData
	}

	return batch, nil
}
