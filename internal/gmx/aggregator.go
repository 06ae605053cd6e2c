package gmx

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/feral-file/gmx-exporter/internal/domain"
	"github.com/feral-file/gmx-exporter/internal/logger"
	"github.com/feral-file/gmx-exporter/internal/metrics"
	"github.com/feral-file/gmx-exporter/internal/multicall"
	"github.com/feral-file/gmx-exporter/internal/retry"
)

const (
	phaseBalances = "phase1"
	phaseVesting  = "phase2"
)

// Phase 1 result positions
const (
	idxGMXInWallet = iota
	idxGMXStaked
	idxEsGMXInWallet
	idxEsGMXStaked
	idxMPInWallet
	idxTotalStaked
	idxGLPInWallet
	idxGMXMaxVestable
	idxGLPMaxVestable
	phase1Size
)

// Aggregator retrieves the per-account metrics
//
//go:generate mockgen -source=aggregator.go -destination=../mocks/aggregator.go -package=mocks -mock_names=Aggregator=MockAggregator
type Aggregator interface {
	// AggregateAccountData runs the two dependent batches for account.
	// It returns an error wrapping domain.ErrAggregation when either batch
	// cannot be completed; no partial record is returned.
	AggregateAccountData(ctx context.Context, account common.Address) (*domain.AccountRecord, error)
}

type aggregator struct {
	contracts   Contracts
	multicaller multicall.Multicaller
	retrier     *retry.Retrier
}

// NewAggregator creates an Aggregator submitting batches through multicaller
func NewAggregator(contracts Contracts, multicaller multicall.Multicaller, retrier *retry.Retrier) Aggregator {
	return &aggregator{
		contracts:   contracts,
		multicaller: multicaller,
		retrier:     retrier,
	}
}

// pendingCall is a packed call together with the ABI needed to decode its result
type pendingCall struct {
	contract abi.ABI
	method   string
	call     multicall.Call
}

type decodedBatch struct {
	blockNumber uint64
	values      []*big.Int
}

func (a *aggregator) AggregateAccountData(ctx context.Context, account common.Address) (*domain.AccountRecord, error) {
	calls, err := a.balanceCalls(account)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrAggregation, account.Hex(), err)
	}

	balances, err := a.submit(ctx, phaseBalances, calls)
	if err != nil {
		return nil, fmt.Errorf("%w: %s balances: %w", domain.ErrAggregation, account.Hex(), err)
	}

	gmxMaxVestable := balances.values[idxGMXMaxVestable]
	glpMaxVestable := balances.values[idxGLPMaxVestable]

	calls, err = a.vestingCalls(account, gmxMaxVestable, glpMaxVestable)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrAggregation, account.Hex(), err)
	}

	vesting, err := a.submit(ctx, phaseVesting, calls)
	if err != nil {
		return nil, fmt.Errorf("%w: %s vesting: %w", domain.ErrAggregation, account.Hex(), err)
	}

	v := balances.values
	staked := new(big.Int).Add(v[idxGMXStaked], v[idxEsGMXStaked])

	record := &domain.AccountRecord{
		Account:         account,
		GMXInWallet:     v[idxGMXInWallet],
		GMXStaked:       v[idxGMXStaked],
		EsGMXInWallet:   v[idxEsGMXInWallet],
		EsGMXStaked:     v[idxEsGMXStaked],
		GLPInWallet:     v[idxGLPInWallet],
		GLPStaked:       new(big.Int).Set(v[idxGLPInWallet]),
		MPInWallet:      v[idxMPInWallet],
		MPStaked:        new(big.Int).Sub(v[idxTotalStaked], staked),
		EsGMXFromGMX:    gmxMaxVestable,
		GMXNeededToVest: vesting.values[0],
		EsGMXFromGLP:    glpMaxVestable,
		GLPNeededToVest: vesting.values[1],
		Phase1Block:     balances.blockNumber,
		Phase2Block:     vesting.blockNumber,
	}

	logger.DebugCtx(ctx, "Aggregated account data",
		zap.String("account", account.Hex()),
		zap.Uint64("phase1_block", record.Phase1Block),
		zap.Uint64("phase2_block", record.Phase2Block))

	return record, nil
}

// balanceCalls builds the first batch; its order fixes the idx* positions
func (a *aggregator) balanceCalls(account common.Address) ([]pendingCall, error) {
	c := a.contracts
	specs := []struct {
		contract abi.ABI
		target   common.Address
		method   string
		args     []interface{}
	}{
		{tokenABI, c.GMX, methodBalanceOf, []interface{}{account}},
		{trackerABI, c.StakedGMXTracker, methodDepositBalances, []interface{}{account, c.GMX}},
		{tokenABI, c.EsGMX, methodBalanceOf, []interface{}{account}},
		{trackerABI, c.StakedGMXTracker, methodDepositBalances, []interface{}{account, c.EsGMX}},
		{trackerABI, c.BonusGMXTracker, methodClaimable, []interface{}{account}},
		{trackerABI, c.FeeGMXTracker, methodStakedAmounts, []interface{}{account}},
		{tokenABI, c.GLP, methodBalanceOf, []interface{}{account}},
		{vesterABI, c.GMXVester, methodGetMaxVestableAmount, []interface{}{account}},
		{vesterABI, c.GLPVester, methodGetMaxVestableAmount, []interface{}{account}},
	}

	calls := make([]pendingCall, 0, phase1Size)
	for _, s := range specs {
		mc, err := call(s.contract, s.target, s.method, s.args...)
		if err != nil {
			return nil, err
		}
		calls = append(calls, pendingCall{contract: s.contract, method: s.method, call: mc})
	}
	return calls, nil
}

// vestingCalls builds the second batch from the raw max vestable amounts
func (a *aggregator) vestingCalls(account common.Address, gmxMaxVestable, glpMaxVestable *big.Int) ([]pendingCall, error) {
	gmxPair, err := call(vesterABI, a.contracts.GMXVester, methodGetPairAmount, account, gmxMaxVestable)
	if err != nil {
		return nil, err
	}
	glpPair, err := call(vesterABI, a.contracts.GLPVester, methodGetPairAmount, account, glpMaxVestable)
	if err != nil {
		return nil, err
	}

	return []pendingCall{
		{contract: vesterABI, method: methodGetPairAmount, call: gmxPair},
		{contract: vesterABI, method: methodGetPairAmount, call: glpPair},
	}, nil
}

// submit sends one batch under the retry policy. Decoding happens inside the
// retried operation so a malformed response is retried like a failed call.
func (a *aggregator) submit(ctx context.Context, phase string, calls []pendingCall) (*decodedBatch, error) {
	batch := make([]multicall.Call, len(calls))
	for i, c := range calls {
		batch[i] = c.call
	}

	return retry.Do(ctx, a.retrier, "multicall_"+phase, func(ctx context.Context) (*decodedBatch, error) {
		timer := prometheus.NewTimer(metrics.MulticallBatchDuration.WithLabelValues(phase))
		res, err := a.multicaller.Aggregate(ctx, batch)
		timer.ObserveDuration()
		if err != nil {
			return nil, err
		}
		if len(res.ReturnData) != len(calls) {
			return nil, fmt.Errorf("got %d results for %d calls", len(res.ReturnData), len(calls))
		}

		values := make([]*big.Int, len(calls))
		for i, c := range calls {
			v, err := decodeUint256(c.contract, c.method, res.ReturnData[i])
			if err != nil {
				return nil, fmt.Errorf("call %d: %w", i, err)
			}
			values[i] = v
		}

		return &decodedBatch{blockNumber: res.BlockNumber, values: values}, nil
	})
}
