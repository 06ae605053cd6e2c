package gmx

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/feral-file/gmx-exporter/internal/multicall"
)

const (
	tokenABIJSON   = `[{"constant":true,"inputs":[{"name":"_account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"}]`
	trackerABIJSON = `[{"inputs":[{"internalType":"address","name":"_account","type":"address"},{"internalType":"address","name":"_depositToken","type":"address"}],"name":"depositBalances","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},{"inputs":[{"internalType":"address","name":"_account","type":"address"}],"name":"claimable","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},{"inputs":[{"internalType":"address","name":"_account","type":"address"}],"name":"stakedAmounts","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"}]`
	vesterABIJSON  = `[{"inputs":[{"internalType":"address","name":"_account","type":"address"}],"name":"getMaxVestableAmount","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},{"inputs":[{"internalType":"address","name":"_account","type":"address"},{"internalType":"uint256","name":"_esAmount","type":"uint256"}],"name":"getPairAmount","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"}]`
)

const (
	methodBalanceOf            = "balanceOf"
	methodDepositBalances      = "depositBalances"
	methodClaimable            = "claimable"
	methodStakedAmounts        = "stakedAmounts"
	methodGetMaxVestableAmount = "getMaxVestableAmount"
	methodGetPairAmount        = "getPairAmount"
)

var (
	tokenABI   = mustParseABI(tokenABIJSON)
	trackerABI = mustParseABI(trackerABIJSON)
	vesterABI  = mustParseABI(vesterABIJSON)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("invalid contract abi: %v", err))
	}
	return parsed
}

// Contracts holds the protocol contracts queried for every account
type Contracts struct {
	GMX   common.Address
	EsGMX common.Address
	// GLP is the token whose balance is reported as GLP (fee+staked GLP)
	GLP              common.Address
	StakedGMXTracker common.Address
	FeeGMXTracker    common.Address
	BonusGMXTracker  common.Address
	GMXVester        common.Address
	GLPVester        common.Address
}

// call packs a method call against target
func call(contract abi.ABI, target common.Address, method string, args ...interface{}) (multicall.Call, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return multicall.Call{}, fmt.Errorf("failed to pack %s: %w", method, err)
	}
	return multicall.Call{Target: target, CallData: data}, nil
}

// decodeUint256 unpacks a single uint256 return value
func decodeUint256(contract abi.ABI, method string, data []byte) (*big.Int, error) {
	out, err := contract.Unpack(method, data)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("failed to unpack %s: unexpected %d outputs", method, len(out))
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("failed to unpack %s: unexpected type %T", method, out[0])
	}
	return v, nil
}
