package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Classification tells whether an address holds bytecode
type Classification string

const (
	ClassificationEOA      Classification = "eoa"
	ClassificationContract Classification = "contract"
)

// AccountRecord holds the balances and staking metrics of one account.
// Amounts are raw 18-decimal chain integers; use ScaleAmount to render them.
type AccountRecord struct {
	Account common.Address

	GMXInWallet     *big.Int
	GMXStaked       *big.Int
	EsGMXInWallet   *big.Int
	EsGMXStaked     *big.Int
	GLPInWallet     *big.Int
	GLPStaked       *big.Int
	MPInWallet      *big.Int
	MPStaked        *big.Int
	EsGMXFromGMX    *big.Int // max vestable esGMX earned from GMX/esGMX/MPs
	GMXNeededToVest *big.Int
	EsGMXFromGLP    *big.Int // max vestable esGMX earned from GLP
	GLPNeededToVest *big.Int

	// Block heights the two multicall batches executed at
	Phase1Block uint64
	Phase2Block uint64
}

// Amounts returns the twelve amounts in export column order
func (r *AccountRecord) Amounts() []*big.Int {
	return []*big.Int{
		r.GMXInWallet,
		r.GMXStaked,
		r.EsGMXInWallet,
		r.EsGMXStaked,
		r.GLPInWallet,
		r.GLPStaked,
		r.MPInWallet,
		r.MPStaked,
		r.EsGMXFromGMX,
		r.GMXNeededToVest,
		r.EsGMXFromGLP,
		r.GLPNeededToVest,
	}
}

// ScaleAmount converts a raw 18-decimal integer into decimal units
func ScaleAmount(v *big.Int) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, -TOKEN_DECIMALS)
}
