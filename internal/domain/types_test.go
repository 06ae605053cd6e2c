package domain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
)

func TestTransferEventSignature(t *testing.T) {
	expected := crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
	assert.Equal(t, expected, common.HexToHash(TRANSFER_EVENT_SIGNATURE))
}

func TestScaleAmount(t *testing.T) {
	tests := []struct {
		name     string
		raw      *big.Int
		expected string
	}{
		{name: "whole tokens", raw: new(big.Int).Mul(big.NewInt(5), big.NewInt(1e18)), expected: "5"},
		{name: "fraction", raw: big.NewInt(1500000000000000000), expected: "1.5"},
		{name: "smallest unit", raw: big.NewInt(1), expected: "0.000000000000000001"},
		{name: "zero", raw: big.NewInt(0), expected: "0"},
		{name: "negative", raw: big.NewInt(-2000000000000000000), expected: "-2"},
		{name: "nil", raw: nil, expected: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ScaleAmount(tt.raw).String())
		})
	}
}

func TestAccountRecord_AmountsOrder(t *testing.T) {
	r := &AccountRecord{}
	fields := []**big.Int{
		&r.GMXInWallet, &r.GMXStaked, &r.EsGMXInWallet, &r.EsGMXStaked,
		&r.GLPInWallet, &r.GLPStaked, &r.MPInWallet, &r.MPStaked,
		&r.EsGMXFromGMX, &r.GMXNeededToVest, &r.EsGMXFromGLP, &r.GLPNeededToVest,
	}
	for i, f := range fields {
		*f = big.NewInt(int64(i))
	}

	amounts := r.Amounts()
	assert.Len(t, amounts, 12)
	for i, a := range amounts {
		assert.Equal(t, int64(i), a.Int64())
	}
}
