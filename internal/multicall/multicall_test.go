package multicall_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/gmx-exporter/internal/domain"
	"github.com/feral-file/gmx-exporter/internal/mocks"
	"github.com/feral-file/gmx-exporter/internal/multicall"
)

var (
	multicallAddress = common.HexToAddress(domain.MULTICALL3_ADDRESS)
	target           = common.HexToAddress("0xfc5A1A6EB076a2C7aD06eD22C90d7E710E35ad0a")
)

func packResponse(t *testing.T, blockNumber int64, results []multicall.Result) []byte {
	t.Helper()

	raw, err := multicall.ABI.Methods["tryBlockAndAggregate"].Outputs.Pack(
		big.NewInt(blockNumber), [32]byte{0x01}, results)
	require.NoError(t, err)
	return raw
}

func TestAggregate_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	caller := mocks.NewMockCaller(ctrl)
	m := multicall.NewMulticaller(multicallAddress, caller)

	calls := []multicall.Call{
		{Target: target, CallData: []byte{0x70, 0xa0, 0x82, 0x31}},
		{Target: target, CallData: []byte{0x18, 0x16, 0x0d, 0xdd}},
	}

	caller.EXPECT().CallContract(gomock.Any(), multicallAddress, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ common.Address, data []byte) ([]byte, error) {
			method, err := multicall.ABI.MethodById(data[:4])
			require.NoError(t, err)
			assert.Equal(t, "tryBlockAndAggregate", method.Name)

			args, err := method.Inputs.Unpack(data[4:])
			require.NoError(t, err)
			assert.Equal(t, false, args[0])

			return packResponse(t, 1234, []multicall.Result{
				{Success: true, ReturnData: []byte{0xaa}},
				{Success: true, ReturnData: []byte{0xbb}},
			}), nil
		})

	res, err := m.Aggregate(context.Background(), calls)
	require.NoError(t, err)
	assert.Equal(t, uint64(1234), res.BlockNumber)
	assert.Equal(t, [][]byte{{0xaa}, {0xbb}}, res.ReturnData)
}

func TestAggregate_FailedInnerCall(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	caller := mocks.NewMockCaller(ctrl)
	m := multicall.NewMulticaller(multicallAddress, caller)

	caller.EXPECT().CallContract(gomock.Any(), multicallAddress, gomock.Any()).Return(
		packResponse(t, 1, []multicall.Result{
			{Success: true, ReturnData: []byte{0x01}},
			{Success: false},
		}), nil)

	res, err := m.Aggregate(context.Background(), []multicall.Call{{Target: target}, {Target: target}})
	assert.ErrorIs(t, err, domain.ErrCallFailed)
	assert.Nil(t, res)
}

func TestAggregate_SubmissionError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	caller := mocks.NewMockCaller(ctrl)
	m := multicall.NewMulticaller(multicallAddress, caller)

	rpcErr := errors.New("execution reverted")
	caller.EXPECT().CallContract(gomock.Any(), multicallAddress, gomock.Any()).Return(nil, rpcErr)

	_, err := m.Aggregate(context.Background(), []multicall.Call{{Target: target}})
	assert.ErrorIs(t, err, rpcErr)
}

func TestAggregate_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := multicall.NewMulticaller(multicallAddress, mocks.NewMockCaller(ctrl))

	res, err := m.Aggregate(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.ReturnData)
}

func TestDecode(t *testing.T) {
	t.Run("garbage", func(t *testing.T) {
		_, err := multicall.Decode([]byte{0x01, 0x02}, 1)
		assert.Error(t, err)
	})

	t.Run("result count mismatch", func(t *testing.T) {
		raw := packResponse(t, 5, []multicall.Result{{Success: true}})
		_, err := multicall.Decode(raw, 2)
		assert.Error(t, err)
	})
}
