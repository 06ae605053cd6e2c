package holders_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/gmx-exporter/internal/domain"
	"github.com/feral-file/gmx-exporter/internal/holders"
	"github.com/feral-file/gmx-exporter/internal/mocks"
	"github.com/feral-file/gmx-exporter/internal/retry"
)

func newClassifier(ctrl *gomock.Controller, client *mocks.MockEthereumClient) *holders.Classifier {
	clock := newClock(ctrl)
	return holders.NewClassifier(client, retry.New(policy, clock), clock, holders.WorkerConfig{PoolSize: 4})
}

func TestClassify(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mocks.NewMockEthereumClient(ctrl)
	c := newClassifier(ctrl, client)
	ctx := context.Background()

	client.EXPECT().CodeAt(gomock.Any(), addr(1)).Return(nil, nil)
	class, err := c.Classify(ctx, addr(1))
	require.NoError(t, err)
	assert.Equal(t, domain.ClassificationEOA, class)

	client.EXPECT().CodeAt(gomock.Any(), addr(2)).Return([]byte{0x60, 0x80}, nil)
	class, err = c.Classify(ctx, addr(2))
	require.NoError(t, err)
	assert.Equal(t, domain.ClassificationContract, class)

	client.EXPECT().CodeAt(gomock.Any(), addr(3)).Return(nil, fmt.Errorf("%w: timeout", domain.ErrTransientRPC)).Times(policy.MaxAttempts)
	_, err = c.Classify(ctx, addr(3))
	assert.ErrorIs(t, err, domain.ErrClassification)
	assert.ErrorIs(t, err, domain.ErrTransientRPC)
}

func TestFilterEOAs(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mocks.NewMockEthereumClient(ctrl)
	c := newClassifier(ctrl, client)

	var candidates []common.Address
	for i := int64(1); i <= 12; i++ {
		candidates = append(candidates, addr(i))
	}

	client.EXPECT().CodeAt(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, a common.Address) ([]byte, error) {
			n := a.Big().Int64()
			switch {
			case n == 5:
				return nil, fmt.Errorf("%w: reset", domain.ErrTransientRPC)
			case n%3 == 0:
				return []byte{0x01}, nil
			default:
				return nil, nil
			}
		}).AnyTimes()

	eoas, summary := c.FilterEOAs(context.Background(), candidates)

	assert.Equal(t, []common.Address{addr(1), addr(2), addr(4), addr(7), addr(8), addr(10), addr(11)}, eoas)
	assert.Equal(t, 12, summary.Candidates)
	assert.Equal(t, 7, summary.EOAs)
	assert.Equal(t, 4, summary.Contracts)
	assert.Equal(t, 1, summary.Failed)
}

func TestFilterEOAs_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	eoas, summary := newClassifier(ctrl, mocks.NewMockEthereumClient(ctrl)).FilterEOAs(context.Background(), nil)
	assert.Empty(t, eoas)
	assert.Zero(t, summary.Candidates)
}
