package ethereum_test

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/gmx-exporter/internal/mocks"
	ethclient "github.com/feral-file/gmx-exporter/internal/providers/ethereum"
	"github.com/feral-file/gmx-exporter/internal/ratelimit"
)

const rpcURL = "http://localhost:8545"

func TestNewPool_DialsEveryConnection(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dialer := mocks.NewMockEthClientDialer(ctrl)
	conns := []*mocks.MockEthClient{mocks.NewMockEthClient(ctrl), mocks.NewMockEthClient(ctrl), mocks.NewMockEthClient(ctrl)}
	for _, c := range conns {
		dialer.EXPECT().Dial(gomock.Any(), rpcURL).Return(c, nil)
		c.EXPECT().Close().Times(1)
	}

	pool, err := ethclient.NewPool(context.Background(), dialer, ethclient.PoolConfig{RPCURL: rpcURL, Size: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, pool.Size())

	pool.Close()
	pool.Close()
}

func TestNewPool_DialFailureClosesDialed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dialer := mocks.NewMockEthClientDialer(ctrl)
	first := mocks.NewMockEthClient(ctrl)
	first.EXPECT().Close().Times(1)

	gomock.InOrder(
		dialer.EXPECT().Dial(gomock.Any(), rpcURL).Return(first, nil),
		dialer.EXPECT().Dial(gomock.Any(), rpcURL).Return(nil, errors.New("connection refused")),
	)

	pool, err := ethclient.NewPool(context.Background(), dialer, ethclient.PoolConfig{RPCURL: rpcURL, Size: 2})
	require.Error(t, err)
	assert.Nil(t, pool)
}

func TestPool_NoConnectionSharedConcurrently(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	const size = 2
	dialer := mocks.NewMockEthClientDialer(ctrl)

	var mu sync.Mutex
	inUse := map[*mocks.MockEthClient]bool{}
	var overlap atomic.Bool

	for i := 0; i < size; i++ {
		conn := mocks.NewMockEthClient(ctrl)
		conn.EXPECT().CodeAt(gomock.Any(), gomock.Any(), nil).DoAndReturn(
			func(_ context.Context, _ common.Address, _ *big.Int) ([]byte, error) {
				mu.Lock()
				if inUse[conn] {
					overlap.Store(true)
				}
				inUse[conn] = true
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				inUse[conn] = false
				mu.Unlock()
				return nil, nil
			}).AnyTimes()
		conn.EXPECT().Close().AnyTimes()
		dialer.EXPECT().Dial(gomock.Any(), rpcURL).Return(conn, nil)
	}

	pool, err := ethclient.NewPool(context.Background(), dialer, ethclient.PoolConfig{RPCURL: rpcURL, Size: size})
	require.NoError(t, err)
	defer pool.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := pool.CodeAt(context.Background(), common.Address{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.False(t, overlap.Load())
}

func TestPool_AcquireHonoursContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dialer := mocks.NewMockEthClientDialer(ctrl)
	conn := mocks.NewMockEthClient(ctrl)
	conn.EXPECT().Close().AnyTimes()
	dialer.EXPECT().Dial(gomock.Any(), rpcURL).Return(conn, nil)

	release := make(chan struct{})
	conn.EXPECT().HeaderByNumber(gomock.Any(), nil).DoAndReturn(
		func(_ context.Context, _ *big.Int) (*types.Header, error) {
			<-release
			return nil, errors.New("unavailable")
		})

	pool, err := ethclient.NewPool(context.Background(), dialer, ethclient.PoolConfig{RPCURL: rpcURL, Size: 1})
	require.NoError(t, err)
	defer pool.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = pool.FetchLatestBlock(context.Background())
	}()

	// the only connection is held by the goroutine above
	time.Sleep(10 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = pool.FetchLatestBlock(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	<-done
}

func TestPool_WithLimiter(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dialer := mocks.NewMockEthClientDialer(ctrl)
	conn := mocks.NewMockEthClient(ctrl)
	conn.EXPECT().Close()
	conn.EXPECT().CallContract(gomock.Any(), gomock.Any(), nil).Return([]byte{0x2a}, nil)
	dialer.EXPECT().Dial(gomock.Any(), rpcURL).Return(conn, nil)

	pool, err := ethclient.NewPool(context.Background(), dialer, ethclient.PoolConfig{
		RPCURL:  rpcURL,
		Size:    1,
		Limiter: ratelimit.NewLimiter(100, 1),
	})
	require.NoError(t, err)
	defer pool.Close()

	out, err := pool.CallContract(context.Background(), common.Address{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x2a}, out)
}

func TestPool_CallTimeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dialer := mocks.NewMockEthClientDialer(ctrl)
	conn := mocks.NewMockEthClient(ctrl)
	conn.EXPECT().Close()
	dialer.EXPECT().Dial(gomock.Any(), rpcURL).Return(conn, nil)

	conn.EXPECT().CodeAt(gomock.Any(), gomock.Any(), nil).DoAndReturn(
		func(ctx context.Context, _ common.Address, _ *big.Int) ([]byte, error) {
			_, ok := ctx.Deadline()
			assert.True(t, ok)
			<-ctx.Done()
			return nil, ctx.Err()
		})

	pool, err := ethclient.NewPool(context.Background(), dialer, ethclient.PoolConfig{
		RPCURL:      rpcURL,
		Size:        1,
		CallTimeout: 5 * time.Millisecond,
	})
	require.NoError(t, err)
	defer pool.Close()

	_, err = pool.CodeAt(context.Background(), common.Address{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
