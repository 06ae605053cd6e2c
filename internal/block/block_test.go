package block_test

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/gmx-exporter/internal/block"
	"github.com/feral-file/gmx-exporter/internal/domain"
	"github.com/feral-file/gmx-exporter/internal/logger"
	"github.com/feral-file/gmx-exporter/internal/mocks"
)

func TestMain(m *testing.M) {
	// Initialize logger for tests
	err := logger.Initialize(logger.Config{
		Debug: false,
	})
	if err != nil {
		panic(err)
	}

	code := m.Run()
	os.Exit(code)
}

func TestPartition_DeploymentToLatest(t *testing.T) {
	ranges, err := block.Partition(100, 25000, 10000)

	require.NoError(t, err)
	assert.Equal(t, []block.Range{
		{Start: 100, End: 10100},
		{Start: 10101, End: 20101},
		{Start: 20102, End: 25000},
	}, ranges)
}

func TestPartition_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		start uint64
		end   uint64
		limit uint64
	}{
		{name: "start after end", start: 10, end: 9, limit: 5},
		{name: "zero limit", start: 0, end: 100, limit: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ranges, err := block.Partition(tt.start, tt.end, tt.limit)
			assert.Nil(t, ranges)
			assert.True(t, errors.Is(err, domain.ErrInvalidRange))
		})
	}
}

func TestPartition_EdgeCases(t *testing.T) {
	tests := []struct {
		name     string
		start    uint64
		end      uint64
		limit    uint64
		expected []block.Range
	}{
		{
			name:     "single block",
			start:    42,
			end:      42,
			limit:    10,
			expected: []block.Range{{Start: 42, End: 42}},
		},
		{
			name:     "exactly one limit wide",
			start:    0,
			end:      10,
			limit:    10,
			expected: []block.Range{{Start: 0, End: 10}},
		},
		{
			name:     "one block past the limit",
			start:    0,
			end:      11,
			limit:    10,
			expected: []block.Range{{Start: 0, End: 10}, {Start: 11, End: 11}},
		},
		{
			name:     "limit of one",
			start:    5,
			end:      8,
			limit:    1,
			expected: []block.Range{{Start: 5, End: 6}, {Start: 7, End: 8}},
		},
		{
			name:     "huge limit",
			start:    1,
			end:      1_000_000,
			limit:    ^uint64(0),
			expected: []block.Range{{Start: 1, End: 1_000_000}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ranges, err := block.Partition(tt.start, tt.end, tt.limit)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ranges)
		})
	}
}

func TestPartition_CoversIntervalExactlyOnce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		start := uint64(rng.Intn(5000))
		end := start + uint64(rng.Intn(5000))
		limit := uint64(rng.Intn(700) + 1)

		ranges, err := block.Partition(start, end, limit)
		require.NoError(t, err)
		require.NotEmpty(t, ranges)

		assert.Equal(t, start, ranges[0].Start)
		assert.Equal(t, end, ranges[len(ranges)-1].End)

		var covered uint64
		for j, r := range ranges {
			assert.LessOrEqual(t, r.Start, r.End)
			assert.LessOrEqual(t, r.End-r.Start, limit)
			if j > 0 {
				assert.Equal(t, ranges[j-1].End+1, r.Start, "ranges must be contiguous")
			}
			covered += r.Len()
		}
		assert.Equal(t, end-start+1, covered)
	}
}

func TestBisect(t *testing.T) {
	left, right, ok := block.Bisect(block.Range{Start: 10, End: 20})
	require.True(t, ok)
	assert.Equal(t, block.Range{Start: 10, End: 15}, left)
	assert.Equal(t, block.Range{Start: 16, End: 20}, right)

	left, right, ok = block.Bisect(block.Range{Start: 7, End: 8})
	require.True(t, ok)
	assert.Equal(t, block.Range{Start: 7, End: 7}, left)
	assert.Equal(t, block.Range{Start: 8, End: 8}, right)

	_, _, ok = block.Bisect(block.Range{Start: 9, End: 9})
	assert.False(t, ok)
}

func TestScanInterval(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	fetcher := mocks.NewMockBlockFetcher(ctrl)

	fetcher.EXPECT().FetchLatestBlock(ctx).Return(uint64(25000), nil)
	r, err := block.ScanInterval(ctx, fetcher, 100)
	require.NoError(t, err)
	assert.Equal(t, block.Range{Start: 100, End: 25000}, r)

	fetcher.EXPECT().FetchLatestBlock(ctx).Return(uint64(50), nil)
	_, err = block.ScanInterval(ctx, fetcher, 100)
	assert.True(t, errors.Is(err, domain.ErrInvalidRange))

	fetcher.EXPECT().FetchLatestBlock(ctx).Return(uint64(0), errors.New("connection refused"))
	_, err = block.ScanInterval(ctx, fetcher, 100)
	assert.ErrorContains(t, err, "connection refused")
}
