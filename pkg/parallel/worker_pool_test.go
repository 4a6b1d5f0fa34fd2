package parallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForEachProcessesAll(t *testing.T) {
	items := make([]int, 100)
	for i := range items {
		items[i] = i
	}

	var sum atomic.Int64
	err := ForEach(context.Background(), items, DefaultPoolConfig(), func(_ context.Context, item int) error {
		sum.Add(int64(item))
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(4950), sum.Load())
}

func TestForEachReturnsFirstError(t *testing.T) {
	items := []int{1, 2, 3, 4}
	wantErr := errors.New("boom")

	err := ForEach(context.Background(), items, PoolConfig{MaxWorkers: 2}, func(_ context.Context, item int) error {
		if item == 3 {
			return wantErr
		}
		return nil
	})

	assert.Equal(t, wantErr, err)
}

func TestChunkProcessorCoversAllItems(t *testing.T) {
	items := make([]int, 1000)
	for i := range items {
		items[i] = 1
	}

	p := NewChunkProcessor[int, int](PoolConfig{MaxWorkers: 4})
	total := p.ProcessChunks(
		context.Background(),
		items,
		func(_ context.Context, chunk []int, _ int) int {
			s := 0
			for _, v := range chunk {
				s += v
			}
			return s
		},
		func(results []int) int {
			s := 0
			for _, v := range results {
				s += v
			}
			return s
		},
	)

	assert.Equal(t, 1000, total)
}

func TestRaceFirstWinnerWins(t *testing.T) {
	result, found := Race(context.Background(), PoolConfig{MaxWorkers: 4}, func(ctx context.Context, workerID int) (int, bool) {
		if workerID == 2 {
			return 42, true
		}
		<-ctx.Done() // losers block until the winner cancels
		return 0, false
	})

	assert.True(t, found)
	assert.Equal(t, 42, result)
}

func TestRaceAllFail(t *testing.T) {
	result, found := Race(context.Background(), PoolConfig{MaxWorkers: 3}, func(_ context.Context, _ int) (string, bool) {
		return "", false
	})

	assert.False(t, found)
	assert.Equal(t, "", result)
}
