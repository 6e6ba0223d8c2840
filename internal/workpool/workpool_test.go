package workpool

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSize(t *testing.T) {
	assert.Equal(t, runtime.GOMAXPROCS(0), Size(0))
	assert.Equal(t, runtime.GOMAXPROCS(0), Size(-3))
	assert.Equal(t, 4, Size(4))
}

func TestRun_AllSlotsWritten(t *testing.T) {
	out := make([]int, 100)
	err := Run(context.Background(), len(out), 8, func(_ context.Context, i int) error {
		out[i] = i * i
		return nil
	})
	require.NoError(t, err)
	for i, v := range out {
		assert.Equal(t, i*i, v)
	}
}

func TestRun_BoundedConcurrency(t *testing.T) {
	var active, peak atomic.Int32
	err := Run(context.Background(), 50, 3, func(_ context.Context, _ int) error {
		cur := active.Add(1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		runtime.Gosched()
		active.Add(-1)
		return nil
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestRun_Error(t *testing.T) {
	boom := errors.New("boom")
	err := Run(context.Background(), 10, 2, func(_ context.Context, i int) error {
		if i == 4 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	err := Run(ctx, 10, 2, func(_ context.Context, _ int) error {
		calls.Add(1)
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls.Load())

	assert.ErrorIs(t, Run(ctx, 0, 2, nil), context.Canceled)
}

func TestMap(t *testing.T) {
	out, err := Map(context.Background(), []string{"a", "bb", "ccc"}, 0, func(_ context.Context, s string) (int, error) {
		return len(s), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, out)
}
