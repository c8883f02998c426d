package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSweeper struct {
	calls  atomic.Int32
	maxAge time.Duration
	err    error
}

func (f *fakeSweeper) FailStalePendingCalls(ctx context.Context, maxAge time.Duration) (int, error) {
	f.calls.Add(1)
	f.maxAge = maxAge
	return 3, f.err
}

func TestPendingCallSweeper_Defaults(t *testing.T) {
	s := NewPendingCallSweeper(&fakeSweeper{}, 0, 0, nil)
	assert.Equal(t, "@every 15m0s", s.Schedule())
	assert.Equal(t, 2*time.Hour, s.maxAge)
}

func TestPendingCallSweeper_RunOnce(t *testing.T) {
	f := &fakeSweeper{}
	s := NewPendingCallSweeper(f, time.Minute, 30*time.Minute, nil)

	s.RunOnce()
	assert.Equal(t, int32(1), f.calls.Load())
	assert.Equal(t, 30*time.Minute, f.maxAge)

	f.err = errors.New("boom")
	s.RunOnce()
	assert.Equal(t, int32(2), f.calls.Load())
}

func TestPendingCallSweeper_StartStop(t *testing.T) {
	f := &fakeSweeper{}
	s := NewPendingCallSweeper(f, time.Hour, time.Hour, nil)

	require.NoError(t, s.Start())
	s.Stop()
	assert.Equal(t, int32(0), f.calls.Load())
}
