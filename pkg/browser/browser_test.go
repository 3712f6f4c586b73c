package browser

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	id     int
	closed atomic.Bool
}

func (f *fakeSession) Render(_ context.Context, url string) (string, error) {
	return "<html><body>" + url + "</body></html>", nil
}

func (f *fakeSession) Close() { f.closed.Store(true) }

func fakeLauncher(launched *atomic.Int32) func(context.Context, Options) (Session, error) {
	return func(context.Context, Options) (Session, error) {
		n := launched.Add(1)
		return &fakeSession{id: int(n)}, nil
	}
}

func TestPool_ReusesReleasedSession(t *testing.T) {
	var launched atomic.Int32
	p := NewPool(WithLauncher(fakeLauncher(&launched)))

	s1, err := p.Acquire(context.Background())
	require.NoError(t, err)
	p.Release(s1)

	s2, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Same(t, s1, s2)
	assert.Equal(t, int32(1), launched.Load())
	p.Release(s2)
}

func TestPool_BlocksWhenExhausted(t *testing.T) {
	var launched atomic.Int32
	p := NewPool(WithSize(1), WithLauncher(fakeLauncher(&launched)))

	s1, err := p.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.Acquire(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	p.Release(s1)
}

func TestPool_DistinctSessionsPerWorker(t *testing.T) {
	var launched atomic.Int32
	p := NewPool(WithSize(2), WithLauncher(fakeLauncher(&launched)))

	s1, err := p.Acquire(context.Background())
	require.NoError(t, err)
	s2, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, s1, s2)
	assert.Equal(t, int32(2), launched.Load())

	p.Release(s1)
	p.Release(s2)
}

func TestPool_LaunchFailureFreesSlot(t *testing.T) {
	var calls atomic.Int32
	p := NewPool(WithSize(1), WithLauncher(func(context.Context, Options) (Session, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("chrome not found")
		}
		return &fakeSession{}, nil
	}))

	_, err := p.Acquire(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "launch")

	s, err := p.Acquire(context.Background())
	require.NoError(t, err)
	p.Release(s)
}

func TestPool_CloseClosesAll(t *testing.T) {
	var launched atomic.Int32
	p := NewPool(WithSize(2), WithLauncher(fakeLauncher(&launched)))

	s1, _ := p.Acquire(context.Background())
	s2, _ := p.Acquire(context.Background())
	p.Release(s1)
	p.Release(s2)
	p.Close()

	assert.True(t, s1.(*fakeSession).closed.Load())
	assert.True(t, s2.(*fakeSession).closed.Load())
}

func TestPool_ReleaseNil(t *testing.T) {
	p := NewPool()
	assert.NotPanics(t, func() { p.Release(nil) })
}

func TestNewPool_Defaults(t *testing.T) {
	p := NewPool(WithOptions(Options{Headless: false, Wait: time.Second}))
	assert.Equal(t, 1, p.size)
	assert.False(t, p.opts.Headless)
	assert.Equal(t, time.Second, p.opts.Wait)
}
