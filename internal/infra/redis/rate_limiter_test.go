//go:build !integration

package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCounter struct {
	RedisClient
	counts  map[string]int64
	windows map[string]time.Duration
	err     error
}

func (f *fakeCounter) IncrWindow(_ context.Context, key string, window time.Duration) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.counts[key]++
	if _, ok := f.windows[key]; !ok {
		f.windows[key] = window
	}
	return f.counts[key], nil
}

func TestRateLimiter_Allow(t *testing.T) {
	ctx := context.Background()
	fc := &fakeCounter{counts: map[string]int64{}, windows: map[string]time.Duration{}}
	rl := NewRateLimiter(fc, 2, time.Minute)
	key := ClientRouteKey("10.0.0.1", "apply")

	for i := 0; i < 2; i++ {
		ok, err := rl.Allow(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := rl.Allow(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok, "third request in window must be rejected")
	assert.Equal(t, time.Minute, fc.windows[key])

	other, err := rl.Allow(ctx, ClientRouteKey("10.0.0.2", "apply"))
	require.NoError(t, err)
	assert.True(t, other)
}

func TestRateLimiter_DisabledAndErrors(t *testing.T) {
	ctx := context.Background()
	fc := &fakeCounter{err: errors.New("down")}

	ok, err := NewRateLimiter(fc, 0, time.Minute).Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = NewRateLimiter(fc, 5, time.Minute).Allow(ctx, "k")
	assert.Error(t, err)
}
