package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLocker_AcquireRelease(t *testing.T) {
	l := NewMemoryLocker()
	ctx := context.Background()
	key := Keys.ProfileReconcile()

	ok, err := l.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire must fail while held")

	released, err := l.Release(ctx, key)
	require.NoError(t, err)
	assert.True(t, released)

	released, err = l.Release(ctx, key)
	require.NoError(t, err)
	assert.False(t, released)
}

func TestMemoryLocker_Expiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewMemoryLocker()
	l.now = func() time.Time { return now }
	ctx := context.Background()

	ok, err := l.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	now = now.Add(time.Minute)

	ok, err = l.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "an expired lock can be taken again")
}

func TestMemoryLocker_AcquireWithRetry(t *testing.T) {
	l := NewMemoryLocker()
	ctx := context.Background()

	ok, err := l.Acquire(ctx, "k", 30*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = l.AcquireWithRetry(ctx, "k", time.Minute, 10, 10*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.AcquireWithRetry(ctx, "k", time.Minute, 1, time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryLocker_CanceledContext(t *testing.T) {
	l := NewMemoryLocker()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Acquire(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}
