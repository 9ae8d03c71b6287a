package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostLimiter_Disabled(t *testing.T) {
	l := NewHostLimiter(0)
	for i := 0; i < 10; i++ {
		require.NoError(t, l.Wait(context.Background(), "example.com"))
	}
	assert.Equal(t, 0, l.Hosts())

	var nilLimiter *HostLimiter
	assert.NoError(t, nilLimiter.Wait(context.Background(), "example.com"))
}

func TestHostLimiter_PerHostBuckets(t *testing.T) {
	l := NewHostLimiter(1)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, l.Wait(ctx, "a.example.com"))
	require.NoError(t, l.Wait(ctx, "B.example.com"))
	require.NoError(t, l.Wait(ctx, "c.example.com"))
	assert.Less(t, time.Since(start), 500*time.Millisecond, "first request per host is immediate")
	assert.Equal(t, 3, l.Hosts())
}

func TestHostLimiter_ContextCancelled(t *testing.T) {
	l := NewHostLimiter(0.01)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, l.Wait(ctx, "example.com"))
	assert.Error(t, l.Wait(ctx, "example.com"))
}

func TestHostLimiter_SetRate(t *testing.T) {
	l := NewHostLimiter(0.01)
	ctx := context.Background()
	require.NoError(t, l.Wait(ctx, "example.com"))

	l.SetRate(1000)
	waitCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	assert.NoError(t, l.Wait(waitCtx, "example.com"))
}
