package ratelimiter

import (
	"context"
	"testing"
	"time"

	"github.com/mihdan/recrawler/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRateLimiter_SuppressesInsideWindow(t *testing.T) {
	l := NewMemoryRateLimiter(5 * time.Minute)
	ctx := context.Background()
	now := time.Now()

	ok, err := l.ShouldNotify(ctx, "https://example.com/a", model.SlugIndexNow, now)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, l.Record(ctx, "https://example.com/a", model.SlugIndexNow, now))

	ok, err = l.ShouldNotify(ctx, "https://example.com/a", model.SlugIndexNow, now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = l.ShouldNotify(ctx, "https://example.com/a", model.SlugIndexNow, now.Add(5*time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryRateLimiter_KeysAreIndependent(t *testing.T) {
	l := NewMemoryRateLimiter(5 * time.Minute)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, l.Record(ctx, "https://example.com/a", model.SlugIndexNow, now))

	// Same URL, different provider.
	ok, err := l.ShouldNotify(ctx, "https://example.com/a", model.SlugBingWebmaster, now)
	require.NoError(t, err)
	assert.True(t, ok)

	// Same provider, different URL.
	ok, err = l.ShouldNotify(ctx, "https://example.com/b", model.SlugIndexNow, now)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryRateLimiter_ZeroWindowDisablesSuppression(t *testing.T) {
	l := NewMemoryRateLimiter(0)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, l.Record(ctx, "https://example.com/a", model.SlugIndexNow, now))

	ok, err := l.ShouldNotify(ctx, "https://example.com/a", model.SlugIndexNow, now)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryRateLimiter_EvictsExpiredEntries(t *testing.T) {
	l := NewMemoryRateLimiter(time.Minute)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, l.Record(ctx, "https://example.com/a", model.SlugIndexNow, now))

	// A record after the window triggers the sweep of the stale entry.
	require.NoError(t, l.Record(ctx, "https://example.com/b", model.SlugIndexNow, now.Add(2*time.Minute)))

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Len(t, l.seen, 1)
}
