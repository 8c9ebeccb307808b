// Package ratelimiter suppresses repeat pings for the same (url, provider)
// pair inside the configured delay window. A single edit session can fire
// several change events for one URL in quick succession; without this gate
// every save would burn provider quota.
package ratelimiter

import (
	"context"
	"sync"
	"time"

	"github.com/mihdan/recrawler/internal/domain/model"
	repo "github.com/mihdan/recrawler/internal/domain/repository"
	"github.com/mihdan/recrawler/pkg/keybuilder"
)

// Ensure MemoryRateLimiter implements the interface
var _ repo.RateLimiter = (*MemoryRateLimiter)(nil)

// MemoryRateLimiter keeps last-attempt timestamps in a process-local map.
// Suitable for tests and single-node deployments; multi-worker setups use
// the Redis-backed limiter so the window is shared.
type MemoryRateLimiter struct {
	window time.Duration

	mu    sync.Mutex
	seen  map[string]time.Time
	sweep time.Time
}

// NewMemoryRateLimiter creates a limiter with the given delay window.
// A zero window disables suppression entirely.
func NewMemoryRateLimiter(window time.Duration) *MemoryRateLimiter {
	return &MemoryRateLimiter{
		window: window,
		seen:   make(map[string]time.Time),
		sweep:  time.Now(),
	}
}

// ShouldNotify reports whether the pair is outside its delay window.
func (l *MemoryRateLimiter) ShouldNotify(_ context.Context, url string, slug model.Slug, now time.Time) (bool, error) {
	if l.window <= 0 {
		return true, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	last, ok := l.seen[keybuilder.RateLimitKey(url, slug)]
	if !ok {
		return true, nil
	}
	return now.Sub(last) >= l.window, nil
}

// Record stores the attempt time and opportunistically evicts expired entries.
func (l *MemoryRateLimiter) Record(_ context.Context, url string, slug model.Slug, now time.Time) error {
	if l.window <= 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.seen[keybuilder.RateLimitKey(url, slug)] = now

	if now.Sub(l.sweep) >= l.window {
		for key, last := range l.seen {
			if now.Sub(last) >= l.window {
				delete(l.seen, key)
			}
		}
		l.sweep = now
	}

	return nil
}
