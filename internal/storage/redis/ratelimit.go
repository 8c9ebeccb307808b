package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mihdan/recrawler/internal/domain/model"
	repo "github.com/mihdan/recrawler/internal/domain/repository"
	"github.com/mihdan/recrawler/pkg/keybuilder"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Ensure RateLimiter implements the interface
var _ repo.RateLimiter = (*RateLimiter)(nil)

// RateLimiter stores last-attempt markers in Redis so the delay window is
// shared across all worker instances. Each marker expires on its own after
// the window, so ShouldNotify reduces to an existence check.
type RateLimiter struct {
	client *redis.Client
	window time.Duration
	logger zerolog.Logger
}

// NewRateLimiter creates a Redis-backed limiter with the given delay window.
// A zero window disables suppression entirely.
func NewRateLimiter(client *redis.Client, window time.Duration, logger *zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		client: client,
		window: window,
		logger: logger.With().Str("component", "redis_ratelimiter").Logger(),
	}
}

// ShouldNotify reports whether the pair is outside its delay window.
func (l *RateLimiter) ShouldNotify(ctx context.Context, url string, slug model.Slug, _ time.Time) (bool, error) {
	if l.window <= 0 {
		return true, nil
	}

	err := l.client.Get(ctx, keybuilder.RateLimitKey(url, slug)).Err()
	if errors.Is(err, redis.Nil) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis: ratelimit get: %w", err)
	}
	return false, nil
}

// Record stores the attempt marker; Redis expires it after the window.
func (l *RateLimiter) Record(ctx context.Context, url string, slug model.Slug, now time.Time) error {
	if l.window <= 0 {
		return nil
	}

	key := keybuilder.RateLimitKey(url, slug)
	if err := l.client.Set(ctx, key, now.UTC().Format(time.RFC3339Nano), l.window).Err(); err != nil {
		return fmt.Errorf("redis: ratelimit set: %w", err)
	}
	return nil
}
