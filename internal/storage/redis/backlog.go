package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	repo "github.com/mihdan/recrawler/internal/domain/repository"
	"github.com/mihdan/recrawler/pkg/keybuilder"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Ensure Backlog implements the interface
var _ repo.ThrottleBacklog = (*Backlog)(nil)

// Backlog parks throttled pings in a Redis sorted set scored by ready time,
// so TakeDue is a single range query shared by all workers.
type Backlog struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewBacklog creates a Redis-backed throttle backlog.
func NewBacklog(client *redis.Client, logger *zerolog.Logger) *Backlog {
	return &Backlog{
		client: client,
		logger: logger.With().Str("component", "redis_backlog").Logger(),
	}
}

// Park stores a throttled ping until its ready time.
func (b *Backlog) Park(ctx context.Context, p repo.ThrottledPing) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("redis: marshal throttled ping: %w", err)
	}

	member := redis.Z{
		Score:  float64(p.ReadyAt.UnixMilli()),
		Member: payload,
	}
	if err := b.client.ZAdd(ctx, keybuilder.BacklogKey(), member).Err(); err != nil {
		return fmt.Errorf("redis: park throttled ping: %w", err)
	}
	return nil
}

// TakeDue removes and returns every ping whose ready time has passed. Each
// member is popped atomically, so concurrent sweepers never replay the same
// ping twice.
func (b *Backlog) TakeDue(ctx context.Context, now time.Time) ([]repo.ThrottledPing, error) {
	key := keybuilder.BacklogKey()
	cutoff := float64(now.UnixMilli())

	var due []repo.ThrottledPing
	for {
		popped, err := b.client.ZPopMin(ctx, key, 1).Result()
		if err != nil {
			return due, fmt.Errorf("redis: pop due ping: %w", err)
		}
		if len(popped) == 0 {
			return due, nil
		}

		z := popped[0]
		if z.Score > cutoff {
			// Not due yet; put it back and stop. Another sweeper doing the
			// same re-add is harmless, ZADD of an identical member is a no-op.
			if err := b.client.ZAdd(ctx, key, z).Err(); err != nil {
				return due, fmt.Errorf("redis: restore future ping: %w", err)
			}
			return due, nil
		}

		member, ok := z.Member.(string)
		if !ok {
			b.logger.Error().Msg("dropping non-string backlog member")
			continue
		}
		var ping repo.ThrottledPing
		if err := json.Unmarshal([]byte(member), &ping); err != nil {
			// A corrupt member stays dropped; losing one parked ping beats
			// re-reading it forever.
			b.logger.Error().Err(err).Msg("dropping unreadable backlog member")
			continue
		}
		due = append(due, ping)
	}
}
