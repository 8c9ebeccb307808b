package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mihdan/recrawler/internal/auth"
	"github.com/mihdan/recrawler/internal/config"
	"github.com/mihdan/recrawler/internal/dispatcher"
	"github.com/mihdan/recrawler/internal/domain/model"
	repo "github.com/mihdan/recrawler/internal/domain/repository"
	"github.com/mihdan/recrawler/internal/providers"
	"github.com/mihdan/recrawler/internal/ratelimiter"
	"github.com/mihdan/recrawler/internal/registry"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSender struct {
	mu    sync.Mutex
	calls []model.Slug
}

func (s *countingSender) Send(_ context.Context, slug model.Slug, _ *providers.Request, _ providers.ResponseParser) (model.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, slug)
	return model.Outcome{Kind: model.OutcomeSuccess, StatusCode: 200, Message: "ok"}, nil
}

type nopLog struct{}

func (nopLog) Append(context.Context, *model.DispatchResult) error { return nil }
func (nopLog) List(context.Context, repo.ListLogsParams) ([]*model.DispatchResult, error) {
	return nil, nil
}

type stubBacklog struct {
	mu     sync.Mutex
	parked []repo.ThrottledPing
}

func (b *stubBacklog) Park(_ context.Context, p repo.ThrottledPing) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.parked = append(b.parked, p)
	return nil
}

func (b *stubBacklog) TakeDue(_ context.Context, now time.Time) ([]repo.ThrottledPing, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var due, rest []repo.ThrottledPing
	for _, p := range b.parked {
		if !p.ReadyAt.After(now) {
			due = append(due, p)
		} else {
			rest = append(rest, p)
		}
	}
	b.parked = rest
	return due, nil
}

func TestSweeper_ReplaysDuePings(t *testing.T) {
	cfg := &config.Config{
		Dispatch: config.DispatchConfig{Concurrency: 2, SweepInterval: time.Minute},
		Providers: config.ProvidersConfig{
			IndexNowProvider: "index-now",
			IndexNow:         config.IndexNowConfig{APIKey: "a1b2c3d4"},
		},
	}

	sender := &countingSender{}
	backlog := &stubBacklog{}
	log := zerolog.Nop()

	d, err := dispatcher.NewDispatcher(
		cfg,
		registry.NewProviderRegistry(cfg),
		ratelimiter.NewMemoryRateLimiter(0),
		sender,
		nopLog{},
		backlog,
		auth.NewStaticTokenSource(""),
		&log,
	)
	require.NoError(t, err)

	event, err := model.NewChangeEvent("https://example.com/post/1", model.ActionUpdated, time.Now())
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, backlog.Park(context.Background(), repo.ThrottledPing{
		Event: *event, Slug: model.SlugIndexNow, ReadyAt: now.Add(-time.Minute),
	}))
	require.NoError(t, backlog.Park(context.Background(), repo.ThrottledPing{
		Event: *event, Slug: model.SlugIndexNow, ReadyAt: now.Add(time.Hour),
	}))

	sweeper := NewSweeper(cfg, backlog, d, &log)
	sweeper.Sweep(context.Background())

	sender.mu.Lock()
	assert.Equal(t, []model.Slug{model.SlugIndexNow}, sender.calls)
	sender.mu.Unlock()

	// The future ping stays parked.
	backlog.mu.Lock()
	assert.Len(t, backlog.parked, 1)
	backlog.mu.Unlock()
}

func TestSweeper_ZeroIntervalDisablesSchedule(t *testing.T) {
	cfg := &config.Config{Dispatch: config.DispatchConfig{SweepInterval: 0}}
	log := zerolog.Nop()

	sweeper := NewSweeper(cfg, &stubBacklog{}, nil, &log)
	require.NoError(t, sweeper.Start(context.Background()))
	sweeper.Stop()
}
