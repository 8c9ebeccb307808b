// Package scheduler replays throttled pings once their ready time has passed.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/mihdan/recrawler/internal/config"
	"github.com/mihdan/recrawler/internal/dispatcher"
	repo "github.com/mihdan/recrawler/internal/domain/repository"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Sweeper periodically drains the throttle backlog and re-sends every due
// ping through the dispatcher. Replays bypass the regular delay-window gate
// since the park time already covered it.
type Sweeper struct {
	backlog    repo.ThrottleBacklog
	dispatcher *dispatcher.Dispatcher
	interval   time.Duration
	cron       *cron.Cron
	logger     zerolog.Logger
}

// NewSweeper creates a sweeper with the configured cadence. A zero interval
// disables sweeping; Start then does nothing.
func NewSweeper(
	cfg *config.Config,
	backlog repo.ThrottleBacklog,
	d *dispatcher.Dispatcher,
	logger *zerolog.Logger,
) *Sweeper {
	return &Sweeper{
		backlog:    backlog,
		dispatcher: d,
		interval:   cfg.Dispatch.SweepInterval,
		logger:     logger.With().Str("component", "throttle_sweeper").Logger(),
	}
}

// Start schedules the sweep loop. The given context bounds every sweep run.
func (s *Sweeper) Start(ctx context.Context) error {
	if s.interval <= 0 {
		s.logger.Info().Msg("sweep interval is zero, throttle sweeper disabled")
		return nil
	}

	s.cron = cron.New()
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, func() { s.Sweep(ctx) }); err != nil {
		return fmt.Errorf("schedule throttle sweep: %w", err)
	}

	s.cron.Start()
	s.logger.Info().Dur("interval", s.interval).Msg("throttle sweeper started")
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("throttle sweeper stopped")
}

// Sweep takes every due ping out of the backlog and replays it. Pings parked
// again by a renewed 429 get a fresh ready time and wait for a later sweep.
func (s *Sweeper) Sweep(ctx context.Context) {
	due, err := s.backlog.TakeDue(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to take due pings from backlog")
		return
	}
	if len(due) == 0 {
		return
	}

	s.logger.Info().Int("count", len(due)).Msg("replaying throttled pings")
	for _, ping := range due {
		if ctx.Err() != nil {
			return
		}
		event := ping.Event
		s.dispatcher.DispatchTo(ctx, &event, ping.Slug)
	}
}
