// Package dispatcher turns one change event into pings across every enabled
// provider: resolve, rate-limit gate, adapter build, send, log.
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mihdan/recrawler/internal/auth"
	"github.com/mihdan/recrawler/internal/config"
	"github.com/mihdan/recrawler/internal/domain/model"
	repo "github.com/mihdan/recrawler/internal/domain/repository"
	"github.com/mihdan/recrawler/internal/providers"
	"github.com/mihdan/recrawler/internal/registry"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// Sender is the outbound HTTP boundary of the dispatcher.
type Sender interface {
	Send(ctx context.Context, slug model.Slug, req *providers.Request, parser providers.ResponseParser) (model.Outcome, error)
}

// Dispatcher fans a change event out to the enabled providers. Per-provider
// sends are independent: one provider's failure never aborts another's
// attempt, and every outcome surfaces only through the dispatch log.
type Dispatcher struct {
	registry *registry.ProviderRegistry
	adapters map[model.Slug]providers.Adapter
	limiter  repo.RateLimiter
	sender   Sender
	logs     repo.LogRepository
	backlog  repo.ThrottleBacklog

	window   time.Duration
	siteHost string
	sem      *semaphore.Weighted
	keys     *keyedMutex
	logger   zerolog.Logger
}

// NewDispatcher wires the dispatcher from the registry and a Google token
// source for the Indexing API adapter. The backlog may be nil; throttled
// pings are then dropped after logging.
func NewDispatcher(
	cfg *config.Config,
	reg *registry.ProviderRegistry,
	limiter repo.RateLimiter,
	sender Sender,
	logs repo.LogRepository,
	backlog repo.ThrottleBacklog,
	tokens auth.TokenSource,
	logger *zerolog.Logger,
) (*Dispatcher, error) {
	adapters := make(map[model.Slug]providers.Adapter)

	for _, slug := range providers.IndexNowSlugs() {
		adapter, err := providers.NewIndexNowAdapter(slug)
		if err != nil {
			return nil, err
		}
		adapters[slug] = adapter
	}
	adapters[model.SlugYandexWebmaster] = providers.NewYandexWebmasterAdapter()
	adapters[model.SlugBingWebmaster] = providers.NewBingWebmasterAdapter()
	adapters[model.SlugGoogleWebmaster] = providers.NewGoogleWebmasterAdapter(tokens)

	concurrency := cfg.Dispatch.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	return &Dispatcher{
		registry: reg,
		adapters: adapters,
		limiter:  limiter,
		sender:   sender,
		logs:     logs,
		backlog:  backlog,
		window:   cfg.Dispatch.DelayWindow,
		siteHost: cfg.Site.Host,
		sem:      semaphore.NewWeighted(concurrency),
		keys:     newKeyedMutex(),
		logger:   logger.With().Str("component", "dispatcher").Logger(),
	}, nil
}

// Dispatch fans the event out to all enabled providers and blocks until
// every provider settled or the context was cancelled. The returned error
// covers only event validation; provider failures are log entries, never
// errors, so the caller's save path is never blocked by a notification
// problem.
func (d *Dispatcher) Dispatch(ctx context.Context, e *model.ChangeEvent) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("refusing dispatch: %w", err)
	}

	enabled := d.registry.ListEnabled()
	if len(enabled) == 0 {
		d.logger.Debug().Str("url", e.URL).Msg("no providers enabled, nothing to do")
		return nil
	}

	var wg sync.WaitGroup
	for _, providerCfg := range enabled {
		if err := d.sem.Acquire(ctx, 1); err != nil {
			// Shutting down; in-flight providers finish, the rest are abandoned.
			break
		}

		wg.Add(1)
		go func(cfg model.ProviderConfig) {
			defer wg.Done()
			defer d.sem.Release(1)
			d.dispatchProvider(ctx, e, cfg)
		}(providerCfg)
	}
	wg.Wait()

	return nil
}

// DispatchBatch runs a sweep of events sequentially; the per-event fan-out
// still runs concurrently under the shared semaphore.
func (d *Dispatcher) DispatchBatch(ctx context.Context, events []*model.ChangeEvent) {
	for _, e := range events {
		if ctx.Err() != nil {
			return
		}
		if err := d.Dispatch(ctx, e); err != nil {
			d.logger.Warn().Err(err).Str("url", e.URL).Msg("skipping invalid event in batch")
		}
	}
}

// DispatchTo sends one event to a single provider, bypassing the rate-limit
// gate. The throttle sweeper uses it to replay parked pings whose ready time
// has passed.
func (d *Dispatcher) DispatchTo(ctx context.Context, e *model.ChangeEvent, slug model.Slug) {
	cfg, err := d.registry.Get(slug)
	if err != nil || !cfg.Enabled {
		d.logger.Debug().Str("provider", string(slug)).Msg("provider no longer enabled, dropping replay")
		return
	}

	// A replay must not overlap a regular dispatch for the same pair.
	key := lockKey(cfg.Slug, e.URL)
	d.keys.lock(key)
	defer d.keys.unlock(key)

	d.send(ctx, e, cfg)
}

// VerifyKeyFile fetches the IndexNow key location the way the engine's
// crawler will, and records the result as an internal site row. A provider
// rejects every ping while this file is unreachable, so the check runs once
// at worker startup.
func (d *Dispatcher) VerifyKeyFile(ctx context.Context) {
	for _, cfg := range d.registry.ListEnabled() {
		if cfg.Kind != model.KindIndexNow {
			continue
		}
		if !cfg.HasCredentials(model.CredentialAPIKey) {
			return
		}

		checker, ok := d.adapters[cfg.Slug].(providers.KeyChecker)
		if !ok {
			return
		}

		req, err := checker.BuildKeyCheckRequest(d.siteHost, cfg)
		if err != nil {
			d.logger.Warn().Err(err).Msg("cannot build key verification request")
			return
		}

		parser := providers.NewKeyCheckParser(cfg.Credential(model.CredentialAPIKey))
		outcome, err := d.sender.Send(ctx, cfg.Slug, req, parser)
		if err != nil {
			return
		}

		result := &model.DispatchResult{
			Level:        outcome.Level(),
			SearchEngine: model.SlugSite,
			Direction:    model.DirectionInternal,
			StatusCode:   outcome.StatusCode,
			Message:      fmt.Sprintf("%s: %s", req.URL, outcome.Message),
			CreatedAt:    time.Now().UTC(),
		}
		if err := d.logs.Append(ctx, result); err != nil {
			d.logger.Error().Err(err).Msg("failed to append key verification result")
		}
		return
	}
}

// dispatchProvider runs the gate → adapt → send → log pipeline for one provider.
func (d *Dispatcher) dispatchProvider(ctx context.Context, e *model.ChangeEvent, cfg model.ProviderConfig) {
	key := lockKey(cfg.Slug, e.URL)
	d.keys.lock(key)
	defer d.keys.unlock(key)

	log := d.logger.With().Str("provider", string(cfg.Slug)).Str("url", e.URL).Logger()

	now := time.Now().UTC()
	ok, err := d.limiter.ShouldNotify(ctx, e.URL, cfg.Slug, now)
	if err != nil {
		// Fail open: a broken limiter store must not silence notifications.
		log.Error().Err(err).Msg("rate limiter check failed, proceeding")
		ok = true
	}
	if !ok {
		// Local suppression is not a failure; no log entry is written.
		log.Debug().Msg("inside delay window, suppressed")
		return
	}

	d.send(ctx, e, cfg)
}

// send performs adapt → send → record → log for one provider.
func (d *Dispatcher) send(ctx context.Context, e *model.ChangeEvent, cfg model.ProviderConfig) {
	log := d.logger.With().Str("provider", string(cfg.Slug)).Str("url", e.URL).Logger()

	adapter, ok := d.adapters[cfg.Slug]
	if !ok {
		d.appendLog(ctx, e, cfg.Slug, model.Outcome{
			Kind:       model.OutcomeConfiguration,
			StatusCode: model.StatusConfigurationError,
			Message:    "no adapter for provider",
		})
		return
	}

	req, err := adapter.BuildRequest(ctx, e, cfg)
	if err != nil {
		log.Warn().Err(err).Msg("cannot build provider request")
		d.appendLog(ctx, e, cfg.Slug, model.Outcome{
			Kind:       model.OutcomeConfiguration,
			StatusCode: model.StatusConfigurationError,
			Message:    err.Error(),
		})
		return
	}

	outcome, err := d.sender.Send(ctx, cfg.Slug, req, adapter)
	if err != nil {
		// Abandoned mid-flight (shutdown); no partial log entry.
		log.Warn().Err(err).Msg("send abandoned")
		return
	}

	if err := d.limiter.Record(ctx, e.URL, cfg.Slug, time.Now().UTC()); err != nil {
		log.Error().Err(err).Msg("failed to record rate limit entry")
	}

	if outcome.Kind == model.OutcomeThrottled {
		d.park(ctx, e, cfg.Slug, outcome)
	}

	d.appendLog(ctx, e, cfg.Slug, outcome)
}

// park shelves a throttled ping until the provider is worth trying again.
// The replay never happens before the regular delay window has elapsed.
func (d *Dispatcher) park(ctx context.Context, e *model.ChangeEvent, slug model.Slug, outcome model.Outcome) {
	if d.backlog == nil {
		return
	}

	wait := outcome.RetryAfter
	if wait < d.window {
		wait = d.window
	}

	ping := repo.ThrottledPing{
		Event:   *e,
		Slug:    slug,
		ReadyAt: time.Now().UTC().Add(wait),
	}
	if err := d.backlog.Park(ctx, ping); err != nil {
		d.logger.Error().Err(err).Str("provider", string(slug)).Msg("failed to park throttled ping")
	}
}

func lockKey(slug model.Slug, url string) string {
	return string(slug) + "|" + url
}

func (d *Dispatcher) appendLog(ctx context.Context, e *model.ChangeEvent, slug model.Slug, outcome model.Outcome) {
	result := model.NewDispatchResult(slug, e.URL, outcome)
	if err := d.logs.Append(ctx, result); err != nil {
		d.logger.Error().Err(err).
			Str("provider", string(slug)).
			Str("url", e.URL).
			Msg("failed to append dispatch result")
	}
}
