// Package notifier performs the outbound HTTP calls built by the provider
// adapters, applying timeout, retry with backoff and jitter, global pacing,
// and a per-provider circuit breaker.
package notifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/mihdan/recrawler/internal/config"
	"github.com/mihdan/recrawler/internal/domain/model"
	"github.com/mihdan/recrawler/internal/providers"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	maxResponseBody = 32 << 10

	jitterFraction = 0.1
)

// RetryPolicy controls the attempt discipline of one Send call.
type RetryPolicy struct {
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int
	// Timeout bounds a single attempt (connect + read).
	Timeout time.Duration
	// BackoffBase is the delay before the first retry; it doubles per retry.
	BackoffBase time.Duration
	// BackoffCap limits backoff growth.
	BackoffCap time.Duration
}

// DefaultRetryPolicy mirrors the configured dispatch settings.
func DefaultRetryPolicy(cfg config.DispatchConfig) RetryPolicy {
	return RetryPolicy{
		MaxRetries:  cfg.MaxRetries,
		Timeout:     cfg.Timeout,
		BackoffBase: cfg.BackoffBase,
		BackoffCap:  cfg.BackoffCap,
	}
}

// HTTPNotifier sends built provider requests. It retries transient failures
// (network errors, timeouts, 5xx) and never retries client errors; a 429 is
// surfaced as a throttled outcome, not retried. Exactly one outcome is
// produced per Send, describing the final attempt.
type HTTPNotifier struct {
	client *http.Client
	policy RetryPolicy
	pacer  *rate.Limiter
	logger zerolog.Logger

	mu       sync.Mutex
	breakers map[model.Slug]*gobreaker.CircuitBreaker
}

// ErrCircuitOpen is reported inside the outcome message when a provider's
// breaker rejects the call before any attempt is made.
var ErrCircuitOpen = errors.New("provider circuit open")

// NewHTTPNotifier creates a notifier from the dispatch configuration.
func NewHTTPNotifier(cfg *config.Config, logger *zerolog.Logger) *HTTPNotifier {
	var pacer *rate.Limiter
	if cfg.Dispatch.RequestsPerSecond > 0 {
		pacer = rate.NewLimiter(rate.Limit(cfg.Dispatch.RequestsPerSecond), 1)
	}

	return &HTTPNotifier{
		// Per-attempt deadlines come from the context, not the client.
		client:   &http.Client{},
		policy:   DefaultRetryPolicy(cfg.Dispatch),
		pacer:    pacer,
		logger:   logger.With().Str("component", "http_notifier").Logger(),
		breakers: make(map[model.Slug]*gobreaker.CircuitBreaker),
	}
}

// Send executes the request with the notifier's retry policy and returns the
// classified outcome of the final attempt. The returned error is non-nil only
// when the context was cancelled; an abandoned send has no outcome and must
// not be logged.
func (n *HTTPNotifier) Send(ctx context.Context, slug model.Slug, req *providers.Request, parser providers.ResponseParser) (model.Outcome, error) {
	log := n.logger.With().Str("provider", string(slug)).Str("url", req.URL).Logger()

	if n.pacer != nil {
		if err := n.pacer.Wait(ctx); err != nil {
			return model.Outcome{}, fmt.Errorf("pacing interrupted: %w", err)
		}
	}

	breaker := n.breaker(slug)

	var outcome model.Outcome
	for attempt := 0; attempt <= n.policy.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return model.Outcome{}, err
		}

		outcome = n.attempt(ctx, breaker, req, parser)

		if !retryable(outcome) {
			if attempt > 0 {
				log.Info().Int("attempt", attempt+1).Str("kind", string(outcome.Kind)).Msg("send settled after retry")
			}
			return outcome, nil
		}

		if attempt == n.policy.MaxRetries {
			break
		}

		delay := n.backoff(attempt)
		log.Warn().
			Int("attempt", attempt+1).
			Str("kind", string(outcome.Kind)).
			Dur("backoff", delay).
			Msg("transient failure, retrying")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return model.Outcome{}, ctx.Err()
		}
	}

	log.Error().Int("attempts", n.policy.MaxRetries+1).Str("kind", string(outcome.Kind)).Msg("retries exhausted")
	return outcome, nil
}

// attempt performs one HTTP exchange through the provider's breaker.
func (n *HTTPNotifier) attempt(ctx context.Context, breaker *gobreaker.CircuitBreaker, req *providers.Request, parser providers.ResponseParser) model.Outcome {
	result, err := breaker.Execute(func() (interface{}, error) {
		resp, doErr := n.do(ctx, req)
		if doErr != nil {
			return nil, doErr
		}
		if resp.StatusCode >= 500 {
			// Let the breaker count persistent provider outages.
			return resp, &serverError{resp: resp}
		}
		return resp, nil
	})

	if err != nil {
		var srvErr *serverError
		switch {
		case errors.As(err, &srvErr):
			return parser.ParseResponse(srvErr.resp)
		case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
			return model.Outcome{
				Kind:       model.OutcomeNetworkError,
				StatusCode: model.StatusNetworkFailure,
				Message:    ErrCircuitOpen.Error(),
			}
		case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
			return model.Outcome{
				Kind:       model.OutcomeTimeout,
				StatusCode: model.StatusTimeoutSentinel,
				Message:    fmt.Sprintf("attempt timed out after %s", n.policy.Timeout),
			}
		default:
			return model.Outcome{
				Kind:       model.OutcomeNetworkError,
				StatusCode: model.StatusNetworkFailure,
				Message:    err.Error(),
			}
		}
	}

	return parser.ParseResponse(result.(*providers.Response))
}

// do runs a single attempt under its own deadline and drains the body.
func (n *HTTPNotifier) do(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, n.policy.Timeout)
	defer cancel()

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(attemptCtx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("create http request: %w", err)
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	resp, err := n.client.Do(httpReq)
	if err != nil {
		if attemptCtx.Err() != nil && ctx.Err() == nil {
			return nil, context.DeadlineExceeded
		}
		return nil, fmt.Errorf("execute http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))

	return &providers.Response{
		StatusCode: resp.StatusCode,
		Body:       respBody,
		Header:     resp.Header,
	}, nil
}

// backoff computes the exponential delay with jitter for the given attempt.
func (n *HTTPNotifier) backoff(attempt int) time.Duration {
	delay := n.policy.BackoffBase << uint(attempt)
	if delay > n.policy.BackoffCap || delay <= 0 {
		delay = n.policy.BackoffCap
	}

	jitter := time.Duration(rand.Int63n(int64(float64(delay)*jitterFraction) + 1))
	return delay + jitter
}

func (n *HTTPNotifier) breaker(slug model.Slug) *gobreaker.CircuitBreaker {
	n.mu.Lock()
	defer n.mu.Unlock()

	if cb, ok := n.breakers[slug]; ok {
		return cb
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    string(slug),
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			n.logger.Warn().
				Str("provider", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})
	n.breakers[slug] = cb
	return cb
}

func retryable(o model.Outcome) bool {
	return o.Kind == model.OutcomeNetworkError || o.Kind == model.OutcomeTimeout
}

// serverError carries a 5xx response through the breaker as a failure while
// keeping the body for classification.
type serverError struct {
	resp *providers.Response
}

func (e *serverError) Error() string {
	return fmt.Sprintf("server error %d", e.resp.StatusCode)
}
