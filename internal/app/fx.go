package app

import (
	"context"
	"net/http"

	"github.com/mihdan/recrawler/internal/auth"
	"github.com/mihdan/recrawler/internal/config"
	"github.com/mihdan/recrawler/internal/consumer"
	deliveryHTTP "github.com/mihdan/recrawler/internal/delivery/http"
	"github.com/mihdan/recrawler/internal/dispatcher"
	repo "github.com/mihdan/recrawler/internal/domain/repository"
	"github.com/mihdan/recrawler/internal/logger"
	"github.com/mihdan/recrawler/internal/notifier"
	"github.com/mihdan/recrawler/internal/registry"
	"github.com/mihdan/recrawler/internal/scheduler"
	"github.com/mihdan/recrawler/internal/service"
	"github.com/mihdan/recrawler/internal/storage/postgres"
	"github.com/mihdan/recrawler/internal/storage/rabbitmq"
	"github.com/mihdan/recrawler/internal/storage/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// CommonModule provides dependencies that are shared between the API and Worker applications.
var CommonModule = fx.Options(
	fx.Provide(
		// Core components
		config.NewConfig,
		logger.NewLogger,

		// Storage Layer - concrete implementations
		postgres.NewPool,
		redis.NewClient,
		rabbitmq.NewConnection,
		postgres.NewEventRepository,
		postgres.NewLogRepository,
		rabbitmq.NewRabbitMQQueue,

		// Interface bindings for the service and dispatcher layers.
		func(r *postgres.EventRepository) repo.EventRepository { return r },
		func(r *postgres.LogRepository) repo.LogRepository { return r },
		func(q *rabbitmq.RabbitMQQueue) repo.EventQueue { return q },

		// Service Layer
		service.NewEventService,
	),
)

// APIModule defines the Fx module for the HTTP API application.
var APIModule = fx.Options(
	CommonModule, // Include all shared components
	fx.Provide(
		// API-specific components
		deliveryHTTP.NewHandlers,
		deliveryHTTP.NewServer,
	),

	fx.Invoke(func(server *deliveryHTTP.Server, lc fx.Lifecycle) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				go func() {
					if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						panic(err)
					}
				}()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				return server.Shutdown(ctx)
			},
		})
	}),
)

// WorkerModule defines the Fx module for the background worker application.
var WorkerModule = fx.Options(
	CommonModule, // Include all shared components
	fx.Provide(
		// Worker-specific components
		registry.NewProviderRegistry,
		auth.NewTokenSource,
		notifier.NewHTTPNotifier,
		func(n *notifier.HTTPNotifier) dispatcher.Sender { return n },

		func(client *goredis.Client, cfg *config.Config, log *zerolog.Logger) repo.RateLimiter {
			return redis.NewRateLimiter(client, cfg.Dispatch.DelayWindow, log)
		},
		func(client *goredis.Client, log *zerolog.Logger) repo.ThrottleBacklog {
			return redis.NewBacklog(client, log)
		},

		dispatcher.NewDispatcher,
		scheduler.NewSweeper,
		consumer.New,
	),
	fx.Invoke(func(c *consumer.Consumer, sweeper *scheduler.Sweeper, d *dispatcher.Dispatcher, lc fx.Lifecycle) {
		runCtx, cancel := context.WithCancel(context.Background())
		var consumerDone <-chan struct{}
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				go d.VerifyKeyFile(runCtx)
				consumerDone = c.Run(runCtx)
				return sweeper.Start(runCtx)
			},
			OnStop: func(ctx context.Context) error {
				sweeper.Stop()
				cancel()
				// Wait for in-flight messages to settle before exiting.
				select {
				case <-consumerDone:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			},
		})
	}),
)
