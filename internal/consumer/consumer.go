// Package consumer pulls change events off the queue and feeds them to the
// dispatcher through a pool of workers.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mihdan/recrawler/internal/config"
	"github.com/mihdan/recrawler/internal/dispatcher"
	"github.com/mihdan/recrawler/internal/domain/model"
	"github.com/mihdan/recrawler/internal/storage/rabbitmq"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const defaultWorkerCount = 5

// Consumer listens to a RabbitMQ queue and processes messages using a pool of workers.
type Consumer struct {
	cfg         *config.Config
	logger      zerolog.Logger
	conn        *amqp.Connection // Raw connection to create channels for each worker.
	dispatcher  *dispatcher.Dispatcher
	workerCount int
}

// New creates a new instance of Consumer.
func New(
	cfg *config.Config,
	logger *zerolog.Logger,
	conn *amqp.Connection,
	d *dispatcher.Dispatcher,
) *Consumer {
	workerCount := cfg.Dispatch.WorkerCount
	if workerCount <= 0 {
		workerCount = defaultWorkerCount
	}

	return &Consumer{
		cfg:         cfg,
		logger:      logger.With().Str("component", "consumer").Logger(),
		conn:        conn,
		dispatcher:  d,
		workerCount: workerCount,
	}
}

// Run starts the worker pool in the background and returns a channel that
// closes once every worker has drained, so shutdown can wait for in-flight
// messages to be acked or requeued.
func (c *Consumer) Run(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Start(ctx)
	}()
	return done
}

// Start launches the worker pool to process messages from the queue.
// This is a blocking method that will run until the context is cancelled.
func (c *Consumer) Start(ctx context.Context) {
	c.logger.Info().Int("count", c.workerCount).Msg("Starting worker pool")
	var wg sync.WaitGroup

	for i := 0; i < c.workerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			c.runWorker(ctx, workerID)
		}(i + 1)
	}

	wg.Wait()
	c.logger.Info().Msg("Consumer stopped")
}

// runWorker contains the main logic for a single worker goroutine.
func (c *Consumer) runWorker(ctx context.Context, workerID int) {
	logger := c.logger.With().Int("worker_id", workerID).Logger()
	if ctx.Err() != nil {
		return
	}
	logger.Info().Msg("Worker started")

	ch, err := c.conn.Channel()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open channel for worker")
		return
	}
	defer ch.Close()

	if err := ch.Qos(1, 0, false); err != nil {
		logger.Error().Err(err).Msg("Failed to set QoS")
		return
	}

	msgs, err := ch.Consume(
		rabbitmq.EventsQueue,
		fmt.Sprintf("worker-%d", workerID), // A unique consumer tag.
		false,                              // autoAck: false. We will manually acknowledge messages.
		false,                              // exclusive
		false,                              // noLocal
		false,                              // noWait
		nil,                                // args
	)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to register a consumer")
		return
	}

	logger.Info().Msg("Worker is waiting for messages")

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Worker stopping due to context cancellation")
			return
		case msg, ok := <-msgs:
			if !ok {
				logger.Warn().Msg("Message channel closed by RabbitMQ, worker stopping")
				return
			}
			c.handleMessage(ctx, msg, logger)
		}
	}
}

// handleMessage processes a single message from the queue.
func (c *Consumer) handleMessage(ctx context.Context, msg amqp.Delivery, logger zerolog.Logger) {
	var event model.ChangeEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		logger.Error().Err(err).Msg("Failed to unmarshal message, rejecting")
		_ = msg.Nack(false, false)
		return
	}

	log := logger.With().Stringer("event_id", event.ID).Str("url", event.URL).Logger()
	log.Info().Str("action", string(event.Action)).Msg("Processing change event")

	if err := c.dispatcher.Dispatch(ctx, &event); err != nil {
		// Validation failure; a requeue would fail the same way forever.
		log.Error().Err(err).Msg("Invalid change event, rejecting")
		_ = msg.Nack(false, false)
		return
	}

	if ctx.Err() != nil {
		// Shutdown interrupted the fan-out; requeue so another worker
		// finishes it after restart.
		log.Warn().Msg("Dispatch interrupted by shutdown, requeueing")
		_ = msg.Nack(false, true)
		return
	}

	_ = msg.Ack(false)
}
