package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mihdan/recrawler/internal/domain/model"
	repo "github.com/mihdan/recrawler/internal/domain/repository"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Ensure RabbitMQQueue implements the repository interface at compile time.
var _ repo.EventQueue = (*RabbitMQQueue)(nil)

// Constants for our RabbitMQ topology.
const (
	EventsExchange = "recrawl.exchange"

	EventsQueue = "recrawl.queue.dispatch"

	Direct = "direct"
)

// RabbitMQQueue implements the EventQueue interface. It acts as a PUBLISHER.
// It uses the low-level amqp091-go library directly for reliability.
type RabbitMQQueue struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	logger zerolog.Logger
}

// NewRabbitMQQueue creates a new instance of the RabbitMQQueue publisher.
// It receives a shared amqp.Connection to create its own channel.
func NewRabbitMQQueue(conn *amqp.Connection, logger *zerolog.Logger) (*RabbitMQQueue, error) {
	channel, err := conn.Channel()
	if err != nil {
		logger.Error().Err(err).Msg("storage: rabbitMQ: New: Failed to open a channel")
		return nil, fmt.Errorf("storage: rabbitMQ: New: Failed to open a channel: %w", err)
	}

	queue := &RabbitMQQueue{
		conn:   conn,
		ch:     channel,
		logger: logger.With().Str("component", "rabbitmq_publisher").Logger(),
	}

	if err = queue.setupTopology(); err != nil {
		queue.logger.Error().Err(err).Msg("storage: rabbitMQ: New: Failed to setup topology")
		return nil, fmt.Errorf("storage: rabbitMQ: New: Failed to setup topology: %w", err)
	}

	return queue, nil
}

// setupTopology declares the exchange and queue used for change events.
func (q *RabbitMQQueue) setupTopology() error {
	q.logger.Info().Msg("setting up rabbitmq topology")

	if err := q.ch.ExchangeDeclare(EventsExchange, Direct, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", EventsExchange, err)
	}

	if _, err := q.ch.QueueDeclare(EventsQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", EventsQueue, err)
	}

	if err := q.ch.QueueBind(EventsQueue, "", EventsExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s to exchange %s: %w", EventsQueue, EventsExchange, err)
	}

	q.logger.Info().Msg("rabbitmq topology setup successful")
	return nil
}

// Publish hands a change event to the dispatch workers.
func (q *RabbitMQQueue) Publish(ctx context.Context, e *model.ChangeEvent) error {
	body, err := json.Marshal(e)
	if err != nil {
		q.logger.Error().Err(err).Stringer("id", e.ID).Msg("failed to marshal change event")
		return fmt.Errorf("failed to marshal change event: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
	}

	return q.ch.PublishWithContext(ctx, EventsExchange, "", false, false, msg)
}

// Close gracefully shuts down the channel. The connection is managed by Fx.
func (q *RabbitMQQueue) Close() error {
	if q.ch != nil {
		return q.ch.Close()
	}
	return nil
}
