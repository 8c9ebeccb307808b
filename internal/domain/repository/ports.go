package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mihdan/recrawler/internal/domain/model"
)

// EventRepository defines the contract for change-event persistence.
type EventRepository interface {
	// Save persists a new change event.
	Save(ctx context.Context, e *model.ChangeEvent) (*model.ChangeEvent, error)

	// GetByID retrieves an event by its unique ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.ChangeEvent, error)
}

// ListLogsParams narrows a log listing.
type ListLogsParams struct {
	// SearchEngine filters by provider slug when non-empty.
	SearchEngine model.Slug
	Limit        int
	Offset       int
}

// LogRepository is the append-only sink for dispatch results. Appends from
// concurrent dispatches are independent inserts; records are never mutated.
type LogRepository interface {
	// Append persists one dispatch result.
	Append(ctx context.Context, r *model.DispatchResult) error

	// List returns log records, newest first.
	List(ctx context.Context, params ListLogsParams) ([]*model.DispatchResult, error)
}

// EventQueue defines the contract for handing change events to the worker.
// This provides an abstraction over a system like RabbitMQ.
type EventQueue interface {
	// Publish enqueues an event for asynchronous dispatch.
	Publish(ctx context.Context, e *model.ChangeEvent) error
}

// RateLimiter gates repeat notifications for the same (url, provider) pair.
type RateLimiter interface {
	// ShouldNotify reports whether the pair is outside its delay window.
	ShouldNotify(ctx context.Context, url string, slug model.Slug, now time.Time) (bool, error)

	// Record stores the attempt time for the pair, regardless of outcome.
	Record(ctx context.Context, url string, slug model.Slug, now time.Time) error
}

// ThrottledPing is an (event, provider) pair parked after a 429 until the
// provider is worth trying again.
type ThrottledPing struct {
	Event   model.ChangeEvent
	Slug    model.Slug
	ReadyAt time.Time
}

// ThrottleBacklog holds throttled pings between sweeps.
type ThrottleBacklog interface {
	// Park stores a throttled ping until its ready time.
	Park(ctx context.Context, p ThrottledPing) error

	// TakeDue removes and returns every ping whose ready time has passed.
	TakeDue(ctx context.Context, now time.Time) ([]ThrottledPing, error)
}
