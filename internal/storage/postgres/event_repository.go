package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mihdan/recrawler/internal/domain/model"
	repo "github.com/mihdan/recrawler/internal/domain/repository"
	"github.com/rs/zerolog"
)

// Ensure EventRepository implements the interface
var _ repo.EventRepository = (*EventRepository)(nil)

// EventRepository implements the domain.repository.EventRepository interface
// using PostgreSQL as a backend.
type EventRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewEventRepository creates a new instance of the EventRepository
func NewEventRepository(pool *pgxpool.Pool, logger *zerolog.Logger) *EventRepository {
	return &EventRepository{
		pool:   pool,
		logger: logger.With().Str("layer", "postgres_repository").Logger(),
	}
}

// Save persists a new change event and returns the stored object.
func (r *EventRepository) Save(ctx context.Context, e *model.ChangeEvent) (*model.ChangeEvent, error) {
	const query = `
		INSERT INTO recrawler_events (id, url, action, occurred_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, url, action, occurred_at, created_at`

	var saved model.ChangeEvent
	err := r.pool.QueryRow(ctx, query, e.ID, e.URL, string(e.Action), e.OccurredAt, e.CreatedAt).
		Scan(&saved.ID, &saved.URL, &saved.Action, &saved.OccurredAt, &saved.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, repo.ErrDuplicateRecord
		}
		r.logger.Err(err).Msg("cannot create change event")
		return nil, fmt.Errorf("postgres: CreateEvent failed: %w", err)
	}

	return &saved, nil
}

// GetByID retrieves a change event by its unique ID.
func (r *EventRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ChangeEvent, error) {
	const query = `
		SELECT id, url, action, occurred_at, created_at
		FROM recrawler_events
		WHERE id = $1`

	var e model.ChangeEvent
	err := r.pool.QueryRow(ctx, query, id).
		Scan(&e.ID, &e.URL, &e.Action, &e.OccurredAt, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Warn().Stringer("id", id).Msg("change event not found by id")
			return nil, repo.ErrNotFound
		}
		r.logger.Err(err).Str("method", "GetByID").Msg("cannot get change event")
		return nil, fmt.Errorf("postgres: GetEventByID failed: %w", err)
	}

	return &e, nil
}
