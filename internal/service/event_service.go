package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mihdan/recrawler/internal/domain/model"
	repo "github.com/mihdan/recrawler/internal/domain/repository"
	"github.com/rs/zerolog"
)

// EventService encapsulates the business logic for accepting change events.
// It orchestrates the repository and the queue: an event is persisted first,
// then published for asynchronous dispatch.
type EventService struct {
	repo   repo.EventRepository
	queue  repo.EventQueue
	logs   repo.LogRepository
	logger zerolog.Logger
}

func NewEventService(
	repo repo.EventRepository,
	queue repo.EventQueue,
	logs repo.LogRepository,
	logger *zerolog.Logger,
) *EventService {
	return &EventService{
		repo:   repo,
		queue:  queue,
		logs:   logs,
		logger: logger.With().Str("layer", "service").Logger(),
	}
}

// CreateEvent validates, persists and enqueues one change event.
func (s *EventService) CreateEvent(ctx context.Context, rawURL string, action model.Action, occurredAt time.Time) (*model.ChangeEvent, error) {
	s.logger.Info().Str("url", rawURL).Str("action", string(action)).Msg("creating change event")

	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	event, err := model.NewChangeEvent(rawURL, action, occurredAt)
	if err != nil {
		s.logger.Warn().Err(err).Str("url", rawURL).Msg("invalid change event")
		return nil, err
	}

	created, err := s.repo.Save(ctx, event)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to save change event")
		return nil, err
	}
	s.logger.Info().Stringer("id", created.ID).Msg("change event saved successfully")

	if err := s.queue.Publish(ctx, created); err != nil {
		s.logger.Error().Err(err).Stringer("id", created.ID).Msg("CRITICAL: failed to publish change event to queue after saving")
		return nil, fmt.Errorf("failed to enqueue change event: %w", err)
	}
	s.logger.Info().Stringer("id", created.ID).Msg("change event published to queue")

	return created, nil
}

// CreateBatch accepts several URLs sharing one action in a single call. Every
// URL is handled independently; a bad URL does not abort the rest.
func (s *EventService) CreateBatch(ctx context.Context, rawURLs []string, action model.Action, occurredAt time.Time) ([]*model.ChangeEvent, []error) {
	events := make([]*model.ChangeEvent, 0, len(rawURLs))
	var errs []error

	for _, rawURL := range rawURLs {
		event, err := s.CreateEvent(ctx, rawURL, action, occurredAt)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", rawURL, err))
			continue
		}
		events = append(events, event)
	}

	return events, errs
}

// GetEventByID retrieves a change event by its ID.
func (s *EventService) GetEventByID(ctx context.Context, id uuid.UUID) (*model.ChangeEvent, error) {
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Msgf("Failed to get change event by ID: %s", id)
		return nil, err
	}
	return event, nil
}

// ListLogs returns dispatch log records, newest first.
func (s *EventService) ListLogs(ctx context.Context, params repo.ListLogsParams) ([]*model.DispatchResult, error) {
	if params.Limit <= 0 || params.Limit > 500 {
		params.Limit = 100
	}
	if params.Offset < 0 {
		params.Offset = 0
	}

	records, err := s.logs.List(ctx, params)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list dispatch logs")
		return nil, err
	}
	return records, nil
}
