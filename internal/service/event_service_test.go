package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mihdan/recrawler/internal/domain/model"
	repo "github.com/mihdan/recrawler/internal/domain/repository"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEventRepo struct {
	mu      sync.Mutex
	saved   []*model.ChangeEvent
	saveErr error
}

func (r *stubEventRepo) Save(_ context.Context, e *model.ChangeEvent) (*model.ChangeEvent, error) {
	if r.saveErr != nil {
		return nil, r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, e)
	return e, nil
}

func (r *stubEventRepo) GetByID(_ context.Context, id uuid.UUID) (*model.ChangeEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.saved {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, repo.ErrNotFound
}

type stubQueue struct {
	mu         sync.Mutex
	published  []*model.ChangeEvent
	publishErr error
}

func (q *stubQueue) Publish(_ context.Context, e *model.ChangeEvent) error {
	if q.publishErr != nil {
		return q.publishErr
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.published = append(q.published, e)
	return nil
}

type stubLogRepo struct {
	records []*model.DispatchResult
	listErr error
	got     repo.ListLogsParams
}

func (l *stubLogRepo) Append(_ context.Context, r *model.DispatchResult) error {
	l.records = append(l.records, r)
	return nil
}

func (l *stubLogRepo) List(_ context.Context, params repo.ListLogsParams) ([]*model.DispatchResult, error) {
	l.got = params
	if l.listErr != nil {
		return nil, l.listErr
	}
	return l.records, nil
}

func newService(eventRepo *stubEventRepo, queue *stubQueue, logs *stubLogRepo) *EventService {
	log := zerolog.Nop()
	return NewEventService(eventRepo, queue, logs, &log)
}

func TestEventService_CreateEvent(t *testing.T) {
	eventRepo := &stubEventRepo{}
	queue := &stubQueue{}
	s := newService(eventRepo, queue, &stubLogRepo{})

	occurred := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	event, err := s.CreateEvent(context.Background(), "https://example.com/post/1", model.ActionCreated, occurred)
	require.NoError(t, err)

	require.Len(t, eventRepo.saved, 1)
	require.Len(t, queue.published, 1)
	assert.Equal(t, event.ID, queue.published[0].ID)
	assert.Equal(t, occurred, event.OccurredAt)
}

func TestEventService_CreateEvent_DefaultsOccurredAt(t *testing.T) {
	s := newService(&stubEventRepo{}, &stubQueue{}, &stubLogRepo{})

	event, err := s.CreateEvent(context.Background(), "https://example.com/post/1", model.ActionUpdated, time.Time{})
	require.NoError(t, err)
	assert.False(t, event.OccurredAt.IsZero())
}

func TestEventService_CreateEvent_Invalid(t *testing.T) {
	eventRepo := &stubEventRepo{}
	queue := &stubQueue{}
	s := newService(eventRepo, queue, &stubLogRepo{})

	_, err := s.CreateEvent(context.Background(), "/relative", model.ActionCreated, time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvalidEvent)
	assert.Empty(t, eventRepo.saved)
	assert.Empty(t, queue.published)
}

func TestEventService_CreateEvent_SaveFails(t *testing.T) {
	queue := &stubQueue{}
	s := newService(&stubEventRepo{saveErr: errors.New("db down")}, queue, &stubLogRepo{})

	_, err := s.CreateEvent(context.Background(), "https://example.com/post/1", model.ActionCreated, time.Now())
	require.Error(t, err)
	assert.Empty(t, queue.published, "nothing may be enqueued when the save failed")
}

func TestEventService_CreateEvent_PublishFails(t *testing.T) {
	s := newService(&stubEventRepo{}, &stubQueue{publishErr: errors.New("broker down")}, &stubLogRepo{})

	_, err := s.CreateEvent(context.Background(), "https://example.com/post/1", model.ActionCreated, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "enqueue")
}

func TestEventService_CreateBatch_PartialFailure(t *testing.T) {
	eventRepo := &stubEventRepo{}
	queue := &stubQueue{}
	s := newService(eventRepo, queue, &stubLogRepo{})

	urls := []string{
		"https://example.com/post/1",
		"/relative/path",
		"https://example.com/post/2",
	}
	events, errs := s.CreateBatch(context.Background(), urls, model.ActionUpdated, time.Now())

	assert.Len(t, events, 2)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "/relative/path")
	assert.Len(t, queue.published, 2)
}

func TestEventService_GetEventByID(t *testing.T) {
	eventRepo := &stubEventRepo{}
	s := newService(eventRepo, &stubQueue{}, &stubLogRepo{})

	created, err := s.CreateEvent(context.Background(), "https://example.com/post/1", model.ActionCreated, time.Now())
	require.NoError(t, err)

	got, err := s.GetEventByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.URL, got.URL)

	_, err = s.GetEventByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestEventService_ListLogs_ClampsPaging(t *testing.T) {
	logs := &stubLogRepo{}
	s := newService(&stubEventRepo{}, &stubQueue{}, logs)

	_, err := s.ListLogs(context.Background(), repo.ListLogsParams{Limit: 0, Offset: -5})
	require.NoError(t, err)
	assert.Equal(t, 100, logs.got.Limit)
	assert.Equal(t, 0, logs.got.Offset)

	_, err = s.ListLogs(context.Background(), repo.ListLogsParams{Limit: 10_000})
	require.NoError(t, err)
	assert.Equal(t, 100, logs.got.Limit)

	_, err = s.ListLogs(context.Background(), repo.ListLogsParams{Limit: 50, Offset: 10, SearchEngine: model.SlugIndexNow})
	require.NoError(t, err)
	assert.Equal(t, 50, logs.got.Limit)
	assert.Equal(t, 10, logs.got.Offset)
	assert.Equal(t, model.SlugIndexNow, logs.got.SearchEngine)
}
