package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mihdan/recrawler/internal/config"
	"github.com/mihdan/recrawler/internal/domain/model"
	repo "github.com/mihdan/recrawler/internal/domain/repository"
	"github.com/mihdan/recrawler/internal/service"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEventRepo struct {
	saved map[uuid.UUID]*model.ChangeEvent
}

func (r *fakeEventRepo) Save(_ context.Context, e *model.ChangeEvent) (*model.ChangeEvent, error) {
	if r.saved == nil {
		r.saved = make(map[uuid.UUID]*model.ChangeEvent)
	}
	r.saved[e.ID] = e
	return e, nil
}

func (r *fakeEventRepo) GetByID(_ context.Context, id uuid.UUID) (*model.ChangeEvent, error) {
	if e, ok := r.saved[id]; ok {
		return e, nil
	}
	return nil, repo.ErrNotFound
}

type fakeQueue struct{}

func (fakeQueue) Publish(context.Context, *model.ChangeEvent) error { return nil }

type fakeLogRepo struct {
	records []*model.DispatchResult
}

func (l *fakeLogRepo) Append(_ context.Context, r *model.DispatchResult) error {
	l.records = append(l.records, r)
	return nil
}

func (l *fakeLogRepo) List(_ context.Context, params repo.ListLogsParams) ([]*model.DispatchResult, error) {
	var out []*model.DispatchResult
	for _, r := range l.records {
		if params.SearchEngine != "" && r.SearchEngine != params.SearchEngine {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func newTestRouter(t *testing.T, logs *fakeLogRepo) (*gin.Engine, *fakeEventRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := zerolog.Nop()
	events := &fakeEventRepo{}
	svc := service.NewEventService(events, fakeQueue{}, logs, &log)

	cfg := &config.Config{}
	cfg.Providers.IndexNow.APIKey = "a1b2c3d4"

	router := gin.New()
	NewHandlers(svc, cfg, &log).RegisterRoutes(router)
	return router, events
}

func postJSON(router *gin.Engine, path string, payload any) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateEvent(t *testing.T) {
	router, _ := newTestRouter(t, &fakeLogRepo{})

	w := postJSON(router, "/api/v1/events", map[string]any{
		"url":    "https://example.com/post/1",
		"action": "created",
	})

	require.Equal(t, http.StatusAccepted, w.Code)

	var resp EventResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "https://example.com/post/1", resp.URL)
	assert.Equal(t, "created", resp.Action)
	assert.NotEqual(t, uuid.Nil, resp.ID)
}

func TestCreateEvent_BadInput(t *testing.T) {
	router, _ := newTestRouter(t, &fakeLogRepo{})

	t.Run("missing url", func(t *testing.T) {
		w := postJSON(router, "/api/v1/events", map[string]any{"action": "created"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("relative url", func(t *testing.T) {
		w := postJSON(router, "/api/v1/events", map[string]any{"url": "/post/1", "action": "created"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown action", func(t *testing.T) {
		w := postJSON(router, "/api/v1/events", map[string]any{"url": "https://example.com/p", "action": "touched"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCreateBatch(t *testing.T) {
	router, _ := newTestRouter(t, &fakeLogRepo{})

	w := postJSON(router, "/api/v1/events/batch", map[string]any{
		"urls":   []string{"https://example.com/a", "/bad", "https://example.com/b"},
		"action": "updated",
	})

	require.Equal(t, http.StatusAccepted, w.Code)

	var resp BatchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Accepted, 2)
	assert.Len(t, resp.Rejected, 1)
}

func TestCreateBatch_AllRejected(t *testing.T) {
	router, _ := newTestRouter(t, &fakeLogRepo{})

	w := postJSON(router, "/api/v1/events/batch", map[string]any{
		"urls":   []string{"/bad-one", "/bad-two"},
		"action": "updated",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetEventByID(t *testing.T) {
	router, events := newTestRouter(t, &fakeLogRepo{})

	created, err := model.NewChangeEvent("https://example.com/post/1", model.ActionCreated, time.Now())
	require.NoError(t, err)
	_, err = events.Save(context.Background(), created)
	require.NoError(t, err)

	t.Run("found", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/events/"+created.ID.String(), nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("not found", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/events/"+uuid.NewString(), nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("bad id", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/events/not-a-uuid", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestListLogs(t *testing.T) {
	logs := &fakeLogRepo{}
	logs.records = append(logs.records,
		model.NewDispatchResult(model.SlugIndexNow, "https://example.com/a", model.Outcome{Kind: model.OutcomeSuccess, StatusCode: 200, Message: "ok"}),
		model.NewDispatchResult(model.SlugBingWebmaster, "https://example.com/a", model.Outcome{Kind: model.OutcomeClientError, StatusCode: 403, Message: "denied"}),
	)
	router, _ := newTestRouter(t, logs)

	t.Run("all", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/logs", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var resp []LogRecordResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp, 2)
	})

	t.Run("filtered", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/logs?search_engine=index-now", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var resp []LogRecordResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp, 1)
		assert.Equal(t, "index-now", resp[0].SearchEngine)
	})
}

func TestServeKeyFile(t *testing.T) {
	router, _ := newTestRouter(t, &fakeLogRepo{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/a1b2c3d4.txt", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a1b2c3d4", w.Body.String())
}
