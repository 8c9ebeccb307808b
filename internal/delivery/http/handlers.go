package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mihdan/recrawler/internal/config"
	"github.com/mihdan/recrawler/internal/domain/model"
	repo "github.com/mihdan/recrawler/internal/domain/repository"
	"github.com/mihdan/recrawler/internal/service"
	"github.com/rs/zerolog"
)

type Handlers struct {
	service *service.EventService
	cfg     *config.Config
	logger  zerolog.Logger
}

// NewHandlers creates a new instance of Handlers.
func NewHandlers(service *service.EventService, cfg *config.Config, logger *zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		cfg:     cfg,
		logger:  logger.With().Str("layer", "http_handler").Logger(),
	}
}

// RegisterRoutes sets up the routing for the recrawl API.
func (h *Handlers) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.POST("/events", h.CreateEvent)
		api.POST("/events/batch", h.CreateBatch)
		api.GET("/events/:id", h.GetEventByID)
		api.GET("/logs", h.ListLogs)
	}

	// IndexNow ownership verification: the key file must be reachable at the
	// location announced in the ping payload. The route is fixed at startup
	// from the configured key.
	if key := h.cfg.Providers.IndexNow.APIKey; key != "" {
		router.GET("/"+key+".txt", h.ServeKeyFile)
	}
}

// CreateEvent handles the HTTP request for submitting a single change event.
func (h *Handlers) CreateEvent(c *gin.Context) {
	var req CreateEventRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn().Err(err).Msg("invalid request body")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	event, err := h.service.CreateEvent(c.Request.Context(), req.URL, model.Action(req.Action), req.OccurredAt)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrDuplicateRecord):
			c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
		case errors.Is(err, model.ErrInvalidEvent):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		default:
			h.logger.Error().Err(err).Msg("failed to create change event")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to create change event"})
		}
		return
	}

	c.JSON(http.StatusAccepted, toEventResponse(event))
}

// CreateBatch handles the HTTP request for submitting several URLs at once.
func (h *Handlers) CreateBatch(c *gin.Context) {
	var req CreateBatchRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn().Err(err).Msg("invalid request body")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	events, errs := h.service.CreateBatch(c.Request.Context(), req.URLs, model.Action(req.Action), req.OccurredAt)

	resp := BatchResponse{Accepted: make([]EventResponse, 0, len(events))}
	for _, event := range events {
		resp.Accepted = append(resp.Accepted, toEventResponse(event))
	}
	for _, err := range errs {
		resp.Rejected = append(resp.Rejected, err.Error())
	}

	status := http.StatusAccepted
	if len(resp.Accepted) == 0 {
		status = http.StatusBadRequest
	}
	c.JSON(status, resp)
}

// GetEventByID handles the HTTP request to retrieve a change event.
func (h *Handlers) GetEventByID(c *gin.Context) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid event ID format"})
		return
	}

	event, err := h.service.GetEventByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
			return
		}
		h.logger.Error().Err(err).Stringer("id", id).Msg("failed to get change event by id")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to retrieve change event"})
		return
	}

	c.JSON(http.StatusOK, toEventResponse(event))
}

// ListLogs handles the HTTP request to read the dispatch log.
func (h *Handlers) ListLogs(c *gin.Context) {
	var query struct {
		SearchEngine string `form:"search_engine"`
		Limit        int    `form:"limit"`
		Offset       int    `form:"offset"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	records, err := h.service.ListLogs(c.Request.Context(), repo.ListLogsParams{
		SearchEngine: model.Slug(query.SearchEngine),
		Limit:        query.Limit,
		Offset:       query.Offset,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list dispatch logs")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to list dispatch logs"})
		return
	}

	resp := make([]LogRecordResponse, 0, len(records))
	for _, record := range records {
		resp = append(resp, toLogRecordResponse(record))
	}
	c.JSON(http.StatusOK, resp)
}

// ServeKeyFile answers the IndexNow ownership check with the bare key.
func (h *Handlers) ServeKeyFile(c *gin.Context) {
	c.String(http.StatusOK, h.cfg.Providers.IndexNow.APIKey)
}

// toEventResponse is a helper function to map the domain model to the DTO.
func toEventResponse(e *model.ChangeEvent) EventResponse {
	return EventResponse{
		ID:         e.ID,
		URL:        e.URL,
		Action:     string(e.Action),
		OccurredAt: e.OccurredAt,
		CreatedAt:  e.CreatedAt,
	}
}

func toLogRecordResponse(r *model.DispatchResult) LogRecordResponse {
	return LogRecordResponse{
		ID:           r.ID,
		CreatedAt:    r.CreatedAt,
		Level:        string(r.Level),
		SearchEngine: string(r.SearchEngine),
		Direction:    string(r.Direction),
		StatusCode:   r.StatusCode,
		Message:      r.Message,
	}
}
