package http

import (
	"time"

	"github.com/google/uuid"
)

// CreateEventRequest defines the structure for a new change event request.
// It uses `json` tags for unmarshalling and `binding` for validation with Gin.
type CreateEventRequest struct {
	URL        string    `json:"url" binding:"required"`
	Action     string    `json:"action" binding:"required"`
	OccurredAt time.Time `json:"occurred_at"`
}

// CreateBatchRequest submits several URLs sharing one action, matching bulk
// edits where many pages change at once.
type CreateBatchRequest struct {
	URLs       []string  `json:"urls" binding:"required,min=1"`
	Action     string    `json:"action" binding:"required"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventResponse defines the structure for a standard change event response.
type EventResponse struct {
	ID         uuid.UUID `json:"id"`
	URL        string    `json:"url"`
	Action     string    `json:"action"`
	OccurredAt time.Time `json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// BatchResponse reports per-URL successes and failures of a batch submit.
type BatchResponse struct {
	Accepted []EventResponse `json:"accepted"`
	Rejected []string        `json:"rejected,omitempty"`
}

// LogRecordResponse is one dispatch log row.
type LogRecordResponse struct {
	ID           int64     `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Level        string    `json:"level"`
	SearchEngine string    `json:"search_engine"`
	Direction    string    `json:"direction"`
	StatusCode   int       `json:"status_code"`
	Message      string    `json:"message"`
}

// ErrorResponse defines a standard structure for API error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}
