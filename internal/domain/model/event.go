package model

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidEvent marks an event that failed validation and can never be
// dispatched.
var ErrInvalidEvent = errors.New("invalid change event")

// Action represents what happened to the content behind a URL.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// ChangeEvent is the core business entity of the application: a single
// content change that should be announced to the configured search engines.
// It is technology-agnostic and immutable once constructed.
type ChangeEvent struct {
	ID         uuid.UUID
	URL        string
	Action     Action
	OccurredAt time.Time
	CreatedAt  time.Time
}

// NewChangeEvent is a factory function to create a new change event.
func NewChangeEvent(rawURL string, action Action, occurredAt time.Time) (*ChangeEvent, error) {
	e := &ChangeEvent{
		ID:         uuid.New(),
		URL:        rawURL,
		Action:     action,
		OccurredAt: occurredAt.UTC(),
		CreatedAt:  time.Now().UTC(),
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Validate checks that the event carries an absolute URL and a known action.
func (e *ChangeEvent) Validate() error {
	u, err := url.Parse(e.URL)
	if err != nil {
		return fmt.Errorf("%w: invalid url %q: %v", ErrInvalidEvent, e.URL, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%w: url must be absolute: %q", ErrInvalidEvent, e.URL)
	}
	switch e.Action {
	case ActionCreated, ActionUpdated, ActionDeleted:
	default:
		return fmt.Errorf("%w: unknown action: %s", ErrInvalidEvent, e.Action)
	}
	return nil
}

// Host returns the hostname part of the event URL.
func (e *ChangeEvent) Host() string {
	u, err := url.Parse(e.URL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
