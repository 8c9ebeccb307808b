package model

import (
	"fmt"
	"time"
)

// Level mirrors the PSR-style severity column of the dispatch log.
type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
	LevelDebug   Level = "debug"
)

// Direction records which way a logged exchange went. This service only
// originates outgoing pings; internal rows cover service-level messages.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
	DirectionInternal Direction = "internal"
)

// Sentinel status codes for outcomes that carry no HTTP status.
const (
	// StatusNetworkFailure marks a send that never produced a response.
	StatusNetworkFailure = 0
	// StatusTimeoutSentinel marks a send that exceeded the attempt deadline.
	StatusTimeoutSentinel = 408
	// StatusConfigurationError marks a provider that could not build its
	// request; no HTTP call was attempted.
	StatusConfigurationError = 495
)

// OutcomeKind classifies the final result of a send.
type OutcomeKind string

const (
	OutcomeSuccess       OutcomeKind = "success"
	OutcomeClientError   OutcomeKind = "client_error"
	OutcomeThrottled     OutcomeKind = "throttled"
	OutcomeNetworkError  OutcomeKind = "network_error"
	OutcomeTimeout       OutcomeKind = "timeout"
	OutcomeConfiguration OutcomeKind = "configuration_error"
)

// Outcome is the classified result of one Send call (final attempt only).
type Outcome struct {
	Kind       OutcomeKind
	StatusCode int
	// RetryAfter is set for throttled outcomes when the provider announced
	// a backoff interval.
	RetryAfter time.Duration
	Message    string
}

// Success reports whether the provider accepted the ping.
func (o Outcome) Success() bool {
	return o.Kind == OutcomeSuccess
}

// Level maps the outcome onto a log severity.
func (o Outcome) Level() Level {
	switch o.Kind {
	case OutcomeSuccess:
		return LevelInfo
	case OutcomeThrottled:
		return LevelWarning
	default:
		return LevelError
	}
}

// DispatchResult is the append-only log record of one dispatch attempt.
// Created exactly once per provider send, immutable thereafter.
type DispatchResult struct {
	ID           int64
	Level        Level
	SearchEngine Slug
	Direction    Direction
	StatusCode   int
	Message      string
	CreatedAt    time.Time
}

// NewDispatchResult builds the log record for a finished send.
func NewDispatchResult(slug Slug, url string, o Outcome) *DispatchResult {
	return &DispatchResult{
		Level:        o.Level(),
		SearchEngine: slug,
		Direction:    DirectionOutgoing,
		StatusCode:   o.StatusCode,
		Message:      fmt.Sprintf("%s: %s", url, o.Message),
		CreatedAt:    time.Now().UTC(),
	}
}
