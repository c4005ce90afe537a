// Package events publishes analysis lifecycle events to Kafka so downstream
// consumers (notification services, usage dashboards) can react without
// polling the API.
package events

import (
	"context"
	"time"
)

// Event types carried on the analysis topic.
const (
	TypeAnalysisCompleted = "analysis.completed"
	TypeAnalysisFailed    = "analysis.failed"
)

// Event is the JSON payload produced per lifecycle transition. SessionID is
// also the record key, so one session's events stay ordered.
type Event struct {
	Type       string    `json:"type"`
	SessionID  string    `json:"session_id"`
	Timestamp  time.Time `json:"timestamp"`
	Samples    int       `json:"samples,omitempty"`
	KOs        int       `json:"kos,omitempty"`
	Matches    int       `json:"matches,omitempty"`
	FromCache  bool      `json:"from_cache,omitempty"`
	DurationMS int64     `json:"duration_ms,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// Publisher emits analysis lifecycle events. Publish must not block the
// pipeline; implementations hand records off asynchronously.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close(ctx context.Context) error
}

// Completed builds the event for a finished run.
func Completed(sessionID string, samples, kos, matches int, fromCache bool, duration time.Duration) Event {
	return Event{
		Type:       TypeAnalysisCompleted,
		SessionID:  sessionID,
		Samples:    samples,
		KOs:        kos,
		Matches:    matches,
		FromCache:  fromCache,
		DurationMS: duration.Milliseconds(),
	}
}

// Failed builds the event for a run that ended in an error.
func Failed(sessionID string, cause error, duration time.Duration) Event {
	e := Event{
		Type:       TypeAnalysisFailed,
		SessionID:  sessionID,
		DurationMS: duration.Milliseconds(),
	}
	if cause != nil {
		e.Error = cause.Error()
	}
	return e
}

// NoopPublisher drops every event. Used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }

func (NoopPublisher) Close(context.Context) error { return nil }
