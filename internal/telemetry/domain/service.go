package domain

import (
	"context"
	"errors"
	"fmt"
)

// Service collects raw playback events and closes sessions with a validated
// telemetry summary.
type Service interface {
	IngestEvent(ctx context.Context, req IngestEventRequest) (*PlaybackEvent, error)
	EndSession(ctx context.Context, sessionID string) (*Summary, error)
}

// IngestEventRequest carries one client-reported playback occurrence.
type IngestEventRequest struct {
	SessionID      string         `json:"session_id"`
	Kind           string         `json:"kind"`
	TimestampMs    int64          `json:"timestamp_ms"`
	DurationMs     *int64         `json:"duration_ms,omitempty"`
	ErrorCode      *string        `json:"error_code,omitempty"`
	IdempotencyKey *string        `json:"idempotency_key,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

var (
	ErrInvalidSession      = errors.New("invalid_session")
	ErrSessionNotFound     = errors.New("session_not_found")
	ErrSessionAlreadyEnded = errors.New("session_already_ended")
	ErrInvalidEventKind    = errors.New("invalid_event_kind")
	ErrInvalidTimestamp    = errors.New("invalid_timestamp")
	ErrOutOfOrderEvent     = errors.New("out_of_order_event")
	ErrInvalidDuration     = errors.New("invalid_duration")
	ErrInvalidTelemetry    = errors.New("invalid_telemetry")
)

// ErrBufferExceedsWatch marks summaries whose buffered time exceeds watched
// time; such summaries are rejected rather than clamped.
var ErrBufferExceedsWatch = fmt.Errorf("%w: buffer_exceeds_watch_time", ErrInvalidTelemetry)

// Validate rejects summaries with negative fields or buffered time exceeding
// watched time. Callers must validate before persisting or adjudicating.
func (s Summary) Validate() error {
	if s.TotalWatchMs < 0 || s.TotalBufferMs < 0 || s.BufferEvents < 0 || s.FatalErrors < 0 || s.StreamDownMs < 0 {
		return ErrInvalidTelemetry
	}
	if s.StartupLatencyMs != nil && *s.StartupLatencyMs < 0 {
		return ErrInvalidTelemetry
	}
	if s.TotalBufferMs > s.TotalWatchMs {
		return ErrBufferExceedsWatch
	}
	return nil
}
