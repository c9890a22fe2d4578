// Package domain contains playback telemetry models and validation.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Playback event kinds reported by clients.
const (
	EventKindPlay   = "play"
	EventKindPause  = "pause"
	EventKindBuffer = "buffer"
	EventKindError  = "error"
)

// Error codes carried by error events.
const (
	ErrorCodeFatalStream = "fatal_stream_error"
	ErrorCodeStreamDown  = "stream_down"
)

var fatalErrorCodes = map[string]struct{}{
	ErrorCodeFatalStream: {},
}

// IsFatalErrorCode reports whether an error code counts toward fatal errors.
func IsFatalErrorCode(code string) bool {
	_, ok := fatalErrorCodes[code]
	return ok
}

// PlaybackEvent stores a single client-reported playback occurrence. Events
// arrive in non-decreasing timestamp order per session.
type PlaybackEvent struct {
	ID             snowflake.ID      `gorm:"primaryKey" json:"id"`
	SessionID      snowflake.ID      `gorm:"not null;index" json:"session_id"`
	Kind           string            `gorm:"type:text;not null" json:"kind"`
	TimestampMs    int64             `gorm:"not null" json:"timestamp_ms"`
	DurationMs     *int64            `json:"duration_ms,omitempty"`
	ErrorCode      *string           `gorm:"type:text" json:"error_code,omitempty"`
	IdempotencyKey *string           `gorm:"type:text" json:"idempotency_key,omitempty"`
	Metadata       datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (PlaybackEvent) TableName() string { return "playback_events" }

// Summary is the per-session telemetry rollup. Summaries are summed
// field-wise across sessions to adjudicate a purchase.
type Summary struct {
	TotalWatchMs     int64  `json:"total_watch_ms"`
	TotalBufferMs    int64  `json:"total_buffer_ms"`
	BufferEvents     int64  `json:"buffer_events"`
	FatalErrors      int64  `json:"fatal_errors"`
	StreamDownMs     int64  `json:"stream_down_ms"`
	StartupLatencyMs *int64 `json:"startup_latency_ms,omitempty"`
}

// Add returns the field-wise sum of two summaries. Startup latency stays
// absent only when absent on both sides.
func (s Summary) Add(other Summary) Summary {
	out := Summary{
		TotalWatchMs:  s.TotalWatchMs + other.TotalWatchMs,
		TotalBufferMs: s.TotalBufferMs + other.TotalBufferMs,
		BufferEvents:  s.BufferEvents + other.BufferEvents,
		FatalErrors:   s.FatalErrors + other.FatalErrors,
		StreamDownMs:  s.StreamDownMs + other.StreamDownMs,
	}
	switch {
	case s.StartupLatencyMs != nil && other.StartupLatencyMs != nil:
		total := *s.StartupLatencyMs + *other.StartupLatencyMs
		out.StartupLatencyMs = &total
	case s.StartupLatencyMs != nil:
		value := *s.StartupLatencyMs
		out.StartupLatencyMs = &value
	case other.StartupLatencyMs != nil:
		value := *other.StartupLatencyMs
		out.StartupLatencyMs = &value
	}
	return out
}
