// Package domain contains the entitlement and playback-session read models.
// Both are owned by the access service; the refund engine reads them and the
// telemetry collector stamps session summaries on end.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	telemetrydomain "github.com/fieldview/arbiter/internal/telemetry/domain"
	"gorm.io/gorm"
)

// Entitlement is a time-bounded access grant tied to a purchase.
type Entitlement struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	PurchaseID snowflake.ID `gorm:"not null;uniqueIndex" json:"purchase_id"`
	FixtureID  snowflake.ID `gorm:"not null;index" json:"fixture_id"`
	ValidFrom  time.Time    `gorm:"not null" json:"valid_from"`
	ValidUntil time.Time    `gorm:"not null" json:"valid_until"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (Entitlement) TableName() string { return "entitlements" }

// PlaybackSession is one continuous viewing attempt under an entitlement.
// Its telemetry summary columns are filled in when the session ends.
type PlaybackSession struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	EntitlementID snowflake.ID `gorm:"not null;index" json:"entitlement_id"`
	StartedAt     time.Time    `gorm:"not null" json:"started_at"`
	EndedAt       *time.Time   `json:"ended_at,omitempty"`

	TotalWatchMs     int64  `gorm:"not null;default:0" json:"total_watch_ms"`
	TotalBufferMs    int64  `gorm:"not null;default:0" json:"total_buffer_ms"`
	BufferEvents     int64  `gorm:"not null;default:0" json:"buffer_events"`
	FatalErrors      int64  `gorm:"not null;default:0" json:"fatal_errors"`
	StreamDownMs     int64  `gorm:"not null;default:0" json:"stream_down_ms"`
	StartupLatencyMs *int64 `json:"startup_latency_ms,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (PlaybackSession) TableName() string { return "playback_sessions" }

// Summary returns the session's telemetry summary columns as a value.
func (s PlaybackSession) Summary() telemetrydomain.Summary {
	summary := telemetrydomain.Summary{
		TotalWatchMs:  s.TotalWatchMs,
		TotalBufferMs: s.TotalBufferMs,
		BufferEvents:  s.BufferEvents,
		FatalErrors:   s.FatalErrors,
		StreamDownMs:  s.StreamDownMs,
	}
	if s.StartupLatencyMs != nil {
		value := *s.StartupLatencyMs
		summary.StartupLatencyMs = &value
	}
	return summary
}

var (
	ErrEntitlementNotFound = errors.New("entitlement_not_found")
	ErrSessionNotFound     = errors.New("playback_session_not_found")
)

// Repository reads entitlements and sessions and applies the one write the
// telemetry collector owns: stamping a session's end summary.
type Repository interface {
	FindEntitlementByPurchaseID(ctx context.Context, db *gorm.DB, purchaseID snowflake.ID) (*Entitlement, error)
	ListSessionsByEntitlementID(ctx context.Context, db *gorm.DB, entitlementID snowflake.ID) ([]PlaybackSession, error)
	FindSessionByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*PlaybackSession, error)
	// EndSession stamps ended_at and the summary columns. It returns false
	// when the session was already ended.
	EndSession(ctx context.Context, db *gorm.DB, id snowflake.ID, endedAt time.Time, summary telemetrydomain.Summary) (bool, error)
}
