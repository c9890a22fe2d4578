package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository persists raw playback events.
type Repository interface {
	// Insert writes the event. It returns false when an event with the same
	// session and idempotency key already exists.
	Insert(ctx context.Context, db *gorm.DB, event *PlaybackEvent) (bool, error)
	FindByIdempotencyKey(ctx context.Context, db *gorm.DB, sessionID snowflake.ID, key string) (*PlaybackEvent, error)
	// MaxTimestampMs returns -1 when the session has no events yet.
	MaxTimestampMs(ctx context.Context, db *gorm.DB, sessionID snowflake.ID) (int64, error)
	ListBySessionID(ctx context.Context, db *gorm.DB, sessionID snowflake.ID) ([]PlaybackEvent, error)
}
