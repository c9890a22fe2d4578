package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/fieldview/arbiter/internal/telemetry/domain"
	"gorm.io/gorm"
)

type gormRepository struct{}

// Provide constructs the gorm-backed playback event repository.
func Provide() domain.Repository {
	return gormRepository{}
}

func (gormRepository) Insert(ctx context.Context, db *gorm.DB, event *domain.PlaybackEvent) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`INSERT INTO playback_events (id, session_id, kind, timestamp_ms, duration_ms,
		                              error_code, idempotency_key, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (session_id, idempotency_key) DO NOTHING`,
		event.ID,
		event.SessionID,
		event.Kind,
		event.TimestampMs,
		event.DurationMs,
		event.ErrorCode,
		event.IdempotencyKey,
		event.Metadata,
		event.CreatedAt,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (gormRepository) FindByIdempotencyKey(ctx context.Context, db *gorm.DB, sessionID snowflake.ID, key string) (*domain.PlaybackEvent, error) {
	var row domain.PlaybackEvent
	err := db.WithContext(ctx).Raw(
		`SELECT id, session_id, kind, timestamp_ms, duration_ms, error_code,
		        idempotency_key, metadata, created_at
		 FROM playback_events
		 WHERE session_id = ? AND idempotency_key = ?`,
		sessionID,
		key,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (gormRepository) MaxTimestampMs(ctx context.Context, db *gorm.DB, sessionID snowflake.ID) (int64, error) {
	var max int64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(MAX(timestamp_ms), -1)
		 FROM playback_events
		 WHERE session_id = ?`,
		sessionID,
	).Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max, nil
}

func (gormRepository) ListBySessionID(ctx context.Context, db *gorm.DB, sessionID snowflake.ID) ([]domain.PlaybackEvent, error) {
	var rows []domain.PlaybackEvent
	err := db.WithContext(ctx).Raw(
		`SELECT id, session_id, kind, timestamp_ms, duration_ms, error_code,
		        idempotency_key, metadata, created_at
		 FROM playback_events
		 WHERE session_id = ?
		 ORDER BY timestamp_ms ASC, id ASC`,
		sessionID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
