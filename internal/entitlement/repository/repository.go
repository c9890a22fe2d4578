package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fieldview/arbiter/internal/entitlement/domain"
	telemetrydomain "github.com/fieldview/arbiter/internal/telemetry/domain"
	"gorm.io/gorm"
)

type gormRepository struct{}

// Provide constructs the gorm-backed entitlement repository.
func Provide() domain.Repository {
	return gormRepository{}
}

func (gormRepository) FindEntitlementByPurchaseID(ctx context.Context, db *gorm.DB, purchaseID snowflake.ID) (*domain.Entitlement, error) {
	var row domain.Entitlement
	err := db.WithContext(ctx).Raw(
		`SELECT id, purchase_id, fixture_id, valid_from, valid_until, created_at
		 FROM entitlements
		 WHERE purchase_id = ?`,
		purchaseID,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (gormRepository) ListSessionsByEntitlementID(ctx context.Context, db *gorm.DB, entitlementID snowflake.ID) ([]domain.PlaybackSession, error) {
	var rows []domain.PlaybackSession
	err := db.WithContext(ctx).Raw(
		`SELECT id, entitlement_id, started_at, ended_at,
		        total_watch_ms, total_buffer_ms, buffer_events, fatal_errors,
		        stream_down_ms, startup_latency_ms, created_at, updated_at
		 FROM playback_sessions
		 WHERE entitlement_id = ?
		 ORDER BY started_at ASC, id ASC`,
		entitlementID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (gormRepository) FindSessionByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.PlaybackSession, error) {
	var row domain.PlaybackSession
	err := db.WithContext(ctx).Raw(
		`SELECT id, entitlement_id, started_at, ended_at,
		        total_watch_ms, total_buffer_ms, buffer_events, fatal_errors,
		        stream_down_ms, startup_latency_ms, created_at, updated_at
		 FROM playback_sessions
		 WHERE id = ?`,
		id,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (gormRepository) EndSession(ctx context.Context, db *gorm.DB, id snowflake.ID, endedAt time.Time, summary telemetrydomain.Summary) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE playback_sessions
		 SET ended_at = ?, total_watch_ms = ?, total_buffer_ms = ?, buffer_events = ?,
		     fatal_errors = ?, stream_down_ms = ?, startup_latency_ms = ?, updated_at = ?
		 WHERE id = ? AND ended_at IS NULL`,
		endedAt,
		summary.TotalWatchMs,
		summary.TotalBufferMs,
		summary.BufferEvents,
		summary.FatalErrors,
		summary.StreamDownMs,
		summary.StartupLatencyMs,
		endedAt,
		id,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
