package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fieldview/arbiter/internal/purchase/domain"
	"gorm.io/gorm"
)

type gormRepository struct{}

// Provide constructs the gorm-backed purchase repository.
func Provide() domain.Repository {
	return gormRepository{}
}

func (gormRepository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Purchase, error) {
	var row domain.Purchase
	err := db.WithContext(ctx).Raw(
		`SELECT id, fixture_id, buyer_email, buyer_phone, amount_cents, currency,
		        status, payment_provider_payment_id, refunded_at, created_at, updated_at
		 FROM purchases
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

func (gormRepository) MarkRefunded(ctx context.Context, db *gorm.DB, id snowflake.ID, refundedAt time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE purchases
		 SET status = ?, refunded_at = ?, updated_at = ?
		 WHERE id = ? AND status <> ?`,
		domain.StatusRefunded,
		refundedAt,
		refundedAt,
		id,
		domain.StatusRefunded,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
