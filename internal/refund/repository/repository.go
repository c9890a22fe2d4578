package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fieldview/arbiter/internal/refund/domain"
	"gorm.io/gorm"
)

type gormRepository struct{}

// Provide constructs the gorm-backed refund repository.
func Provide() domain.Repository {
	return gormRepository{}
}

const selectColumns = `id, purchase_id, amount_cents, currency, reason_code,
	        policy_version, provider_refund_id, processed_at, created_at, updated_at`

func (gormRepository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Refund, error) {
	var row domain.Refund
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+`
		 FROM refunds
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

func (gormRepository) FindByPurchaseID(ctx context.Context, db *gorm.DB, purchaseID snowflake.ID) (*domain.Refund, error) {
	var row domain.Refund
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+`
		 FROM refunds
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

func (gormRepository) Insert(ctx context.Context, db *gorm.DB, refund *domain.Refund) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`INSERT INTO refunds (id, purchase_id, amount_cents, currency, reason_code,
		                      policy_version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (purchase_id) DO NOTHING`,
		refund.ID,
		refund.PurchaseID,
		refund.AmountCents,
		refund.Currency,
		refund.ReasonCode,
		refund.PolicyVersion,
		refund.CreatedAt,
		refund.UpdatedAt,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (gormRepository) MarkProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, processedAt time.Time, providerRefundID string) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE refunds
		 SET processed_at = ?, provider_refund_id = ?, updated_at = ?
		 WHERE id = ? AND processed_at IS NULL`,
		processedAt,
		providerRefundID,
		processedAt,
		id,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (gormRepository) ListUnsettled(ctx context.Context, db *gorm.DB, limit int) ([]domain.Refund, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []domain.Refund
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+`
		 FROM refunds
		 WHERE processed_at IS NULL
		 ORDER BY created_at ASC
		 LIMIT ?`,
		limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
