// Package domain contains the purchase read/write models consumed by the
// refund engine. Purchases are created by the commerce service; this engine
// only reads them and flips their status on refund.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Status is the purchase lifecycle state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusPaid     Status = "paid"
	StatusRefunded Status = "refunded"
)

// Purchase is one paid access to a fixture stream.
type Purchase struct {
	ID                       snowflake.ID `gorm:"primaryKey" json:"id"`
	FixtureID                snowflake.ID `gorm:"not null;index" json:"fixture_id"`
	BuyerEmail               string       `gorm:"type:text" json:"-"`
	BuyerPhone               string       `gorm:"type:text" json:"-"`
	AmountCents              int64        `gorm:"not null" json:"amount_cents"`
	Currency                 string       `gorm:"type:text;not null" json:"currency"`
	Status                   Status       `gorm:"type:text;not null;default:pending" json:"status"`
	PaymentProviderPaymentID string       `gorm:"type:text;not null" json:"-"`
	RefundedAt               *time.Time   `json:"refunded_at,omitempty"`
	CreatedAt                time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt                time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (Purchase) TableName() string { return "purchases" }

var (
	ErrNotFound        = errors.New("purchase_not_found")
	ErrInvalidPurchase = errors.New("invalid_purchase")
)

// Repository reads purchases and applies the single status flip this engine
// is allowed to make.
type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Purchase, error)
	// MarkRefunded flips status to refunded and stamps refunded_at. It
	// returns false when the purchase was already refunded.
	MarkRefunded(ctx context.Context, db *gorm.DB, id snowflake.ID, refundedAt time.Time) (bool, error)
}
