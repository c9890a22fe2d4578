// Package domain contains the refund record and the orchestrator contract.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fieldview/arbiter/internal/policy"
	telemetrydomain "github.com/fieldview/arbiter/internal/telemetry/domain"
	"gorm.io/gorm"
)

// Refund is the single refund a purchase may ever receive. The unique index
// on purchase_id is the double-refund guard: concurrent issue attempts race
// on the insert and exactly one wins.
type Refund struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	PurchaseID    snowflake.ID `gorm:"not null;uniqueIndex" json:"purchase_id"`
	AmountCents   int64        `gorm:"not null" json:"amount_cents"`
	Currency      string       `gorm:"type:text;not null" json:"currency"`
	ReasonCode    string       `gorm:"type:text;not null" json:"reason_code"`
	PolicyVersion string       `gorm:"type:text;not null" json:"policy_version"`

	// ProviderRefundID is the processor-side identifier, set at settlement.
	ProviderRefundID *string `gorm:"type:text" json:"provider_refund_id,omitempty"`
	// ProcessedAt is the settlement marker. A nil value means the refund is
	// still owed to the processor.
	ProcessedAt *time.Time `json:"processed_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (Refund) TableName() string { return "refunds" }

// Settled reports whether the refund has been pushed to the processor.
func (r Refund) Settled() bool { return r.ProcessedAt != nil }

// Evaluation is the read-only adjudication result returned without issuing
// anything.
type Evaluation struct {
	PurchaseID    snowflake.ID            `json:"purchase_id"`
	Decision      policy.Decision         `json:"decision"`
	PolicyVersion string                  `json:"policy_version"`
	Telemetry     telemetrydomain.Summary `json:"telemetry"`
	ExpectedMs    int64                   `json:"expected_duration_ms"`
	SessionCount  int                     `json:"session_count"`
}

// Service orchestrates adjudication, issuance and settlement.
type Service interface {
	// EvaluateEligibility adjudicates without side effects beyond metrics.
	EvaluateEligibility(ctx context.Context, purchaseID snowflake.ID) (*Evaluation, error)
	// IssueRefund adjudicates and, when eligible, records the refund and
	// flips the purchase to refunded. Issuing twice returns
	// ErrAlreadyRefunded.
	IssueRefund(ctx context.Context, purchaseID snowflake.ID) (*Refund, error)
	// SettleWithProcessor pushes an issued refund to the payment processor.
	// It is idempotent: a settled refund is returned as-is without another
	// processor call.
	SettleWithProcessor(ctx context.Context, refundID snowflake.ID) (*Refund, error)
	// GetRefund loads a refund by ID.
	GetRefund(ctx context.Context, refundID snowflake.ID) (*Refund, error)
}

var (
	ErrPurchaseNotFound    = errors.New("purchase_not_found")
	ErrEntitlementNotFound = errors.New("entitlement_not_found")
	ErrRefundNotFound      = errors.New("refund_not_found")
	ErrNotEligible         = errors.New("not_eligible")
	ErrAlreadyRefunded     = errors.New("already_refunded")
)

// Repository persists refund rows.
type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Refund, error)
	FindByPurchaseID(ctx context.Context, db *gorm.DB, purchaseID snowflake.ID) (*Refund, error)
	// Insert writes the refund row. It returns false when a refund for the
	// same purchase already exists.
	Insert(ctx context.Context, db *gorm.DB, refund *Refund) (bool, error)
	// MarkProcessed stamps processed_at and the provider refund ID. It
	// returns false when the refund was already settled.
	MarkProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, processedAt time.Time, providerRefundID string) (bool, error)
	// ListUnsettled returns issued refunds still owed to the processor,
	// oldest first.
	ListUnsettled(ctx context.Context, db *gorm.DB, limit int) ([]Refund, error)
}
