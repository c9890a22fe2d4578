package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/fieldview/arbiter/internal/ledger/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("ledger.service"),
		genID: p.GenID,
	}
}

func (s *Service) CreateEntry(ctx context.Context, sourceType string, sourceID snowflake.ID, currency string, occurredAt time.Time, lines []ledgerdomain.LedgerEntryLine) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.CreateEntryTx(ctx, tx, sourceType, sourceID, currency, occurredAt, lines)
	})
}

func (s *Service) CreateEntryTx(ctx context.Context, tx *gorm.DB, sourceType string, sourceID snowflake.ID, currency string, occurredAt time.Time, lines []ledgerdomain.LedgerEntryLine) error {
	if strings.TrimSpace(sourceType) == "" {
		return ledgerdomain.ErrInvalidSourceType
	}
	if sourceID == 0 {
		return ledgerdomain.ErrInvalidSourceID
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return ledgerdomain.ErrInvalidCurrency
	}
	if occurredAt.IsZero() {
		return ledgerdomain.ErrInvalidOccurredAt
	}
	if err := ledgerdomain.ValidateBalanced(lines); err != nil {
		return err
	}

	now := time.Now().UTC()
	entryID := s.genID.Generate()
	if err := tx.WithContext(ctx).Exec(
		`INSERT INTO ledger_entries (id, source_type, source_id, currency, occurred_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entryID,
		sourceType,
		sourceID,
		currency,
		occurredAt,
		now,
	).Error; err != nil {
		return err
	}

	for _, line := range lines {
		if err := s.ensureAccount(ctx, tx, line.AccountCode, now); err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Exec(
			`INSERT INTO ledger_entry_lines (id, ledger_entry_id, account_code, direction, amount, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			s.genID.Generate(),
			entryID,
			line.AccountCode,
			line.Direction,
			line.Amount,
			now,
		).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) ensureAccount(ctx context.Context, tx *gorm.DB, code string, now time.Time) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return ledgerdomain.ErrInvalidAccount
	}
	return tx.WithContext(ctx).Exec(
		`INSERT INTO ledger_accounts (id, code, name, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (code) DO NOTHING`,
		s.genID.Generate(),
		code,
		accountName(code),
		now,
	).Error
}

func accountName(code string) string {
	switch code {
	case ledgerdomain.AccountCodeCashClearing:
		return "Cash / Clearing"
	case ledgerdomain.AccountCodeRefundExpense:
		return "Refund Expense"
	default:
		return code
	}
}
