package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/fieldview/arbiter/internal/audit/domain"
	"github.com/fieldview/arbiter/internal/clock"
	entitlementdomain "github.com/fieldview/arbiter/internal/entitlement/domain"
	"github.com/fieldview/arbiter/internal/events"
	ledgerdomain "github.com/fieldview/arbiter/internal/ledger/domain"
	"github.com/fieldview/arbiter/internal/notification"
	"github.com/fieldview/arbiter/internal/observability/metrics"
	"github.com/fieldview/arbiter/internal/policy"
	processordomain "github.com/fieldview/arbiter/internal/processor/domain"
	purchasedomain "github.com/fieldview/arbiter/internal/purchase/domain"
	refunddomain "github.com/fieldview/arbiter/internal/refund/domain"
	scheduledomain "github.com/fieldview/arbiter/internal/schedule/domain"
	telemetrydomain "github.com/fieldview/arbiter/internal/telemetry/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	Clock           clock.Clock
	Repo            refunddomain.Repository
	PurchaseRepo    purchasedomain.Repository
	EntitlementRepo entitlementdomain.Repository
	ScheduleSvc     scheduledomain.Service
	PolicyCfg       policy.Config
	LedgerSvc       ledgerdomain.Service
	AuditSvc        auditdomain.Service
	Outbox          *events.Outbox
	Gateway         processordomain.Gateway
	Notifier        notification.Sender
	Metrics         *metrics.RefundMetrics
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	genID           *snowflake.Node
	clock           clock.Clock
	repo            refunddomain.Repository
	purchaseRepo    purchasedomain.Repository
	entitlementRepo entitlementdomain.Repository
	scheduleSvc     scheduledomain.Service
	policyCfg       policy.Config
	ledgerSvc       ledgerdomain.Service
	auditSvc        auditdomain.Service
	outbox          *events.Outbox
	gateway         processordomain.Gateway
	notifier        notification.Sender
	metrics         *metrics.RefundMetrics
}

func NewService(p Params) refunddomain.Service {
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("refund.service"),
		genID:           p.GenID,
		clock:           p.Clock,
		repo:            p.Repo,
		purchaseRepo:    p.PurchaseRepo,
		entitlementRepo: p.EntitlementRepo,
		scheduleSvc:     p.ScheduleSvc,
		policyCfg:       p.PolicyCfg,
		ledgerSvc:       p.LedgerSvc,
		auditSvc:        p.AuditSvc,
		outbox:          p.Outbox,
		gateway:         p.Gateway,
		notifier:        p.Notifier,
		metrics:         p.Metrics,
	}
}

// evaluation bundles the adjudication result with the rows it was derived
// from so IssueRefund does not reload them.
type evaluation struct {
	purchase *purchasedomain.Purchase
	result   refunddomain.Evaluation
}

func (s *Service) EvaluateEligibility(ctx context.Context, purchaseID snowflake.ID) (*refunddomain.Evaluation, error) {
	if purchaseID == 0 {
		return nil, refunddomain.ErrPurchaseNotFound
	}

	// An issued refund ends adjudication: the purchase can never be refunded
	// again, so quality signals no longer matter.
	existing, err := s.repo.FindByPurchaseID(ctx, s.db, purchaseID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		decision := policy.Decision{
			ReasonCode:  policy.ReasonNotEligible,
			AppliedRule: policy.ReasonNotEligible,
		}
		s.metrics.IncDecision(string(decision.ReasonCode))
		return &refunddomain.Evaluation{
			PurchaseID:    purchaseID,
			Decision:      decision,
			PolicyVersion: policy.Version,
		}, nil
	}

	eval, err := s.adjudicate(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	return &eval.result, nil
}

func (s *Service) adjudicate(ctx context.Context, purchaseID snowflake.ID) (*evaluation, error) {
	if purchaseID == 0 {
		return nil, refunddomain.ErrPurchaseNotFound
	}

	purchase, err := s.purchaseRepo.FindByID(ctx, s.db, purchaseID)
	if err != nil {
		return nil, err
	}
	if purchase == nil {
		return nil, refunddomain.ErrPurchaseNotFound
	}

	entitlement, err := s.entitlementRepo.FindEntitlementByPurchaseID(ctx, s.db, purchaseID)
	if err != nil {
		return nil, err
	}
	if entitlement == nil {
		return nil, refunddomain.ErrEntitlementNotFound
	}

	sessions, err := s.entitlementRepo.ListSessionsByEntitlementID(ctx, s.db, entitlement.ID)
	if err != nil {
		return nil, err
	}

	// Only ended sessions carry trusted summaries. A purchase with no ended
	// sessions evaluates against an empty summary, which the fraud gate
	// rejects.
	var summary telemetrydomain.Summary
	endedCount := 0
	for _, session := range sessions {
		if session.EndedAt == nil {
			continue
		}
		summary = summary.Add(session.Summary())
		endedCount++
	}
	if err := summary.Validate(); err != nil {
		return nil, err
	}

	expectedMs, err := s.scheduleSvc.ExpectedDurationMs(ctx, entitlement.FixtureID)
	if err != nil {
		return nil, err
	}

	decision := policy.Evaluate(purchase.AmountCents, summary, expectedMs, s.policyCfg)
	s.metrics.IncDecision(string(decision.ReasonCode))

	return &evaluation{
		purchase: purchase,
		result: refunddomain.Evaluation{
			PurchaseID:    purchaseID,
			Decision:      decision,
			PolicyVersion: policy.Version,
			Telemetry:     summary,
			ExpectedMs:    expectedMs,
			SessionCount:  endedCount,
		},
	}, nil
}

func (s *Service) IssueRefund(ctx context.Context, purchaseID snowflake.ID) (*refunddomain.Refund, error) {
	existing, err := s.repo.FindByPurchaseID(ctx, s.db, purchaseID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, refunddomain.ErrAlreadyRefunded
	}

	eval, err := s.adjudicate(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	decision := eval.result.Decision
	if !decision.Eligible || decision.AmountCents <= 0 {
		return nil, refunddomain.ErrNotEligible
	}

	now := s.clock.Now()
	refund := &refunddomain.Refund{
		ID:            s.genID.Generate(),
		PurchaseID:    purchaseID,
		AmountCents:   decision.AmountCents,
		Currency:      eval.purchase.Currency,
		ReasonCode:    string(decision.ReasonCode),
		PolicyVersion: policy.Version,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inserted, err := s.repo.Insert(ctx, tx, refund)
		if err != nil {
			return err
		}
		if !inserted {
			return refunddomain.ErrAlreadyRefunded
		}

		if _, err := s.purchaseRepo.MarkRefunded(ctx, tx, purchaseID, now); err != nil {
			return err
		}

		return s.outbox.PublishTx(ctx, tx, events.Event{
			Type:      events.EventRefundIssued,
			DedupeKey: "refund_issued_" + refund.ID.String(),
			Payload: events.RefundPayload{
				RefundID:    refund.ID.String(),
				PurchaseID:  purchaseID.String(),
				AmountCents: refund.AmountCents,
				Currency:    refund.Currency,
				ReasonCode:  refund.ReasonCode,
			}.ToMap(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncRefundIssued(refund.ReasonCode)
	s.notifyIssued(ctx, eval.purchase, refund)
	s.writeAuditLog(ctx, "refund.issued", refund, map[string]any{
		"buffer_ratio":   decision.BufferRatio,
		"downtime_ratio": decision.DowntimeRatio,
	})

	return refund, nil
}

func (s *Service) SettleWithProcessor(ctx context.Context, refundID snowflake.ID) (*refunddomain.Refund, error) {
	refund, err := s.repo.FindByID(ctx, s.db, refundID)
	if err != nil {
		return nil, err
	}
	if refund == nil {
		return nil, refunddomain.ErrRefundNotFound
	}
	if refund.Settled() {
		s.metrics.IncSettlementAttempt("noop")
		return refund, nil
	}

	purchase, err := s.purchaseRepo.FindByID(ctx, s.db, refund.PurchaseID)
	if err != nil {
		return nil, err
	}
	if purchase == nil {
		return nil, refunddomain.ErrPurchaseNotFound
	}

	started := time.Now()
	result, err := s.gateway.Refund(ctx, processordomain.RefundRequest{
		ProviderPaymentID: purchase.PaymentProviderPaymentID,
		AmountCents:       refund.AmountCents,
		Currency:          refund.Currency,
		IdempotencyKey:    "refund_" + refund.ID.String(),
		Reason:            refund.ReasonCode,
	})
	s.metrics.ObserveSettlementDuration(time.Since(started))
	if err != nil {
		outcome := "unavailable"
		if errors.Is(err, processordomain.ErrRejected) {
			outcome = "rejected"
		}
		s.metrics.IncSettlementAttempt(outcome)
		s.log.Warn("processor refund failed",
			zap.String("refund_id", refund.ID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	now := s.clock.Now()
	marked := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.repo.MarkProcessed(ctx, tx, refund.ID, now, result.ProviderRefundID)
		if err != nil {
			return err
		}
		if !ok {
			// A concurrent settle won the conditional update. The
			// processor call above was absorbed by its idempotency key.
			return nil
		}
		marked = true

		lines := []ledgerdomain.LedgerEntryLine{
			{AccountCode: ledgerdomain.AccountCodeRefundExpense, Direction: ledgerdomain.LedgerEntryDirectionDebit, Amount: refund.AmountCents},
			{AccountCode: ledgerdomain.AccountCodeCashClearing, Direction: ledgerdomain.LedgerEntryDirectionCredit, Amount: refund.AmountCents},
		}
		if err := s.ledgerSvc.CreateEntryTx(ctx, tx, ledgerdomain.SourceTypeRefund, refund.ID, refund.Currency, now, lines); err != nil {
			return err
		}

		return s.outbox.PublishTx(ctx, tx, events.Event{
			Type:      events.EventRefundSettled,
			DedupeKey: "refund_settled_" + refund.ID.String(),
			Payload: events.RefundPayload{
				RefundID:    refund.ID.String(),
				PurchaseID:  refund.PurchaseID.String(),
				AmountCents: refund.AmountCents,
				Currency:    refund.Currency,
				ReasonCode:  refund.ReasonCode,
			}.ToMap(),
		})
	})
	if err != nil {
		return nil, err
	}

	if marked {
		s.metrics.IncSettlementAttempt("settled")
		s.writeAuditLog(ctx, "refund.settled", refund, map[string]any{
			"provider_refund_id": result.ProviderRefundID,
		})
	} else {
		s.metrics.IncSettlementAttempt("noop")
	}

	settled, err := s.repo.FindByID(ctx, s.db, refund.ID)
	if err != nil {
		return nil, err
	}
	if settled == nil {
		return nil, refunddomain.ErrRefundNotFound
	}
	return settled, nil
}

func (s *Service) GetRefund(ctx context.Context, refundID snowflake.ID) (*refunddomain.Refund, error) {
	refund, err := s.repo.FindByID(ctx, s.db, refundID)
	if err != nil {
		return nil, err
	}
	if refund == nil {
		return nil, refunddomain.ErrRefundNotFound
	}
	return refund, nil
}

// notifyIssued is best effort. The refund stands even when the buyer cannot
// be reached.
func (s *Service) notifyIssued(ctx context.Context, purchase *purchasedomain.Purchase, refund *refunddomain.Refund) {
	err := s.notifier.SendRefundIssued(ctx, notification.Message{
		Email:       purchase.BuyerEmail,
		Phone:       purchase.BuyerPhone,
		RefundID:    refund.ID.String(),
		PurchaseID:  refund.PurchaseID.String(),
		AmountCents: refund.AmountCents,
		Currency:    refund.Currency,
		ReasonCode:  refund.ReasonCode,
	})
	if err != nil {
		s.metrics.IncNotificationFailure()
		s.log.Warn("refund notification failed",
			zap.String("refund_id", refund.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *Service) writeAuditLog(ctx context.Context, action string, refund *refunddomain.Refund, extra map[string]any) {
	metadata := map[string]any{
		"purchase_id":    refund.PurchaseID.String(),
		"amount_cents":   refund.AmountCents,
		"currency":       refund.Currency,
		"reason_code":    refund.ReasonCode,
		"policy_version": refund.PolicyVersion,
	}
	for key, value := range extra {
		if key == "" {
			continue
		}
		metadata[key] = value
	}

	targetID := refund.ID.String()
	if err := s.auditSvc.AuditLog(ctx, action, "refund", &targetID, metadata); err != nil {
		s.log.Warn("audit log write failed",
			zap.String("action", action),
			zap.String("refund_id", targetID),
			zap.Error(err),
		)
	}
}
