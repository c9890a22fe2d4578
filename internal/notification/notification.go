// Package notification delivers refund outcome messages to buyers. Delivery
// is best effort: a failed send never fails or rolls back the refund itself.
package notification

import (
	"context"
	"errors"
	"strings"

	"github.com/fieldview/arbiter/internal/observability/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Message is one refund outcome notification.
type Message struct {
	Email       string
	Phone       string
	RefundID    string
	PurchaseID  string
	AmountCents int64
	Currency    string
	ReasonCode  string
}

// Sender delivers a refund notification to the buyer.
type Sender interface {
	SendRefundIssued(ctx context.Context, msg Message) error
}

var ErrNoDestination = errors.New("no_notification_destination")

// LogSender writes notifications to the service log. It stands in for a real
// email/SMS provider in development and keeps the send path exercised.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log.Named("notification")}
}

func (s *LogSender) SendRefundIssued(ctx context.Context, msg Message) error {
	email := strings.TrimSpace(msg.Email)
	phone := strings.TrimSpace(msg.Phone)
	if email == "" && phone == "" {
		return ErrNoDestination
	}

	s.log.Info("refund notification sent",
		zap.String("refund_id", msg.RefundID),
		zap.String("purchase_id", msg.PurchaseID),
		zap.Int64("amount_cents", msg.AmountCents),
		zap.String("currency", msg.Currency),
		zap.String("reason_code", msg.ReasonCode),
		zap.String("email", logger.MaskEmail(email)),
		zap.String("phone", logger.MaskPhone(phone)),
	)
	return nil
}

func NewSender(log *zap.Logger) Sender {
	return NewLogSender(log)
}

var Module = fx.Module("notification",
	fx.Provide(NewSender),
)
