// Package domain defines the payment-processor refund gateway contract.
package domain

import (
	"context"
	"errors"
)

// RefundRequest asks the processor to return money for a captured payment.
// IdempotencyKey is derived from the refund row so retries of the same refund
// can never double-charge the processor.
type RefundRequest struct {
	ProviderPaymentID string
	AmountCents       int64
	Currency          string
	IdempotencyKey    string
	Reason            string
}

// RefundResult reports the processor-side identifier for a accepted refund.
type RefundResult struct {
	ProviderRefundID string
}

// Gateway submits refunds to an external payment processor.
type Gateway interface {
	Refund(ctx context.Context, req RefundRequest) (*RefundResult, error)
}

var (
	// ErrUnavailable marks transient processor failures. Callers retry.
	ErrUnavailable = errors.New("processor_unavailable")
	// ErrRejected marks permanent refusals. Retrying cannot help.
	ErrRejected = errors.New("processor_rejected")

	ErrInvalidRefundRequest = errors.New("invalid_refund_request")
)
