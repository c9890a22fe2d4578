// Package stripe implements the processor gateway against the Stripe refunds
// API.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fieldview/arbiter/internal/observability/tracing"
	processordomain "github.com/fieldview/arbiter/internal/processor/domain"
	"go.uber.org/zap"
)

const defaultBaseURL = "https://api.stripe.com"

// Gateway calls Stripe's POST /v1/refunds endpoint. Retries are safe because
// every request carries the caller-supplied idempotency key.
type Gateway struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *zap.Logger
}

// Config carries the credentials and endpoint for the Stripe API.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

func New(cfg Config, log *zap.Logger) *Gateway {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Gateway{
		baseURL:    base,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		httpClient: tracing.WrapHTTPClient(&http.Client{Timeout: timeout}),
		log:        log.Named("processor.stripe"),
	}
}

type refundResponse struct {
	ID    string `json:"id"`
	Error *struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (g *Gateway) Refund(ctx context.Context, req processordomain.RefundRequest) (*processordomain.RefundResult, error) {
	if strings.TrimSpace(req.ProviderPaymentID) == "" || req.AmountCents <= 0 {
		return nil, processordomain.ErrInvalidRefundRequest
	}
	if strings.TrimSpace(req.IdempotencyKey) == "" {
		return nil, processordomain.ErrInvalidRefundRequest
	}

	form := url.Values{}
	form.Set("payment_intent", req.ProviderPaymentID)
	form.Set("amount", strconv.FormatInt(req.AmountCents, 10))
	if reason := strings.TrimSpace(req.Reason); reason != "" {
		form.Set("metadata[reason_code]", reason)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		g.baseURL+"/v1/refunds",
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", processordomain.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var body refundResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&body); decodeErr != nil && resp.StatusCode < 300 {
		return nil, fmt.Errorf("%w: malformed response", processordomain.ErrUnavailable)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return &processordomain.RefundResult{ProviderRefundID: body.ID}, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		g.log.Warn("stripe refund transient failure",
			zap.Int("status", resp.StatusCode),
			zap.String("idempotency_key", req.IdempotencyKey),
		)
		return nil, fmt.Errorf("%w: http %d", processordomain.ErrUnavailable, resp.StatusCode)
	default:
		message := ""
		if body.Error != nil {
			message = body.Error.Code
		}
		g.log.Warn("stripe refund rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("error_code", message),
			zap.String("idempotency_key", req.IdempotencyKey),
		)
		return nil, fmt.Errorf("%w: http %d %s", processordomain.ErrRejected, resp.StatusCode, message)
	}
}
