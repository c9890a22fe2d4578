package events

// Event types published to the outbox for downstream consumers.
const (
	EventSessionEnded  = "session_ended"
	EventRefundIssued  = "refund_issued"
	EventRefundSettled = "refund_settled"
)

// RefundPayload captures the minimal data consumers need to react to a
// refund lifecycle event.
type RefundPayload struct {
	RefundID    string `json:"refund_id"`
	PurchaseID  string `json:"purchase_id"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	ReasonCode  string `json:"reason_code"`
}

// ToMap converts a payload into an outbox-friendly map.
func (p RefundPayload) ToMap() map[string]any {
	return map[string]any{
		"refund_id":    p.RefundID,
		"purchase_id":  p.PurchaseID,
		"amount_cents": p.AmountCents,
		"currency":     p.Currency,
		"reason_code":  p.ReasonCode,
	}
}

// SessionEndedPayload captures the minimal data needed to roll up a closed
// playback session.
type SessionEndedPayload struct {
	SessionID     string `json:"session_id"`
	EntitlementID string `json:"entitlement_id"`
	TotalWatchMs  int64  `json:"total_watch_ms"`
}

// ToMap converts a payload into an outbox-friendly map.
func (p SessionEndedPayload) ToMap() map[string]any {
	return map[string]any{
		"session_id":     p.SessionID,
		"entitlement_id": p.EntitlementID,
		"total_watch_ms": p.TotalWatchMs,
	}
}
