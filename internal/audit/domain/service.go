package domain

import "context"

// Service appends audit records. Writes are append-only; records are never
// updated or deleted.
type Service interface {
	AuditLog(ctx context.Context, action string, targetType string, targetID *string, metadata map[string]any) error
}
