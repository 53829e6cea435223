package middleware

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	ctxUserID    contextKey = "user_id"
	ctxTenantID  contextKey = "tenant_id"
	ctxRole      contextKey = "role"
	ctxRequestID contextKey = "request_id"
)

func withRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestID, requestID)
}

// RequestIDFrom returns the request id seeded by the RequestID middleware.
func RequestIDFrom(ctx context.Context) string {
	if v, ok := ctx.Value(ctxRequestID).(string); ok {
		return v
	}
	return ""
}

// UserIDFrom returns the authenticated staff user id.
func UserIDFrom(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(ctxUserID).(uuid.UUID)
	return v, ok
}

// TenantIDFrom returns the authenticated tenant id.
func TenantIDFrom(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(ctxTenantID).(uuid.UUID)
	return v, ok
}

// RoleFrom returns the authenticated staff role as a string.
func RoleFrom(ctx context.Context) string {
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}
