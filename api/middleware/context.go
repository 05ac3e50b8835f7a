package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/mintfield/coinledger-backend/pkg/enums"
)

type contextKey string

const (
	ctxUserID  contextKey = "user_id"
	ctxLevel   contextKey = "user_level"
	ctxIsAdmin contextKey = "is_admin"
)

// UserIDFromContext returns the authenticated user id, or uuid.Nil.
func UserIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if v, ok := ctx.Value(ctxUserID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

// LevelFromContext returns the authenticated user's tier, or "".
func LevelFromContext(ctx context.Context) enums.UserLevel {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxLevel).(enums.UserLevel); ok {
		return v
	}
	return ""
}

// IsAdminFromContext reports whether the principal carries the admin role.
func IsAdminFromContext(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	if v, ok := ctx.Value(ctxIsAdmin).(bool); ok {
		return v
	}
	return false
}

// WithPrincipal injects the authenticated principal into the context. Exposed
// for handler tests.
func WithPrincipal(ctx context.Context, userID uuid.UUID, level enums.UserLevel, isAdmin bool) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, userID)
	ctx = context.WithValue(ctx, ctxLevel, level)
	return context.WithValue(ctx, ctxIsAdmin, isAdmin)
}
