package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/amaliareyes/seamline-backend/pkg/enums"
)

type contextKey string

const (
	ctxUserID contextKey = "user_id"
	ctxRole   contextKey = "actor_role"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

// ActorFromContext returns the typed actor identity seeded by Auth.
func ActorFromContext(ctx context.Context) (uuid.UUID, enums.ActorRole) {
	userID, err := uuid.Parse(UserIDFromContext(ctx))
	if err != nil {
		userID = uuid.Nil
	}
	return userID, enums.ActorRole(RoleFromContext(ctx))
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithRole injects the actor role into the context.
func WithRole(ctx context.Context, role string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxRole, role)
}
