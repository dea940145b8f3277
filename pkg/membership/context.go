package membership

import (
	"context"

	"github.com/google/uuid"
)

type userIDCtxKey struct{}

// SetUserIDToContext stores the authenticated user ID for downstream guard
// middleware. Typically called by the session/auth layer.
func SetUserIDToContext(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDCtxKey{}, userID)
}

// GetUserIDFromContext retrieves the authenticated user ID, if any.
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(userIDCtxKey{}).(uuid.UUID)
	return userID, ok && userID != uuid.Nil
}
