package testutil

import (
	"context"
	"time"

	"github.com/google/uuid"

	id "kindred/pkg/domain"
	"kindred/pkg/requestcontext"
)

// AuthedContext builds a context as the auth middleware would for the given
// caller, so service tests don't need the HTTP stack.
func AuthedContext(userID id.UserID, role id.Role) context.Context {
	ctx := requestcontext.WithUserID(context.Background(), userID)
	ctx = requestcontext.WithRole(ctx, role)
	return requestcontext.WithRequestID(ctx, uuid.NewString())
}

// ContextAt pins the request time, for tests exercising expiry deadlines.
func ContextAt(ctx context.Context, at time.Time) context.Context {
	return requestcontext.WithTime(ctx, at)
}
