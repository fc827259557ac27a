package testutil

import (
	"context"

	"github.com/vidinfra/docvault/internal/types"
)

// SetupContext returns a context carrying the default test user and a fresh
// request id.
func SetupContext() context.Context {
	ctx := context.Background()
	ctx = types.SetUserID(ctx, types.DefaultUserID)
	ctx = types.SetRequestID(ctx, types.GenerateUUID())
	return ctx
}

// AnonymousContext has no acting user, so mutations record a null actor
func AnonymousContext() context.Context {
	return types.SetRequestID(context.Background(), types.GenerateUUID())
}
