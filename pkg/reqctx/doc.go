// Package reqctx provides centralized request context management.
//
// This package is the single source of truth for request-scoped data:
// request metadata, the authenticated operator's claims, the bearer token
// forwarded to the assessment backend, and trace identifiers.
//
// # Context Keys
//
// All context keys are private unexported types to prevent collisions.
// Access is provided through type-safe getter and setter functions.
//
// # Usage
//
// Setting values (typically in middleware):
//
//	ctx = reqctx.WithRequestMeta(ctx, &reqctx.RequestMeta{
//	    RequestID:   "abc-123",
//	    ClientIP:    "192.168.1.1",
//	    RequestedAt: time.Now(),
//	})
//	ctx = reqctx.WithClaims(ctx, operator)
//	ctx = reqctx.WithAccessToken(ctx, bearer)
//
// Getting values (in services and the backend client):
//
//	userID, ok := reqctx.UserIDFromContext(ctx)
//	token := reqctx.AccessTokenFromContext(ctx)
//
// # Contracts
//
//   - RequestMeta is set by HTTP middleware for all requests
//   - Claims and the access token are set only for authenticated requests
//   - Trace IDs are available when tracing is enabled
package reqctx
