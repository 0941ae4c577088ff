package testutil

import (
	"net/http"

	"vitrine/pkg/requestcontext"
)

// WithUser places an authenticated actor into the request context, simulating
// what the auth middleware does for a valid bearer token.
func WithUser(req *http.Request, userID string) *http.Request {
	ctx := requestcontext.WithActor(req.Context(), requestcontext.Actor{UserID: userID})
	return req.WithContext(ctx)
}

// WithGuestSession places a guest session actor into the request context,
// simulating what the session middleware does for a resolved token.
func WithGuestSession(req *http.Request, sessionID string) *http.Request {
	ctx := requestcontext.WithActor(req.Context(), requestcontext.Actor{SessionID: sessionID})
	return req.WithContext(ctx)
}

// WithClient attaches client metadata the same way the client-context
// middleware does.
func WithClient(req *http.Request, ip, userAgent, device string) *http.Request {
	ctx := requestcontext.WithClientMetadata(req.Context(), ip, userAgent, device)
	return req.WithContext(ctx)
}
