package testutil

import (
	"net/http"

	"docverify/pkg/requestcontext"
)

// WithSubmitter simulates the auth middleware for an authenticated request.
func WithSubmitter(req *http.Request, submitterID, sessionID string) *http.Request {
	ctx := req.Context()
	if submitterID != "" {
		ctx = requestcontext.WithSubmitterID(ctx, submitterID)
	}
	if sessionID != "" {
		ctx = requestcontext.WithSessionID(ctx, sessionID)
	}
	return req.WithContext(ctx)
}

// WithClient simulates the client metadata middleware.
func WithClient(req *http.Request, clientIP, userAgent string) *http.Request {
	return req.WithContext(requestcontext.WithClientMetadata(req.Context(), clientIP, userAgent))
}
