package testutil

import (
	"net/http"

	"misiones/internal/platform/middleware"
	"misiones/pkg/requestcontext"
)

// WithOperator attaches operator claims to req, as RequireAuth would after
// validating a bearer token.
func WithOperator(req *http.Request, subject, role string, siteIDs ...string) *http.Request {
	claims := &middleware.JWTClaims{Subject: subject, Role: role, SiteIDs: siteIDs}
	return req.WithContext(middleware.WithClaims(req.Context(), claims))
}

// WithRequestID sets the correlation id handlers log and echo.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
