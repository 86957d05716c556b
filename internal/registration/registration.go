// Package registration owns admission, cancellation with waitlist promotion
// and the reads over a site's registrations.
package registration

import (
	"log/slog"

	"misiones/internal/platform/middleware"
	"misiones/internal/registration/handler"
	"misiones/internal/registration/service"
)

// Service runs every registration mutation under its site's lock.
type Service = service.Service

// Handler wires HTTP endpoints to the registration service.
type Handler = handler.Handler

// NewService constructs the registration service with required dependencies.
func NewService(ledger service.Ledger, sites service.SiteReader, tx service.SiteTx, opts ...service.Option) *Service {
	return service.New(ledger, sites, tx, opts...)
}

// NewHandler constructs an HTTP handler for the public and admin registration
// routes.
func NewHandler(s *Service, logger *slog.Logger, validator middleware.JWTValidator, opts ...handler.Option) *Handler {
	return handler.New(s, logger, validator, opts...)
}
