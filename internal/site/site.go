// Package site owns pueblo definitions, their capacity and the occupancy
// query other modules and clients read.
package site

import (
	"log/slog"

	"misiones/internal/platform/middleware"
	"misiones/internal/site/handler"
	"misiones/internal/site/service"
)

// Service exposes site administration and occupancy.
type Service = service.Service

// Handler wires HTTP endpoints to the site service.
type Handler = handler.Handler

// NewService constructs the site service with required dependencies.
func NewService(sites service.SiteStore, counter service.ConfirmedCounter, tx service.SiteTx, opts ...service.Option) *Service {
	return service.New(sites, counter, tx, opts...)
}

// NewHandler constructs an HTTP handler for occupancy and site admin routes.
func NewHandler(s *Service, logger *slog.Logger, validator middleware.JWTValidator) *Handler {
	return handler.New(s, logger, validator)
}
