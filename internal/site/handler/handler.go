package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"misiones/internal/platform/middleware"
	"misiones/internal/site/models"
	id "misiones/pkg/domain"
	"misiones/pkg/platform/httputil"
)

// Service defines the site operations exposed over HTTP.
type Service interface {
	CreateSite(ctx context.Context, req *models.CreateSiteRequest) (*models.Site, error)
	UpdateSite(ctx context.Context, siteID id.SiteID, req *models.UpdateSiteRequest) (*models.Site, error)
	GetSite(ctx context.Context, siteID id.SiteID) (*models.Site, error)
	ListSites(ctx context.Context) ([]*models.Site, error)
	Occupancy(ctx context.Context) ([]models.Occupancy, error)
	SiteOccupancy(ctx context.Context, siteID id.SiteID) (*models.Occupancy, error)
}

// Handler serves the occupancy query and the site administration routes.
type Handler struct {
	sites        Service
	logger       *slog.Logger
	jwtValidator middleware.JWTValidator
}

func New(sites Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{sites: sites, logger: logger, jwtValidator: jwtValidator}
}

type siteListResponse struct {
	Sites []*models.Site `json:"sites"`
}

type occupancyResponse struct {
	Occupancy []models.Occupancy `json:"occupancy"`
}

// Register mounts public occupancy reads and the JWT-protected admin routes.
// siteRoutes are mounted under /v1/admin/sites/{siteID} behind the same
// site access check.
func (h *Handler) Register(r chi.Router, siteRoutes ...func(chi.Router)) {
	r.Get("/v1/occupancy", h.handleOccupancy)
	r.Get("/v1/occupancy/{siteID}", h.handleSiteOccupancy)

	r.Route("/v1/admin/sites", func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Get("/", h.handleListSites)
		r.With(middleware.RequireRole(h.logger, middleware.RoleAdmin)).Post("/", h.handleCreateSite)
		r.Route("/{siteID}", func(r chi.Router) {
			r.Use(middleware.RequireSiteAccess(h.logger, "siteID"))
			r.Get("/", h.handleGetSite)
			r.Patch("/", h.handleUpdateSite)
			for _, mount := range siteRoutes {
				mount(r)
			}
		})
	})
}

func (h *Handler) handleOccupancy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	occ, err := h.sites.Occupancy(ctx)
	if err != nil {
		h.fail(ctx, w, "failed to read occupancy", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, occupancyResponse{Occupancy: occ})
}

func (h *Handler) handleSiteOccupancy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	siteID, err := id.ParseSiteID(chi.URLParam(r, "siteID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	occ, err := h.sites.SiteOccupancy(ctx, siteID)
	if err != nil {
		h.fail(ctx, w, "failed to read site occupancy", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, occ)
}

// handleListSites lists the sites the operator may manage.
func (h *Handler) handleListSites(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sites, err := h.sites.ListSites(ctx)
	if err != nil {
		h.fail(ctx, w, "failed to list sites", err)
		return
	}
	claims := middleware.GetClaims(ctx)
	visible := make([]*models.Site, 0, len(sites))
	for _, site := range sites {
		if claims.CanManageSite(site.ID.String()) {
			visible = append(visible, site)
		}
	}
	httputil.WriteJSON(w, http.StatusOK, siteListResponse{Sites: visible})
}

func (h *Handler) handleCreateSite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.CreateSiteRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	site, err := h.sites.CreateSite(ctx, &req)
	if err != nil {
		h.fail(ctx, w, "failed to create site", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, site)
}

func (h *Handler) handleGetSite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	siteID, err := id.ParseSiteID(chi.URLParam(r, "siteID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	site, err := h.sites.GetSite(ctx, siteID)
	if err != nil {
		h.fail(ctx, w, "failed to get site", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, site)
}

func (h *Handler) handleUpdateSite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	siteID, err := id.ParseSiteID(chi.URLParam(r, "siteID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req models.UpdateSiteRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	site, err := h.sites.UpdateSite(ctx, siteID, &req)
	if err != nil {
		h.fail(ctx, w, "failed to update site", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, site)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"error", err,
		"request_id", middleware.GetRequestID(ctx),
	)
	httputil.WriteError(w, err)
}
