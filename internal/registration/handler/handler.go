package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"misiones/internal/platform/middleware"
	"misiones/internal/registration/models"
	id "misiones/pkg/domain"
	dErrors "misiones/pkg/domain-errors"
	audit "misiones/pkg/platform/audit"
	"misiones/pkg/platform/httputil"
)

// Service defines the registration operations exposed over HTTP.
type Service interface {
	Register(ctx context.Context, siteID id.SiteID, req *models.RegisterRequest) (*models.RegisterResult, error)
	CancelAndPromote(ctx context.Context, regID id.RegistrationID, req *models.CancelRequest) (*models.CancelResult, error)
	GetRegistration(ctx context.Context, regID id.RegistrationID) (*models.RegistrationView, error)
	ListRegistrations(ctx context.Context, siteID id.SiteID, status *models.Status) ([]*models.RegistrationView, error)
	AttachDocument(ctx context.Context, regID id.RegistrationID, kind string, req *models.AttachDocumentRequest) (*models.RegistrationView, error)
	DeleteRegistration(ctx context.Context, regID id.RegistrationID) (*models.CancelResult, error)
	PromoteNext(ctx context.Context, siteID id.SiteID) (*models.Promoted, error)
}

// EventLog reads a registration's audit trail.
type EventLog interface {
	List(ctx context.Context, registrationID id.RegistrationID) ([]audit.Event, error)
}

// Handler serves the public registration routes and the admin routes that
// act on registrations.
type Handler struct {
	registrations Service
	logger        *slog.Logger
	jwtValidator  middleware.JWTValidator
	idempotent    func(http.Handler) http.Handler
	events        EventLog
}

type Option func(*Handler)

// WithEventLog exposes the audit trail at /v1/admin/registrations/{id}/events.
func WithEventLog(events EventLog) Option {
	return func(h *Handler) {
		h.events = events
	}
}

// WithIdempotency wraps registration submissions with mw.
func WithIdempotency(mw func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.idempotent = mw
	}
}

func New(registrations Service, logger *slog.Logger, jwtValidator middleware.JWTValidator, opts ...Option) *Handler {
	h := &Handler{registrations: registrations, logger: logger, jwtValidator: jwtValidator}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type cancelResponse struct {
	RegistrationID   id.RegistrationID `json:"registration_id"`
	PriorStatus      models.Status     `json:"prior_status"`
	AlreadyCancelled bool              `json:"already_cancelled,omitempty"`
	Promoted         *models.Promoted  `json:"promoted"`
	PromotionFailed  bool              `json:"promotion_failed,omitempty"`
}

type registrationListResponse struct {
	Registrations []*models.RegistrationView `json:"registrations"`
}

type promoteResponse struct {
	Promoted *models.Promoted `json:"promoted"`
}

type eventView struct {
	Action      string    `json:"action"`
	Category    string    `json:"category"`
	Timestamp   time.Time `json:"timestamp"`
	PriorStatus string    `json:"prior_status,omitempty"`
	Status      string    `json:"status,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	ActorID     string    `json:"actor_id,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
}

type eventListResponse struct {
	RegistrationID id.RegistrationID `json:"registration_id"`
	Events         []eventView       `json:"events"`
}

// Register mounts the public routes and the admin registration deletion.
func (h *Handler) Register(r chi.Router) {
	submit := http.Handler(http.HandlerFunc(h.handleRegister))
	if h.idempotent != nil {
		submit = h.idempotent(submit)
	}
	r.Method(http.MethodPost, "/v1/sites/{siteID}/registrations", submit)
	r.Get("/v1/registrations/{registrationID}", h.handleGetRegistration)
	r.Post("/v1/registrations/{registrationID}/cancel", h.handleCancel)
	r.Put("/v1/registrations/{registrationID}/documents/{kind}", h.handleAttachDocument)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Delete("/v1/admin/registrations/{registrationID}", h.handleDelete)
		if h.events != nil {
			r.Get("/v1/admin/registrations/{registrationID}/events", h.handleListEvents)
		}
	})
}

// RegisterSiteRoutes mounts the per-site admin routes. The caller has already
// checked access to {siteID}.
func (h *Handler) RegisterSiteRoutes(r chi.Router) {
	r.Get("/registrations", h.handleListRegistrations)
	r.Post("/promote", h.handlePromote)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	siteID, err := id.ParseSiteID(chi.URLParam(r, "siteID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req models.RegisterRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.registrations.Register(ctx, siteID, &req)
	if err != nil {
		h.fail(ctx, w, "failed to register", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, res)
}

func (h *Handler) handleGetRegistration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	regID, err := id.ParseRegistrationID(chi.URLParam(r, "registrationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	view, err := h.registrations.GetRegistration(ctx, regID)
	if err != nil {
		h.fail(ctx, w, "failed to get registration", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

// handleCancel answers a repeated cancellation with 200 and
// already_cancelled so client retries are a no-op.
func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	regID, err := id.ParseRegistrationID(chi.URLParam(r, "registrationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req models.CancelRequest
	if r.ContentLength != 0 {
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	res, err := h.registrations.CancelAndPromote(ctx, regID, &req)
	if errors.Is(err, models.ErrAlreadyCancelled) {
		httputil.WriteJSON(w, http.StatusOK, cancelResponse{
			RegistrationID:   regID,
			PriorStatus:      models.StatusCancelled,
			AlreadyCancelled: true,
		})
		return
	}
	if err != nil {
		h.fail(ctx, w, "failed to cancel registration", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCancelResponse(res))
}

func (h *Handler) handleAttachDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	regID, err := id.ParseRegistrationID(chi.URLParam(r, "registrationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req models.AttachDocumentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	view, err := h.registrations.AttachDocument(ctx, regID, chi.URLParam(r, "kind"), &req)
	if err != nil {
		h.fail(ctx, w, "failed to attach document", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handleListRegistrations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	siteID, err := id.ParseSiteID(chi.URLParam(r, "siteID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var status *models.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, err := models.ParseStatus(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "status must be confirmed, waitlisted or cancelled"))
			return
		}
		status = &parsed
	}
	views, err := h.registrations.ListRegistrations(ctx, siteID, status)
	if err != nil {
		h.fail(ctx, w, "failed to list registrations", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, registrationListResponse{Registrations: views})
}

func (h *Handler) handlePromote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	siteID, err := id.ParseSiteID(chi.URLParam(r, "siteID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	promoted, err := h.registrations.PromoteNext(ctx, siteID)
	if err != nil {
		h.fail(ctx, w, "failed to promote", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, promoteResponse{Promoted: promoted})
}

// managedRegistration parses the path id and checks the operator may manage
// the registration's site. It writes the error response and returns false
// otherwise.
func (h *Handler) managedRegistration(w http.ResponseWriter, r *http.Request) (id.RegistrationID, bool) {
	ctx := r.Context()
	regID, err := id.ParseRegistrationID(chi.URLParam(r, "registrationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return regID, false
	}
	view, err := h.registrations.GetRegistration(ctx, regID)
	if err != nil {
		h.fail(ctx, w, "failed to load registration", err)
		return regID, false
	}
	if !middleware.GetClaims(ctx).CanManageSite(view.SiteID.String()) {
		h.logger.WarnContext(ctx, "site access denied",
			"site_id", view.SiteID.String(),
			"request_id", middleware.GetRequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "no access to this site"))
		return regID, false
	}
	return regID, true
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	regID, ok := h.managedRegistration(w, r)
	if !ok {
		return
	}
	res, err := h.registrations.DeleteRegistration(ctx, regID)
	if err != nil {
		h.fail(ctx, w, "failed to delete registration", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCancelResponse(res))
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	regID, ok := h.managedRegistration(w, r)
	if !ok {
		return
	}
	events, err := h.events.List(ctx, regID)
	if err != nil {
		h.fail(ctx, w, "failed to list registration events", err)
		return
	}
	views := make([]eventView, 0, len(events))
	for _, e := range events {
		views = append(views, eventView{
			Action:      e.Action,
			Category:    string(e.Category),
			Timestamp:   e.Timestamp,
			PriorStatus: e.PriorStatus,
			Status:      e.Status,
			Reason:      e.Reason,
			ActorID:     e.ActorID,
			RequestID:   e.RequestID,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, eventListResponse{RegistrationID: regID, Events: views})
}

func toCancelResponse(res *models.CancelResult) cancelResponse {
	return cancelResponse{
		RegistrationID:  res.RegistrationID,
		PriorStatus:     res.PriorStatus,
		Promoted:        res.Promoted,
		PromotionFailed: res.PromotionFailed,
	}
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"error", err,
		"request_id", middleware.GetRequestID(ctx),
	)
	httputil.WriteError(w, err)
}
