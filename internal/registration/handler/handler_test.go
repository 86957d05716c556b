package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"misiones/internal/platform/middleware"
	"misiones/internal/registration/handler/mocks"
	"misiones/internal/registration/models"
	sitemodels "misiones/internal/site/models"
	id "misiones/pkg/domain"
	dErrors "misiones/pkg/domain-errors"
	audit "misiones/pkg/platform/audit"
	"misiones/pkg/platform/audit/publisher"
	auditmemory "misiones/pkg/platform/audit/store/memory"
)

type tokenTable map[string]*middleware.JWTClaims

func (t tokenTable) ValidateToken(token string) (*middleware.JWTClaims, error) {
	if c, ok := t[token]; ok {
		return c, nil
	}
	return nil, errors.New("unknown token")
}

type RegistrationHandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	events  *publisher.Publisher
	router  http.Handler
	siteID  id.SiteID
	regID   id.RegistrationID
}

func TestRegistrationHandlerSuite(t *testing.T) {
	suite.Run(t, new(RegistrationHandlerSuite))
}

func (s *RegistrationHandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	s.siteID = id.NewSiteID()
	s.regID = id.NewRegistrationID()

	tokens := tokenTable{
		"admin":   {Subject: "ops", Role: middleware.RoleAdmin},
		"scoped":  {Subject: "coord", Role: middleware.RoleSiteAdmin, SiteIDs: []string{s.siteID.String()}},
		"outside": {Subject: "other", Role: middleware.RoleSiteAdmin, SiteIDs: []string{id.NewSiteID().String()}},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.events = publisher.NewPublisher(auditmemory.NewInMemoryStore())
	h := New(s.service, logger, tokens, WithEventLog(s.events))

	r := chi.NewRouter()
	h.Register(r)
	r.Route("/v1/admin/sites/{siteID}", func(r chi.Router) {
		r.Use(middleware.RequireAuth(tokens, logger))
		r.Use(middleware.RequireSiteAccess(logger, "siteID"))
		h.RegisterSiteRoutes(r)
	})
	s.router = r
}

func (s *RegistrationHandlerSuite) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](s *RegistrationHandlerSuite, rec *httptest.ResponseRecorder) T {
	var v T
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func (s *RegistrationHandlerSuite) TestRegister() {
	body := map[string]any{"full_name": "Ana", "email": "ana@example.com", "document_number": "30111222"}

	s.Run("created", func() {
		pos := 2
		s.service.EXPECT().Register(gomock.Any(), s.siteID, gomock.Any()).
			DoAndReturn(func(_ any, _ id.SiteID, req *models.RegisterRequest) (*models.RegisterResult, error) {
				s.Equal("Ana", req.FullName)
				return &models.RegisterResult{ID: s.regID, Status: models.StatusWaitlisted, WaitlistPosition: &pos}, nil
			})
		rec := s.do(http.MethodPost, "/v1/sites/"+s.siteID.String()+"/registrations", "", body)
		s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
		res := decode[map[string]any](s, rec)
		s.Equal("waitlisted", res["status"])
		s.Equal(float64(2), res["waitlist_position"])
	})

	s.Run("inactive site is a conflict", func() {
		s.service.EXPECT().Register(gomock.Any(), s.siteID, gomock.Any()).Return(nil, models.ErrSiteInactive)
		rec := s.do(http.MethodPost, "/v1/sites/"+s.siteID.String()+"/registrations", "", body)
		s.Equal(http.StatusConflict, rec.Code)
		res := decode[map[string]string](s, rec)
		s.Equal("conflict", res["error"])
	})

	s.Run("unknown site", func() {
		s.service.EXPECT().Register(gomock.Any(), s.siteID, gomock.Any()).Return(nil, sitemodels.ErrSiteNotFound)
		rec := s.do(http.MethodPost, "/v1/sites/"+s.siteID.String()+"/registrations", "", body)
		s.Equal(http.StatusNotFound, rec.Code)
	})

	s.Run("malformed site id", func() {
		rec := s.do(http.MethodPost, "/v1/sites/not-a-uuid/registrations", "", body)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("unknown fields are rejected", func() {
		rec := s.do(http.MethodPost, "/v1/sites/"+s.siteID.String()+"/registrations", "", map[string]any{"status": "confirmed"})
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("transient failure", func() {
		s.service.EXPECT().Register(gomock.Any(), s.siteID, gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeUnavailable, "storage temporarily unavailable"))
		rec := s.do(http.MethodPost, "/v1/sites/"+s.siteID.String()+"/registrations", "", body)
		s.Equal(http.StatusServiceUnavailable, rec.Code)
	})
}

func (s *RegistrationHandlerSuite) TestCancel() {
	path := "/v1/registrations/" + s.regID.String() + "/cancel"

	s.Run("promotes", func() {
		promoted := &models.Promoted{RegistrationID: id.NewRegistrationID(), Name: "Carla", Email: "carla@example.com"}
		s.service.EXPECT().CancelAndPromote(gomock.Any(), s.regID, &models.CancelRequest{Reason: "viaje"}).
			Return(&models.CancelResult{RegistrationID: s.regID, SiteID: s.siteID, PriorStatus: models.StatusConfirmed, Promoted: promoted}, nil)
		rec := s.do(http.MethodPost, path, "", map[string]string{"reason": "viaje"})
		s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
		res := decode[map[string]any](s, rec)
		s.Equal("confirmed", res["prior_status"])
		s.Equal("Carla", res["promoted"].(map[string]any)["name"])
	})

	s.Run("without a body", func() {
		s.service.EXPECT().CancelAndPromote(gomock.Any(), s.regID, &models.CancelRequest{}).
			Return(&models.CancelResult{RegistrationID: s.regID, PriorStatus: models.StatusWaitlisted}, nil)
		rec := s.do(http.MethodPost, path, "", nil)
		s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
		res := decode[map[string]any](s, rec)
		s.Nil(res["promoted"])
	})

	s.Run("already cancelled is a no-op", func() {
		s.service.EXPECT().CancelAndPromote(gomock.Any(), s.regID, gomock.Any()).Return(nil, models.ErrAlreadyCancelled)
		rec := s.do(http.MethodPost, path, "", nil)
		s.Require().Equal(http.StatusOK, rec.Code)
		res := decode[map[string]any](s, rec)
		s.Equal(true, res["already_cancelled"])
		s.Equal("cancelled", res["prior_status"])
		s.Nil(res["promoted"])
	})

	s.Run("promotion failure is reported", func() {
		s.service.EXPECT().CancelAndPromote(gomock.Any(), s.regID, gomock.Any()).
			Return(&models.CancelResult{RegistrationID: s.regID, PriorStatus: models.StatusConfirmed, PromotionFailed: true}, nil)
		rec := s.do(http.MethodPost, path, "", nil)
		s.Require().Equal(http.StatusOK, rec.Code)
		res := decode[map[string]any](s, rec)
		s.Equal(true, res["promotion_failed"])
	})

	s.Run("not found", func() {
		s.service.EXPECT().CancelAndPromote(gomock.Any(), s.regID, gomock.Any()).Return(nil, models.ErrRegistrationNotFound)
		rec := s.do(http.MethodPost, path, "", nil)
		s.Equal(http.StatusNotFound, rec.Code)
	})
}

func (s *RegistrationHandlerSuite) TestGetAndAttach() {
	view := &models.RegistrationView{ID: s.regID, SiteID: s.siteID, Status: models.StatusConfirmed}
	s.service.EXPECT().GetRegistration(gomock.Any(), s.regID).Return(view, nil)
	rec := s.do(http.MethodGet, "/v1/registrations/"+s.regID.String(), "", nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	s.service.EXPECT().AttachDocument(gomock.Any(), s.regID, "medical", &models.AttachDocumentRequest{URL: "https://f.example.com/m.pdf"}).
		Return(view, nil)
	rec = s.do(http.MethodPut, "/v1/registrations/"+s.regID.String()+"/documents/medical", "",
		map[string]string{"url": "https://f.example.com/m.pdf"})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
}

func (s *RegistrationHandlerSuite) TestSiteAdminRoutes() {
	base := "/v1/admin/sites/" + s.siteID.String()

	s.Run("requires a token", func() {
		rec := s.do(http.MethodGet, base+"/registrations", "", nil)
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("site admins are scoped", func() {
		rec := s.do(http.MethodGet, base+"/registrations", "outside", nil)
		s.Equal(http.StatusForbidden, rec.Code)
	})

	s.Run("lists with a status filter", func() {
		status := models.StatusWaitlisted
		s.service.EXPECT().ListRegistrations(gomock.Any(), s.siteID, &status).Return([]*models.RegistrationView{}, nil)
		rec := s.do(http.MethodGet, base+"/registrations?status=waitlisted", "scoped", nil)
		s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	})

	s.Run("rejects an unknown status", func() {
		rec := s.do(http.MethodGet, base+"/registrations?status=pending", "admin", nil)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("manual promotion", func() {
		s.service.EXPECT().PromoteNext(gomock.Any(), s.siteID).Return(nil, nil)
		rec := s.do(http.MethodPost, base+"/promote", "admin", nil)
		s.Require().Equal(http.StatusOK, rec.Code)
		res := decode[map[string]any](s, rec)
		s.Contains(res, "promoted")
		s.Nil(res["promoted"])
	})
}

func (s *RegistrationHandlerSuite) TestDelete() {
	path := "/v1/admin/registrations/" + s.regID.String()
	view := &models.RegistrationView{ID: s.regID, SiteID: s.siteID, Status: models.StatusConfirmed}

	s.Run("outside the operator's sites", func() {
		s.service.EXPECT().GetRegistration(gomock.Any(), s.regID).Return(view, nil)
		rec := s.do(http.MethodDelete, path, "outside", nil)
		s.Equal(http.StatusForbidden, rec.Code)
	})

	s.Run("scoped operator deletes", func() {
		s.service.EXPECT().GetRegistration(gomock.Any(), s.regID).Return(view, nil)
		s.service.EXPECT().DeleteRegistration(gomock.Any(), s.regID).
			Return(&models.CancelResult{RegistrationID: s.regID, PriorStatus: models.StatusConfirmed}, nil)
		rec := s.do(http.MethodDelete, path, "scoped", nil)
		s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	})

	s.Run("anonymous", func() {
		rec := s.do(http.MethodDelete, path, "", nil)
		s.Equal(http.StatusUnauthorized, rec.Code)
	})
}

func (s *RegistrationHandlerSuite) TestListEvents() {
	path := "/v1/admin/registrations/" + s.regID.String() + "/events"
	view := &models.RegistrationView{ID: s.regID, SiteID: s.siteID, Status: models.StatusCancelled}
	at := time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()
	s.Require().NoError(s.events.Emit(ctx, audit.Event{
		RegistrationID: s.regID, SiteID: s.siteID, Action: string(audit.EventRegistrationCreated),
		Status: "confirmed", Timestamp: at,
	}))
	s.Require().NoError(s.events.Emit(ctx, audit.Event{
		RegistrationID: s.regID, SiteID: s.siteID, Action: string(audit.EventRegistrationCancelled),
		PriorStatus: "confirmed", Status: "cancelled", Reason: "viaje", ActorID: "coord", Timestamp: at.Add(time.Hour),
	}))
	s.Require().NoError(s.events.Emit(ctx, audit.Event{
		RegistrationID: id.NewRegistrationID(), Action: string(audit.EventRegistrationCreated),
	}))

	s.Run("scoped operator reads the trail in order", func() {
		s.service.EXPECT().GetRegistration(gomock.Any(), s.regID).Return(view, nil)
		rec := s.do(http.MethodGet, path, "scoped", nil)
		s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

		res := decode[eventListResponse](s, rec)
		s.Equal(s.regID, res.RegistrationID)
		s.Require().Len(res.Events, 2)
		s.Equal("registration_created", res.Events[0].Action)
		s.Equal("compliance", res.Events[0].Category)
		s.Equal("viaje", res.Events[1].Reason)
		s.Equal("coord", res.Events[1].ActorID)
		s.True(at.Add(time.Hour).Equal(res.Events[1].Timestamp))
	})

	s.Run("outside the operator's sites", func() {
		s.service.EXPECT().GetRegistration(gomock.Any(), s.regID).Return(view, nil)
		rec := s.do(http.MethodGet, path, "outside", nil)
		s.Equal(http.StatusForbidden, rec.Code)
	})

	s.Run("unknown registration", func() {
		s.service.EXPECT().GetRegistration(gomock.Any(), s.regID).Return(nil, models.ErrRegistrationNotFound)
		rec := s.do(http.MethodGet, path, "admin", nil)
		s.Equal(http.StatusNotFound, rec.Code)
	})

	s.Run("anonymous", func() {
		rec := s.do(http.MethodGet, path, "", nil)
		s.Equal(http.StatusUnauthorized, rec.Code)
	})
}
