package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"misiones/pkg/requestcontext"
)

type stubValidator map[string]*JWTClaims

func (v stubValidator) ValidateToken(token string) (*JWTClaims, error) {
	if claims, ok := v[token]; ok {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

type AuthSuite struct {
	suite.Suite
	logger    *slog.Logger
	validator stubValidator
}

func TestAuthSuite(t *testing.T) {
	suite.Run(t, new(AuthSuite))
}

func (s *AuthSuite) SetupTest() {
	s.logger = slog.New(slog.DiscardHandler)
	s.validator = stubValidator{
		"admin":  {Subject: "root", Role: RoleAdmin},
		"scoped": {Subject: "coord", Role: RoleSiteAdmin, SiteIDs: []string{"san-pedro"}},
		"odd":    {Subject: "guest", Role: "viewer"},
	}
}

func (s *AuthSuite) router() http.Handler {
	r := chi.NewRouter()
	r.Use(RequireAuth(s.validator, s.logger))
	r.With(RequireSiteAccess(s.logger, "siteID")).Get("/sites/{siteID}", func(w http.ResponseWriter, r *http.Request) {
		claims := GetClaims(r.Context())
		_, _ = w.Write([]byte(claims.Subject + ":" + requestcontext.Actor(r.Context())))
	})
	r.With(RequireRole(s.logger, RoleAdmin)).Post("/sites", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	return r
}

func (s *AuthSuite) do(method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router().ServeHTTP(rec, req)
	return rec
}

func (s *AuthSuite) TestRequireAuth() {
	s.Run("missing header", func() {
		rec := s.do(http.MethodGet, "/sites/san-pedro", "")
		s.Equal(http.StatusUnauthorized, rec.Code)
		s.Contains(rec.Body.String(), "unauthorized")
	})

	s.Run("unknown token", func() {
		rec := s.do(http.MethodGet, "/sites/san-pedro", "forged")
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("claims and actor reach the handler", func() {
		rec := s.do(http.MethodGet, "/sites/san-pedro", "admin")
		s.Equal(http.StatusOK, rec.Code)
		s.Equal("root:root", rec.Body.String())
	})
}

func (s *AuthSuite) TestRequireSiteAccess() {
	s.Run("site admin inside scope", func() {
		s.Equal(http.StatusOK, s.do(http.MethodGet, "/sites/san-pedro", "scoped").Code)
	})

	s.Run("site ids compare case-insensitively", func() {
		s.Equal(http.StatusOK, s.do(http.MethodGet, "/sites/San-Pedro", "scoped").Code)
	})

	s.Run("site admin outside scope", func() {
		rec := s.do(http.MethodGet, "/sites/santa-ana", "scoped")
		s.Equal(http.StatusForbidden, rec.Code)
		s.Contains(rec.Body.String(), "forbidden")
	})

	s.Run("unknown role", func() {
		s.Equal(http.StatusForbidden, s.do(http.MethodGet, "/sites/san-pedro", "odd").Code)
	})
}

func (s *AuthSuite) TestRequireRole() {
	s.Equal(http.StatusCreated, s.do(http.MethodPost, "/sites", "admin").Code)
	s.Equal(http.StatusForbidden, s.do(http.MethodPost, "/sites", "scoped").Code)
}

func TestCanManageSite(t *testing.T) {
	var nilClaims *JWTClaims
	assert.False(t, nilClaims.CanManageSite("x"))

	admin := &JWTClaims{Role: RoleAdmin}
	assert.True(t, admin.CanManageSite("anything"))

	scoped := &JWTClaims{Role: RoleSiteAdmin, SiteIDs: []string{"a", "b"}}
	assert.True(t, scoped.CanManageSite("b"))
	assert.False(t, scoped.CanManageSite("c"))
}

func TestWithClaims(t *testing.T) {
	ctx := WithClaims(t.Context(), &JWTClaims{Subject: "ops"})
	require.NotNil(t, GetClaims(ctx))
	assert.Equal(t, "ops", requestcontext.Actor(ctx))
	assert.Nil(t, GetClaims(t.Context()))
}
