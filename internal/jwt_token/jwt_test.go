package jwttoken

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"misiones/internal/platform/middleware"
	dErrors "misiones/pkg/domain-errors"
)

var jwtService = NewJWTService("test-signing-key", "test-issuer")
var expiresIn = time.Hour

func Test_IssueToken_Admin(t *testing.T) {
	token, err := jwtService.IssueToken("ops@misiones", RoleAdmin, []string{uuid.NewString()}, expiresIn)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops@misiones", claims.Subject)
	assert.Equal(t, RoleAdmin, claims.Role)
	assert.Empty(t, claims.SiteIDs, "admin tokens are not site scoped")
	assert.WithinDuration(t, time.Now().Add(expiresIn), claims.ExpiresAt.Time, time.Minute)
}

func Test_IssueToken_SiteAdminNormalizesSites(t *testing.T) {
	site := uuid.New()
	token, err := jwtService.IssueToken("coordinator", RoleSiteAdmin,
		[]string{" " + site.String() + " ", site.String()}, expiresIn)
	require.NoError(t, err)

	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, []string{site.String()}, claims.SiteIDs)
}

func Test_IssueToken_Rejections(t *testing.T) {
	cases := map[string]struct {
		subject string
		role    string
		sites   []string
	}{
		"missing subject":        {subject: " ", role: RoleAdmin},
		"unknown role":           {subject: "x", role: "registrant"},
		"site admin no sites":    {subject: "x", role: RoleSiteAdmin},
		"site admin bad site id": {subject: "x", role: RoleSiteAdmin, sites: []string{"pueblo-1"}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := jwtService.IssueToken(tc.subject, tc.role, tc.sites, expiresIn)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := jwtService.ValidateToken("invalid-token-string")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.Equal(t, "invalid token", err.Error())
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	token, err := jwtService.IssueToken("ops", RoleAdmin, nil, -time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, "token has expired", err.Error())
}

func Test_ValidateToken_WrongIssuerOrKey(t *testing.T) {
	other := NewJWTService("test-signing-key", "someone-else")
	token, err := other.IssueToken("ops", RoleAdmin, nil, expiresIn)
	require.NoError(t, err)
	_, err = jwtService.ValidateToken(token)
	require.Error(t, err)

	forged := NewJWTService("another-key", "test-issuer")
	token, err = forged.IssueToken("ops", RoleAdmin, nil, expiresIn)
	require.NoError(t, err)
	_, err = jwtService.ValidateToken(token)
	require.Error(t, err)
}

func Test_Adapter_ScopesSites(t *testing.T) {
	site := uuid.NewString()
	token, err := jwtService.IssueToken("coordinator", RoleSiteAdmin, []string{site}, expiresIn)
	require.NoError(t, err)

	claims, err := NewJWTServiceAdapter(jwtService).ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, middleware.RoleSiteAdmin, claims.Role)
	assert.True(t, claims.CanManageSite(site))
	assert.False(t, claims.CanManageSite(uuid.NewString()))
}
