package jwttoken

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "misiones/pkg/domain-errors"
)

const (
	RoleAdmin     = "admin"
	RoleSiteAdmin = "site_admin"
)

// Claims represents the JWT claims carried by operator tokens.
type Claims struct {
	Role    string   `json:"role"`
	SiteIDs []string `json:"site_ids,omitempty"`
	jwt.RegisteredClaims
}

// JWTService handles JWT creation and validation
type JWTService struct {
	signingKey []byte
	issuer     string
	now        func() time.Time
}

func NewJWTService(signingKey string, issuer string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		now:        time.Now,
	}
}

// IssueToken mints an operator token. site_admin tokens must name at least one
// site; admin tokens ignore siteIDs.
func (s *JWTService) IssueToken(subject, role string, siteIDs []string, expiresIn time.Duration) (string, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", dErrors.New(dErrors.CodeValidation, "subject is required")
	}
	switch role {
	case RoleAdmin:
		siteIDs = nil
	case RoleSiteAdmin:
		if len(siteIDs) == 0 {
			return "", dErrors.New(dErrors.CodeValidation, "site_admin tokens require at least one site")
		}
		siteIDs = slices.Clone(siteIDs)
		for i, raw := range siteIDs {
			parsed, err := uuid.Parse(strings.TrimSpace(raw))
			if err != nil {
				return "", dErrors.New(dErrors.CodeValidation, "site ids must be UUIDs")
			}
			siteIDs[i] = parsed.String()
		}
		slices.Sort(siteIDs)
		siteIDs = slices.Compact(siteIDs)
	default:
		return "", dErrors.New(dErrors.CodeValidation, "role must be admin or site_admin")
	}

	now := s.now()
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role:    role,
		SiteIDs: siteIDs,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})

	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithTimeFunc(s.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	if claims.Role != RoleAdmin && claims.Role != RoleSiteAdmin {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token role")
	}

	return claims, nil
}
