// Package auth supplies the bearer token and tenant id a voice session is
// started with.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("auth: missing bearer token")
	ErrTokenExpired = errors.New("auth: token expired")
)

// Claims is the subset of access-token claims the client inspects. The
// signature is never verified client-side.
type Claims struct {
	Subject   string
	Email     string
	OrgID     string
	ExpiresAt time.Time
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Email       string         `json:"email,omitempty"`
	AppMetadata map[string]any `json:"app_metadata,omitempty"`
}

// ParseClaims decodes the claims of a JWT without verifying it. Tokens that
// are not JWTs return an error.
func ParseClaims(token string) (Claims, error) {
	var tc tokenClaims
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(token, &tc); err != nil {
		return Claims{}, fmt.Errorf("auth: parse token: %w", err)
	}
	c := Claims{
		Subject: tc.Subject,
		Email:   tc.Email,
	}
	if tc.ExpiresAt != nil {
		c.ExpiresAt = tc.ExpiresAt.Time
	}
	if org, ok := tc.AppMetadata["org_id"].(string); ok {
		c.OrgID = org
	}
	return c, nil
}

// Static serves a fixed token and tenant id.
type Static struct {
	token    string
	tenantID string

	// Now reports the current time for expiry checks. Defaults to time.Now.
	Now func() time.Time
}

// NewStatic returns credentials for token and tenantID.
func NewStatic(token, tenantID string) *Static {
	return &Static{
		token:    strings.TrimSpace(token),
		tenantID: strings.TrimSpace(tenantID),
		Now:      time.Now,
	}
}

// Token returns the bearer token. A JWT whose exp claim has passed yields
// ErrTokenExpired; opaque tokens are returned as-is.
func (s *Static) Token(_ context.Context) (string, error) {
	if s.token == "" {
		return "", ErrMissingToken
	}
	if c, err := ParseClaims(s.token); err == nil && !c.ExpiresAt.IsZero() && !s.Now().Before(c.ExpiresAt) {
		return "", fmt.Errorf("%w at %s", ErrTokenExpired, c.ExpiresAt.Format(time.RFC3339))
	}
	return s.token, nil
}

// TenantID returns the validated tenant id, or "" if none was configured.
func (s *Static) TenantID() string {
	return s.tenantID
}
