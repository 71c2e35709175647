// Package auth issues and validates the HS256 tokens handed out by the login endpoint.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token types carried in the "typ" claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
	minSecretLength   = 16
)

var (
	// ErrInvalidToken covers malformed tokens, bad signatures and wrong issuers.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned for a well formed token past its exp claim.
	ErrExpiredToken = errors.New("token expired")
	// ErrWrongTokenType is returned when a refresh token is presented as an access token or vice versa.
	ErrWrongTokenType = errors.New("wrong token type")
)

// JWTValidator validates JWT tokens and extracts claims.
type JWTValidator interface {
	Validate(ctx context.Context, token string) (*Claims, error)
}

// Claims represents the extracted claims from a validated JWT token.
type Claims struct {
	Subject   string   // user id
	Username  string   // username at issue time
	Issuer    string   // iss
	Roles     []string // staff, superuser
	TokenType string   // access or refresh
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// HasRole reports whether the claims carry role.
func (c *Claims) HasRole(role string) bool {
	if c == nil {
		return false
	}
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// TokenPair is the login and refresh response body.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Config configures the HMAC token service.
type Config struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// HMACTokens signs and validates HS256 tokens with a shared secret.
type HMACTokens struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

type tokenClaims struct {
	Username string   `json:"username,omitempty"`
	Roles    []string `json:"roles,omitempty"`
	Type     string   `json:"typ"`
	jwt.RegisteredClaims
}

// NewHMACTokens validates cfg and applies the default lifetimes of 15 minutes and 7 days.
func NewHMACTokens(cfg Config) (*HMACTokens, error) {
	if len(strings.TrimSpace(cfg.Secret)) < minSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d characters", minSecretLength)
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = defaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = defaultRefreshTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &HMACTokens{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        cfg.Now,
	}, nil
}

// Issue signs a fresh access/refresh pair for a user.
func (t *HMACTokens) Issue(subject, username string, roles ...string) (*TokenPair, error) {
	if subject == "" {
		return nil, errors.New("token subject is required")
	}
	access, err := t.sign(subject, username, roles, TokenTypeAccess, t.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := t.sign(subject, "", nil, TokenTypeRefresh, t.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		TokenType:    "Bearer",
		RefreshToken: refresh,
		ExpiresIn:    int64(t.accessTTL / time.Second),
	}, nil
}

// Validate accepts only access tokens.
func (t *HMACTokens) Validate(ctx context.Context, token string) (*Claims, error) {
	return t.parse(token, TokenTypeAccess)
}

// ValidateRefresh accepts only refresh tokens.
func (t *HMACTokens) ValidateRefresh(ctx context.Context, token string) (*Claims, error) {
	return t.parse(token, TokenTypeRefresh)
}

func (t *HMACTokens) sign(subject, username string, roles []string, typ string, ttl time.Duration) (string, error) {
	now := t.now()
	claims := tokenClaims{
		Username: username,
		Roles:    roles,
		Type:     typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, nil
}

func (t *HMACTokens) parse(raw, want string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}

	var claims tokenClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, opts...)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Type != want {
		return nil, ErrWrongTokenType
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	out := &Claims{
		Subject:   claims.Subject,
		Username:  claims.Username,
		Issuer:    claims.Issuer,
		Roles:     claims.Roles,
		TokenType: claims.Type,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}

// claimsContextKey is the context key for storing claims.
type claimsContextKey struct{}

// WithClaims stores claims in the context.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// GetClaims retrieves claims from the context.
// Returns nil if no claims are found.
func GetClaims(ctx context.Context) *Claims {
	if claims, ok := ctx.Value(claimsContextKey{}).(*Claims); ok {
		return claims
	}
	return nil
}
