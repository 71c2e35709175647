package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "a-test-secret-that-is-long-enough"

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newTokens(t *testing.T, c *clock) *HMACTokens {
	t.Helper()
	tokens, err := NewHMACTokens(Config{Secret: testSecret, Issuer: "ponzu", Now: c.Now})
	require.NoError(t, err)
	return tokens
}

func TestNewHMACTokens_RejectsShortSecret(t *testing.T) {
	_, err := NewHMACTokens(Config{Secret: "short"})
	assert.Error(t, err)
}

func TestIssueAndValidate(t *testing.T) {
	c := &clock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	tokens := newTokens(t, c)

	pair, err := tokens.Issue("65f1c0a2b3d4e5f6a7b8c9d0", "spike", "staff")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.Equal(t, int64(900), pair.ExpiresIn)

	claims, err := tokens.Validate(context.Background(), pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "65f1c0a2b3d4e5f6a7b8c9d0", claims.Subject)
	assert.Equal(t, "spike", claims.Username)
	assert.Equal(t, "ponzu", claims.Issuer)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.True(t, claims.HasRole("staff"))
	assert.False(t, claims.HasRole("superuser"))
	assert.True(t, c.now.Add(15*time.Minute).Equal(claims.ExpiresAt), "exp %v", claims.ExpiresAt)

	refresh, err := tokens.ValidateRefresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "65f1c0a2b3d4e5f6a7b8c9d0", refresh.Subject)
	assert.Empty(t, refresh.Username)
}

func TestValidate_TokenTypeIsEnforced(t *testing.T) {
	tokens := newTokens(t, &clock{now: time.Now()})
	pair, err := tokens.Issue("user-1", "faye")
	require.NoError(t, err)

	_, err = tokens.Validate(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	_, err = tokens.ValidateRefresh(context.Background(), pair.AccessToken)
	assert.ErrorIs(t, err, ErrWrongTokenType)
}

func TestValidate_Expired(t *testing.T) {
	c := &clock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	tokens := newTokens(t, c)
	pair, err := tokens.Issue("user-1", "jet")
	require.NoError(t, err)

	c.now = c.now.Add(16 * time.Minute)
	_, err = tokens.Validate(context.Background(), pair.AccessToken)
	assert.ErrorIs(t, err, ErrExpiredToken)

	_, err = tokens.ValidateRefresh(context.Background(), pair.RefreshToken)
	assert.NoError(t, err, "refresh token outlives the access token")
}

func TestValidate_Rejections(t *testing.T) {
	c := &clock{now: time.Now()}
	tokens := newTokens(t, c)
	pair, err := tokens.Issue("user-1", "ed")
	require.NoError(t, err)

	otherSecret, err := NewHMACTokens(Config{Secret: strings.Repeat("x", 32), Issuer: "ponzu", Now: c.Now})
	require.NoError(t, err)
	forged, err := otherSecret.Issue("user-1", "ed")
	require.NoError(t, err)

	otherIssuer, err := NewHMACTokens(Config{Secret: testSecret, Issuer: "elsewhere", Now: c.Now})
	require.NoError(t, err)
	foreign, err := otherIssuer.Issue("user-1", "ed")
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "user-1",
		"typ": TokenTypeAccess,
		"exp": c.now.Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":      "not.a.token",
		"tampered":     pair.AccessToken + "x",
		"wrong secret": forged.AccessToken,
		"wrong issuer": foreign.AccessToken,
		"alg none":     unsigned,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := tokens.Validate(context.Background(), token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestIssue_RequiresSubject(t *testing.T) {
	tokens := newTokens(t, &clock{now: time.Now()})
	_, err := tokens.Issue("", "nobody")
	assert.Error(t, err)
}

func TestClaimsContext(t *testing.T) {
	assert.Nil(t, GetClaims(context.Background()))

	claims := &Claims{Subject: "user-1"}
	ctx := WithClaims(context.Background(), claims)
	assert.Same(t, claims, GetClaims(ctx))
}
