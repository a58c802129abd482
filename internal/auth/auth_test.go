package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/newsdesk-api/internal/config"
	"github.com/newsdesk-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testVerifier() *Verifier {
	return NewVerifier(config.AuthConfig{JWTSecret: "s3cret", JWTIssuer: "newsdesk-auth", JWTAudience: "newsdesk-api"})
}

func TestVerifier_RoundTrip(t *testing.T) {
	v := testVerifier()
	token, err := v.Issue(models.Actor{UserID: "user-1", Email: "a@example.com"}, time.Hour)
	require.NoError(t, err)

	actor, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", actor.UserID)
	assert.Equal(t, "a@example.com", actor.Email)
}

func TestVerifier_Rejects(t *testing.T) {
	v := testVerifier()
	sign := func(claims Claims, secret string) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return s
	}
	valid := func() Claims {
		return Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "newsdesk-auth",
			Audience:  jwt.ClaimStrings{"newsdesk-api"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
	}

	expired := valid()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	wrongIssuer := valid()
	wrongIssuer.Issuer = "someone-else"
	wrongAudience := valid()
	wrongAudience.Audience = jwt.ClaimStrings{"other-api"}
	noSubject := valid()
	noSubject.Subject = ""

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", ErrMissingToken},
		{"garbage", "not-a-jwt", ErrInvalidToken},
		{"wrong secret", sign(valid(), "other"), ErrInvalidToken},
		{"expired", sign(expired, "s3cret"), ErrInvalidToken},
		{"wrong issuer", sign(wrongIssuer, "s3cret"), ErrInvalidIssuer},
		{"wrong audience", sign(wrongAudience, "s3cret"), ErrInvalidAudience},
		{"no subject", sign(noSubject, "s3cret"), ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actor, err := v.Verify(tt.token)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.True(t, actor.IsAnonymous())
		})
	}
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", BearerToken(r))

	r.Header.Set("Authorization", "Bearer abc.def")
	assert.Equal(t, "abc.def", BearerToken(r))

	r.Header.Set("Authorization", "Basic xyz")
	assert.Equal(t, "", BearerToken(r))
}

func TestSessionToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := SessionToken(r)
	assert.False(t, ok)

	r.AddCookie(&http.Cookie{Name: SessionCookie, Value: "from-cookie"})
	token, ok := SessionToken(r)
	assert.True(t, ok)
	assert.Equal(t, "from-cookie", token)

	r.Header.Set(SessionHeader, "from-header")
	token, _ = SessionToken(r)
	assert.Equal(t, "from-header", token, "header wins over cookie")

	assert.NotEqual(t, NewSessionToken(), NewSessionToken())
}
