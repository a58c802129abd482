// Package auth turns bearer tokens issued by the identity provider into actors.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/newsdesk-api/internal/config"
	"github.com/newsdesk-api/internal/models"
)

const (
	// SessionHeader carries the reader's browsing session token
	SessionHeader = "X-Session-Token"
	// SessionCookie is set when the client did not send a session token
	SessionCookie = "nd_session"
)

var (
	ErrMissingToken    = errors.New("missing bearer token")
	ErrInvalidToken    = errors.New("invalid bearer token")
	ErrInvalidIssuer   = errors.New("invalid token issuer")
	ErrInvalidAudience = errors.New("invalid token audience")
)

// Claims are the JWT claims the identity provider issues. The subject is the user id.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Verifier validates HMAC-signed bearer tokens
type Verifier struct {
	secret   []byte
	issuer   string
	audience string
	now      func() time.Time
}

// NewVerifier creates a verifier from the auth configuration
func NewVerifier(cfg config.AuthConfig) *Verifier {
	return &Verifier{
		secret:   []byte(cfg.JWTSecret),
		issuer:   cfg.JWTIssuer,
		audience: cfg.JWTAudience,
		now:      time.Now,
	}
}

// Verify parses token and returns the actor it identifies
func (v *Verifier) Verify(token string) (models.Actor, error) {
	if token == "" {
		return models.Anonymous(), ErrMissingToken
	}
	if len(v.secret) == 0 {
		return models.Anonymous(), fmt.Errorf("%w: secret not configured", ErrInvalidToken)
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithTimeFunc(v.now))
	if err != nil {
		return models.Anonymous(), fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return models.Anonymous(), ErrInvalidToken
	}
	if v.issuer != "" && claims.Issuer != v.issuer {
		return models.Anonymous(), ErrInvalidIssuer
	}
	if v.audience != "" && !hasAudience(claims.Audience, v.audience) {
		return models.Anonymous(), ErrInvalidAudience
	}
	if claims.Subject == "" {
		return models.Anonymous(), fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return models.Actor{UserID: claims.Subject, Email: claims.Email}, nil
}

// Issue signs a token for actor valid for ttl. Used by tooling and tests.
func (v *Verifier) Issue(actor models.Actor, ttl time.Duration) (string, error) {
	now := v.now()
	claims := Claims{
		Email: actor.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.UserID,
			Issuer:    v.issuer,
			Audience:  jwt.ClaimStrings{v.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

func hasAudience(aud jwt.ClaimStrings, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}

// BearerToken extracts the token from an "Authorization: Bearer ..." header
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// SessionToken returns the reader's session token from the header or cookie.
// ok is false when the client sent neither.
func SessionToken(r *http.Request) (token string, ok bool) {
	if t := strings.TrimSpace(r.Header.Get(SessionHeader)); t != "" {
		return t, true
	}
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value, true
	}
	return "", false
}

// NewSessionToken creates a fresh random session token
func NewSessionToken() string {
	return uuid.NewString()
}
