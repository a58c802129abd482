package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/newsdesk-api/internal/auth"
	"github.com/newsdesk-api/internal/models"
)

const (
	actorKey   = "actor"
	sessionKey = "session"

	accessTokenParam = "access_token"

	sessionMaxAge = 12 * time.Hour
)

// identityMiddleware resolves the bearer token into an actor. Requests without
// a token are anonymous; a token that fails verification is rejected.
func identityMiddleware(verifier *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.BearerToken(c.Request)
		if token == "" && websocket.IsWebSocketUpgrade(c.Request) {
			// browsers cannot set headers on a websocket handshake
			token = c.Query(accessTokenParam)
		}
		if token == "" {
			c.Set(actorKey, models.Anonymous())
			c.Next()
			return
		}

		actor, err := verifier.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

// sessionMiddleware makes sure every reader has a browsing session token,
// issuing a cookie when the client sent none
func sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := auth.SessionToken(c.Request)
		if !ok {
			token = auth.NewSessionToken()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(auth.SessionCookie, token, int(sessionMaxAge.Seconds()), "/", "", false, true)
			c.Header(auth.SessionHeader, token)
		}
		c.Set(sessionKey, token)
		c.Next()
	}
}

// requireAuth rejects anonymous requests
func requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if actorFrom(c).IsAnonymous() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}

func actorFrom(c *gin.Context) models.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(models.Actor); ok {
			return actor
		}
	}
	return models.Anonymous()
}

func sessionFrom(c *gin.Context) string {
	return c.GetString(sessionKey)
}
