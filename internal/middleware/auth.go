package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/foodgram/backend/internal/service"
)

const (
	actorKey = "actor"
	tokenKey = "token"
)

// Authenticator resolves a bearer token to the actor it belongs to.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (service.Actor, error)
}

// Authenticate resolves the Authorization header when present. Requests
// without one continue as anonymous; a bad token is rejected with 401.
// Both "Token <key>" and "Bearer <key>" are accepted.
func Authenticate(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(actorKey, service.Anonymous())

		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			c.Next()
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || (!strings.EqualFold(parts[0], "Token") && !strings.EqualFold(parts[0], "Bearer")) {
			_ = c.Error(service.ErrInvalidToken)
			c.Abort()
			return
		}

		actor, err := auth.Authenticate(c.Request.Context(), parts[1])
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}

		c.Set(actorKey, actor)
		c.Set(tokenKey, parts[1])
		c.Next()
	}
}

// RequireAuth rejects anonymous requests. It must run after Authenticate.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ActorFrom(c).Authenticated() {
			_ = c.Error(service.ErrUnauthorized)
			c.Abort()
			return
		}
		c.Next()
	}
}

// ActorFrom returns the actor stored by Authenticate, or an anonymous one.
func ActorFrom(c *gin.Context) service.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(service.Actor); ok {
			return actor
		}
	}
	return service.Anonymous()
}

// TokenFrom returns the raw token the request was authenticated with.
func TokenFrom(c *gin.Context) string {
	return c.GetString(tokenKey)
}
