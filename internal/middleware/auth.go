package middleware

import (
	"context"
	"strings"

	"doc-tracker/internal/auth"
	"doc-tracker/internal/domain"
	"doc-tracker/internal/errors"

	"github.com/gin-gonic/gin"
)

const (
	SessionKey = "session"
	TokenKey   = "jwt_token"
)

type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

type SessionProvider interface {
	Get(ctx context.Context, id string) (*domain.Session, error)
}

type Auth struct {
	Tokens   TokenVerifier
	Sessions SessionProvider
}

func (m *Auth) AuthMiddleWare() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		var token string
		tokenQuery := ctx.Query("token")

		if authHeader != "" {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		} else if tokenQuery != "" {
			// preview links are opened in a new tab without headers
			token = tokenQuery
		} else {
			ctx.Error(errors.Unauthorized("Authorization is not found!", nil))
			ctx.Abort()
			return
		}

		claims, err := m.Tokens.Verify(token)
		if err != nil {
			ctx.Error(errors.Unauthorized("Invalid token!", err))
			ctx.Abort()
			return
		}

		sess, err := m.Sessions.Get(ctx.Request.Context(), claims.SessionID)
		if err != nil {
			ctx.Error(errors.Unauthorized("Session expired or not found", err))
			ctx.Abort()
			return
		}

		ctx.Set(SessionKey, sess)
		ctx.Set(TokenKey, token)
		ctx.Next()
	}
}

// RequireAdmin must run after AuthMiddleWare.
func RequireAdmin() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		sess, ok := CurrentSession(ctx)
		if !ok || !sess.IsAdmin() {
			ctx.Error(errors.Forbidden("Admin privileges required", nil))
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

func CurrentSession(ctx *gin.Context) (*domain.Session, bool) {
	v, exists := ctx.Get(SessionKey)
	if !exists {
		return nil, false
	}
	sess, ok := v.(*domain.Session)
	return sess, ok
}
