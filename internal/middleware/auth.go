package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"laundry/internal/apperr"
	"laundry/internal/security"
)

// TokenCookie is the cookie carrying the access token.
const TokenCookie = "token"

// AuthGuard verifies the access token and stores the caller's identity on
// the context. The token cookie takes precedence over the Authorization
// header when both are present.
func AuthGuard(verifier security.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := extractToken(c)
		if raw == "" {
			abort(c, apperr.Unauthorized("", "authentication required"))
			return
		}

		identity, err := verifier.VerifyAccessToken(raw)
		if err != nil {
			if errors.Is(err, security.ErrTokenExpired) {
				abort(c, apperr.Unauthorized(apperr.CodeTokenExpired, "token expired"))
				return
			}
			abort(c, apperr.Unauthorized(apperr.CodeInvalidToken, "invalid token"))
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// Authorize admits callers whose role is one of roles. It must run after
// AuthGuard.
func Authorize(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := CurrentIdentity(c)
		if !ok {
			abort(c, apperr.Unauthorized("", "authentication required"))
			return
		}
		for _, r := range roles {
			if identity.Role == r {
				c.Next()
				return
			}
		}
		abort(c, apperr.Forbidden("insufficient permissions"))
	}
}

func extractToken(c *gin.Context) string {
	if cookie, err := c.Cookie(TokenCookie); err == nil && strings.TrimSpace(cookie) != "" {
		return strings.TrimSpace(cookie)
	}

	raw := strings.TrimSpace(c.GetHeader("Authorization"))
	if raw == "" {
		return ""
	}
	parts := strings.SplitN(raw, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func abort(c *gin.Context, err *apperr.Error) {
	c.AbortWithStatusJSON(err.Status(), err.Body())
}
