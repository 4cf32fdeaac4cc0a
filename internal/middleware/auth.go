package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/orms-api/internal/model"
	"github.com/jwalitptl/orms-api/pkg/httputil"
)

const ContextAuth = "auth"

// TokenVerifier resolves a bearer token to the caller it was issued to.
type TokenVerifier interface {
	Verify(token string) (*model.AuthContext, error)
}

type AuthMiddleware struct {
	verifier TokenVerifier
}

func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// BearerToken extracts the token from an Authorization header value. The
// message names what is wrong when ok is false.
func BearerToken(header string) (token string, message string, ok bool) {
	if header == "" {
		return "", "Authentication token is missing", false
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", "Invalid token format", false
	}
	return parts[1], "", true
}

// Authenticate verifies the bearer token and stores the caller's
// AuthContext on the request.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, msg, ok := BearerToken(c.GetHeader("Authorization"))
		if !ok {
			httputil.AbortWithError(c, http.StatusUnauthorized, msg)
			return
		}

		auth, err := m.verifier.Verify(token)
		if err != nil {
			httputil.AbortWithError(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		c.Set(ContextAuth, *auth)
		c.Next()
	}
}

// RequireRole lets the request through only if the caller holds one of roles.
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth, ok := GetAuth(c)
		if !ok {
			httputil.AbortWithError(c, http.StatusUnauthorized, "Authentication token is missing")
			return
		}
		if !auth.HasRole(roles...) {
			httputil.AbortWithError(c, http.StatusForbidden, "Insufficient permissions")
			return
		}
		c.Next()
	}
}

// GetAuth returns the AuthContext set by Authenticate.
func GetAuth(c *gin.Context) (model.AuthContext, bool) {
	v, ok := c.Get(ContextAuth)
	if !ok {
		return model.AuthContext{}, false
	}
	auth, ok := v.(model.AuthContext)
	return auth, ok
}
