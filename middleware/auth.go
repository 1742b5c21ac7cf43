package middleware

import (
	"net/http"
	"strings"

	"venuebook/utils"

	"github.com/gin-gonic/gin"
)

// Authenticator turns bearer tokens into request Sessions.
type Authenticator struct {
	issuer *utils.TokenIssuer
}

// NewAuthenticator creates an Authenticator validating tokens with issuer.
func NewAuthenticator(issuer *utils.TokenIssuer) *Authenticator {
	return &Authenticator{issuer: issuer}
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer ")), true
}

func (a *Authenticator) session(c *gin.Context) (utils.Session, error) {
	tokenString, _ := bearerToken(c)
	claims, err := a.issuer.ValidateToken(tokenString)
	if err != nil {
		return utils.Session{}, err
	}
	return utils.Session{UserID: claims.Subject, Email: claims.Email, Role: claims.Role}, nil
}

func attach(c *gin.Context, s utils.Session) {
	c.Set(utils.SessionKey, s)
	c.Request = c.Request.WithContext(utils.WithSession(c.Request.Context(), s))
}

// RequireAuth rejects requests without a valid token. When roles are given
// the session must carry one of them.
func (a *Authenticator) RequireAuth(roles ...utils.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := bearerToken(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, utils.ErrorResponse{
				Message: "Missing or invalid Authorization header", Code: "unauthorized",
			})
			return
		}
		s, err := a.session(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, utils.ErrorResponse{
				Message: "Invalid token", Details: err.Error(), Code: "unauthorized",
			})
			return
		}
		if len(roles) > 0 && !hasRole(s.Role, roles) {
			c.AbortWithStatusJSON(http.StatusForbidden, utils.ErrorResponse{
				Message: "Forbidden", Details: "role " + string(s.Role) + " may not call this endpoint", Code: "forbidden",
			})
			return
		}
		attach(c, s)
		c.Next()
	}
}

// OptionalAuth attaches a Session when a valid token is present and lets
// anonymous requests through.
func (a *Authenticator) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := bearerToken(c); ok {
			if s, err := a.session(c); err == nil {
				attach(c, s)
			}
		}
		c.Next()
	}
}

func hasRole(role utils.Role, allowed []utils.Role) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
