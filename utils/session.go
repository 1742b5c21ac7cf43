package utils

import (
	"context"

	"github.com/gin-gonic/gin"
)

// SessionKey is the gin context key holding the request Session.
const SessionKey = "session"

// Session is the authenticated actor of one request.
type Session struct {
	UserID string
	Email  string
	Role   Role
}

// IsAdmin reports whether the actor is an admin.
func (s Session) IsAdmin() bool { return s.Role == RoleAdmin }

type sessionCtxKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, s)
}

// SessionFromContext returns the Session stored in ctx, if any.
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionCtxKey{}).(Session)
	return s, ok
}

// GetSession returns the Session the auth middleware stored on c.
func GetSession(c *gin.Context) (Session, bool) {
	v, ok := c.Get(SessionKey)
	if !ok {
		return Session{}, false
	}
	s, ok := v.(Session)
	return s, ok
}
