package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"venuebook/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthRouter(t *testing.T) (*gin.Engine, *utils.TokenIssuer) {
	issuer := utils.NewTokenIssuer("test-secret")
	auth := NewAuthenticator(issuer)
	r := gin.New()
	whoami := func(c *gin.Context) {
		s, ok := utils.GetSession(c)
		fromCtx, _ := utils.SessionFromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"ok": ok, "user": s.UserID, "ctxUser": fromCtx.UserID})
	}
	r.GET("/admin", auth.RequireAuth(utils.RoleAdmin), whoami)
	r.GET("/any", auth.RequireAuth(), whoami)
	r.GET("/maybe", auth.OptionalAuth(), whoami)
	return r, issuer
}

func get(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	r, issuer := newAuthRouter(t)
	owner, err := issuer.GenerateToken("owner-1", "o@example.com", utils.RoleOwner, time.Hour)
	require.NoError(t, err)
	admin, err := issuer.GenerateToken("admin-1", "a@example.com", utils.RoleAdmin, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, get(r, "/any", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/any", "garbage").Code)

	w := get(r, "/any", owner)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true,"user":"owner-1","ctxUser":"owner-1"}`, w.Body.String())

	assert.Equal(t, http.StatusForbidden, get(r, "/admin", owner).Code)
	assert.Equal(t, http.StatusOK, get(r, "/admin", admin).Code)
}

func TestOptionalAuth(t *testing.T) {
	r, issuer := newAuthRouter(t)
	w := get(r, "/maybe", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":false,"user":"","ctxUser":""}`, w.Body.String())

	w = get(r, "/maybe", "garbage")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":false,"user":"","ctxUser":""}`, w.Body.String())

	token, _ := issuer.GenerateToken("c1", "", utils.RoleClient, time.Hour)
	w = get(r, "/maybe", token)
	assert.JSONEq(t, `{"ok":true,"user":"c1","ctxUser":"c1"}`, w.Body.String())
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, zap.NewNop())
	r := gin.New()
	r.Use(rl.Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	do := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", ip+", 10.0.0.1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	assert.Equal(t, http.StatusNoContent, do("1.1.1.1"))
	assert.Equal(t, http.StatusNoContent, do("1.1.1.1"))
	assert.Equal(t, http.StatusTooManyRequests, do("1.1.1.1"))
	assert.Equal(t, http.StatusNoContent, do("2.2.2.2"))
}

func TestRateLimiterEvictsIdle(t *testing.T) {
	rl := NewRateLimiter(1, zap.NewNop())
	now := time.Now()
	first := rl.getLimiter("1.1.1.1", now)
	assert.Same(t, first, rl.getLimiter("1.1.1.1", now.Add(time.Minute)))
	assert.NotSame(t, first, rl.getLimiter("1.1.1.1", now.Add(time.Hour)))
}
