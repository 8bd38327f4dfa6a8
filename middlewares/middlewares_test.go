package middlewares

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"civicsync/apperr"
	"civicsync/identity"
	"civicsync/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubResolver struct {
	principal models.Principal
}

func (s stubResolver) ResolvePrincipal(ctx context.Context, credential string) (models.Principal, error) {
	if strings.TrimPrefix(credential, "Bearer ") != "good" {
		return models.Principal{}, apperr.Unauthorized("invalid authorization token")
	}
	p := s.principal
	if role, ok := identity.RoleOverride(ctx); ok {
		p.Role = role
	}
	return p, nil
}

func newRouter(allowOverride bool, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	resolver := stubResolver{principal: models.Principal{ID: "u1", Role: models.RoleCitizen}}
	handlers := append([]gin.HandlerFunc{AuthMiddleware(resolver, allowOverride, zap.NewNop())}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		p, _ := CurrentPrincipal(c)
		c.JSON(http.StatusOK, gin.H{"id": p.ID, "role": p.Role})
	})
	r.GET("/me", handlers...)
	return r
}

func get(r http.Handler, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter(false)

	w := get(r, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", decode(t, w)["code"])

	w = get(r, map[string]string{"Authorization": "Bearer bad"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = get(r, map[string]string{"Authorization": "Bearer good", RoleOverrideHeader: "admin"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "citizen", decode(t, w)["role"], "override ignored when disabled")
}

func TestAuthMiddlewareRoleOverride(t *testing.T) {
	r := newRouter(true)

	w := get(r, map[string]string{"Authorization": "Bearer good", RoleOverrideHeader: "admin"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin", decode(t, w)["role"])

	w = get(r, map[string]string{"Authorization": "Bearer good", RoleOverrideHeader: "superuser"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "citizen", decode(t, w)["role"])
}

func TestIssueRateLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	r := newRouter(false, IssueRateLimiter(client, "issue_limit", 2, zap.NewNop()))
	auth := map[string]string{"Authorization": "Bearer good"}

	assert.Equal(t, http.StatusOK, get(r, auth).Code)
	assert.Equal(t, http.StatusOK, get(r, auth).Code)
	w := get(r, auth)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "rate_limited", decode(t, w)["code"])

	assert.Greater(t, mr.TTL("issue_limit:u1").Hours(), 23.0)
}

func TestIssueRateLimiterDisabledWithoutRedis(t *testing.T) {
	r := newRouter(false, IssueRateLimiter(nil, "issue_limit", 1, zap.NewNop()))
	auth := map[string]string{"Authorization": "Bearer good"}
	for range 3 {
		assert.Equal(t, http.StatusOK, get(r, auth).Code)
	}
}
