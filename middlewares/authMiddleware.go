package middlewares

import (
	"context"
	"net/http"

	"civicsync/apperr"
	"civicsync/identity"
	"civicsync/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	principalKey = "principal"

	// RoleOverrideHeader lets test tooling act under another role.
	RoleOverrideHeader = "X-Test-Role"
)

// PrincipalResolver turns a bearer credential into a principal.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, credential string) (models.Principal, error)
}

// AuthMiddleware resolves the Authorization header and stores the
// principal on the gin context. The role override header is honoured
// only when allowRoleOverride is set.
func AuthMiddleware(resolver PrincipalResolver, allowRoleOverride bool, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.Request.Header.Get("Authorization")
		if authHeader == "" {
			RespondError(c, apperr.Unauthorized("no authorization token provided"))
			c.Abort()
			return
		}

		ctx := c.Request.Context()
		if allowRoleOverride {
			if role := c.Request.Header.Get(RoleOverrideHeader); role != "" {
				ctx = identity.WithRoleOverride(ctx, models.Role(role))
			}
		}

		principal, err := resolver.ResolvePrincipal(ctx, authHeader)
		if err != nil {
			logger.Debug("Token validation failed", zap.Error(err))
			RespondError(c, err)
			c.Abort()
			return
		}

		c.Set(principalKey, principal)
		c.Set("user_id", principal.ID)
		c.Next()
	}
}

// CurrentPrincipal returns the principal stored by AuthMiddleware.
func CurrentPrincipal(c *gin.Context) (models.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return models.Principal{}, false
	}
	p, ok := v.(models.Principal)
	return p, ok
}

// RespondError writes err as {"error": message, "code": kind}.
func RespondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusBadGateway {
		if logger, ok := c.Get(loggerKey); ok {
			logger.(*zap.Logger).Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		}
	}
	c.JSON(status, gin.H{"error": apperr.MessageOf(err), "code": apperr.KindOf(err)})
}
