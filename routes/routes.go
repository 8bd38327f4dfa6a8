package routes

import (
	"net/http"
	"time"

	"civicsync/controllers"
	"civicsync/middlewares"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deps is everything the router needs.
type Deps struct {
	Auth          *controllers.AuthController
	Users         *controllers.UserController
	Issues        *controllers.IssueController
	Notifications *controllers.NotificationController
	Analytics     *controllers.AnalyticsController

	Resolver          middlewares.PrincipalResolver
	AllowRoleOverride bool

	// RateLimitClient may be nil, which disables the issue creation limit.
	RateLimitClient  *redis.Client
	IssueLimitPrefix string
	IssueRateLimit   int

	CORSOrigins []string
	Logger      *zap.Logger
}

// NewRouter builds the gin engine with every route group.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middlewares.RequestLogger(d.Logger), corsMiddleware(d.CORSOrigins))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	auth := middlewares.AuthMiddleware(d.Resolver, d.AllowRoleOverride, d.Logger)
	AuthRoutes(r, d, auth)
	UserRoutes(r, d, auth)
	IssueRoutes(r, d, auth)
	NotificationRoutes(r, d, auth)
	return r
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middlewares.RoleOverrideHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: len(origins) > 0,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}
