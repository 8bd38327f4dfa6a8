package routes

import (
	"github.com/gin-gonic/gin"
)

// AuthRoutes sets up the authentication routes
func AuthRoutes(r *gin.Engine, d Deps, auth gin.HandlerFunc) {
	group := r.Group("/api/auth")
	{
		group.POST("/register", d.Auth.RegisterUser)
		group.POST("/login", d.Auth.LoginUser)
		group.GET("/me", auth, d.Auth.GetMe)
	}
}
