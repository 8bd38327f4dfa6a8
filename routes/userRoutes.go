package routes

import (
	"github.com/gin-gonic/gin"
)

// UserRoutes sets up profile routes
func UserRoutes(r *gin.Engine, d Deps, auth gin.HandlerFunc) {
	users := r.Group("/api/users", auth)
	{
		users.PUT("/profile", d.Users.UpdateProfile)
		users.POST("/avatar", d.Users.UploadAvatar)
	}
}
