package routes

import (
	"github.com/gin-gonic/gin"
)

// NotificationRoutes sets up the inbox and announcement routes
func NotificationRoutes(r *gin.Engine, d Deps, auth gin.HandlerFunc) {
	notifications := r.Group("/api/notifications", auth)
	{
		notifications.GET("", d.Notifications.GetNotifications)
		notifications.GET("/unread-count", d.Notifications.GetUnreadCount)
		notifications.PATCH("/read-all", d.Notifications.MarkAllRead)
		notifications.PATCH("/:id/read", d.Notifications.MarkRead)
		notifications.DELETE("/:id", d.Notifications.DeleteNotification)
		notifications.POST("", d.Notifications.Announce)
	}
}
