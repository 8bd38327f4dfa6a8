package controllers

import (
	"net/http"

	"civicsync/middlewares"
	"civicsync/models"
	"civicsync/services"

	"github.com/gin-gonic/gin"
)

// NotificationController serves the caller's inbox and admin announcements.
type NotificationController struct {
	notifier *services.Notifier
}

func NewNotificationController(notifier *services.Notifier) *NotificationController {
	return &NotificationController{notifier: notifier}
}

// GetNotifications lists the caller's notifications; ?unread=true narrows
// to unread ones
func (nc *NotificationController) GetNotifications(c *gin.Context) {
	p, ok := actor(c)
	if !ok {
		return
	}
	notes, err := nc.notifier.ListForRecipient(c.Request.Context(), p.ID, c.Query("unread") == "true")
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, notes)
}

// GetUnreadCount returns how many of the caller's notifications are unread
func (nc *NotificationController) GetUnreadCount(c *gin.Context) {
	p, ok := actor(c)
	if !ok {
		return
	}
	count, err := nc.notifier.UnreadCount(c.Request.Context(), p.ID)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

// MarkRead marks one of the caller's notifications as read
func (nc *NotificationController) MarkRead(c *gin.Context) {
	p, ok := actor(c)
	if !ok {
		return
	}
	note, err := nc.notifier.MarkRead(c.Request.Context(), p.ID, c.Param("id"))
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, note)
}

// MarkAllRead marks every unread notification of the caller as read
func (nc *NotificationController) MarkAllRead(c *gin.Context) {
	p, ok := actor(c)
	if !ok {
		return
	}
	changed, err := nc.notifier.MarkAllRead(c.Request.Context(), p.ID)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": changed})
}

// DeleteNotification removes one of the caller's notifications
func (nc *NotificationController) DeleteNotification(c *gin.Context) {
	p, ok := actor(c)
	if !ok {
		return
	}
	if err := nc.notifier.Delete(c.Request.Context(), p.ID, c.Param("id")); err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification deleted successfully"})
}

// Announce sends an administrator message to a user or a group alias
func (nc *NotificationController) Announce(c *gin.Context) {
	p, ok := actor(c)
	if !ok {
		return
	}
	var input struct {
		To             string                  `json:"to" binding:"required"`
		Title          string                  `json:"title" binding:"required"`
		Message        string                  `json:"message" binding:"required"`
		Type           models.NotificationType `json:"type"`
		Priority       models.Priority         `json:"priority"`
		RelatedIssueID string                  `json:"relatedIssueId"`
	}
	if !bindJSON(c, &input) {
		return
	}
	sent, err := nc.notifier.Announce(c.Request.Context(), p, services.Dispatch{
		To:             input.To,
		Title:          input.Title,
		Message:        input.Message,
		Type:           input.Type,
		Priority:       input.Priority,
		RelatedIssueID: input.RelatedIssueID,
	})
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"sent": len(sent)})
}
