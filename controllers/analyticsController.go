package controllers

import (
	"net/http"

	"civicsync/middlewares"
	"civicsync/services"

	"github.com/gin-gonic/gin"
)

// AnalyticsController serves the administrator dashboard.
type AnalyticsController struct {
	analytics *services.Analytics
}

func NewAnalyticsController(analytics *services.Analytics) *AnalyticsController {
	return &AnalyticsController{analytics: analytics}
}

// GetIssueAnalytics returns the current snapshot
func (ac *AnalyticsController) GetIssueAnalytics(c *gin.Context) {
	p, ok := actor(c)
	if !ok {
		return
	}
	snapshot, err := ac.analytics.Snapshot(c.Request.Context(), p)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}
