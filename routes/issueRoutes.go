package routes

import (
	"civicsync/middlewares"

	"github.com/gin-gonic/gin"
)

// IssueRoutes sets up the issue and analytics routes
func IssueRoutes(r *gin.Engine, d Deps, auth gin.HandlerFunc) {
	limiter := middlewares.IssueRateLimiter(d.RateLimitClient, d.IssueLimitPrefix, d.IssueRateLimit, d.Logger)

	issues := r.Group("/api/issues", auth)
	{
		issues.POST("", limiter, d.Issues.CreateIssue)
		issues.GET("", d.Issues.GetAllIssues)
		issues.GET("/mine", d.Issues.GetIssuesByUser)
		issues.GET("/assigned", d.Issues.GetAssignedIssues)
		issues.GET("/claimable", d.Issues.GetClaimableIssues)
		issues.GET("/:id", d.Issues.GetIssue)
		issues.POST("/:id/claim", d.Issues.ClaimIssue)
		issues.POST("/:id/assign", d.Issues.AssignIssue)
		issues.PATCH("/:id/progress", d.Issues.UpdateProgress)
		issues.PATCH("/:id/status", d.Issues.OverrideStatus)
		issues.POST("/:id/photo", d.Issues.UploadPhoto)
	}

	r.GET("/api/analytics", auth, d.Analytics.GetIssueAnalytics)
}
