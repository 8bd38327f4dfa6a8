package controllers

import (
	"net/http"
	"time"

	"civicsync/middlewares"
	"civicsync/models"
	"civicsync/services"

	"github.com/gin-gonic/gin"
)

// IssueController serves the issue lifecycle endpoints.
type IssueController struct {
	workflow       *services.Workflow
	issues         *services.IssueStore
	maxUploadBytes int64
}

func NewIssueController(workflow *services.Workflow, issues *services.IssueStore, maxUploadBytes int64) *IssueController {
	return &IssueController{workflow: workflow, issues: issues, maxUploadBytes: maxUploadBytes}
}

// CreateIssue reports a new issue and runs automatic assignment
func (ic *IssueController) CreateIssue(c *gin.Context) {
	p, ok := actor(c)
	if !ok {
		return
	}
	var input struct {
		Title       string              `json:"title" binding:"required,max=200"`
		Description string              `json:"description" binding:"required,max=2000"`
		Category    string              `json:"category" binding:"required"`
		Location    string              `json:"location" binding:"required,max=200"`
		Priority    string              `json:"priority"`
		Coordinates *models.Coordinates `json:"coordinates"`
		PhotoURL    *string             `json:"photoUrl"`
	}
	if !bindJSON(c, &input) {
		return
	}

	issue, err := ic.workflow.ReportIssue(c.Request.Context(), p, services.NewIssue{
		Title:       input.Title,
		Description: input.Description,
		Category:    models.IssueCategory(input.Category),
		Location:    input.Location,
		Priority:    models.Priority(input.Priority),
		Coordinates: input.Coordinates,
		PhotoURL:    input.PhotoURL,
	})
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, issue)
}

// GetAllIssues lists issues, optionally filtered by status, category and
// a free text search over title and description
func (ic *IssueController) GetAllIssues(c *gin.Context) {
	filter := services.IssueFilter{Search: c.Query("search")}
	if s := c.Query("status"); s != "" && s != "all" {
		filter.Status = models.IssueStatus(s)
	}
	if cat := c.Query("category"); cat != "" && cat != "all" {
		filter.Category = models.IssueCategory(cat)
	}

	issues, err := ic.issues.List(c.Request.Context(), filter)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, issues)
}

// GetIssue returns one issue
func (ic *IssueController) GetIssue(c *gin.Context) {
	issue, err := ic.issues.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, issue)
}

// GetIssuesByUser returns the caller's own reports
func (ic *IssueController) GetIssuesByUser(c *gin.Context) {
	p, ok := actor(c)
	if !ok {
		return
	}
	issues, err := ic.issues.ListByReporter(c.Request.Context(), p.ID)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, issues)
}

// GetAssignedIssues returns the caller's work queue
func (ic *IssueController) GetAssignedIssues(c *gin.Context) {
	p, ok := actor(c)
	if !ok {
		return
	}
	issues, err := ic.issues.ListByAssignee(c.Request.Context(), p.ID)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, issues)
}

// GetClaimableIssues lists unassigned issues the caller may self-claim
func (ic *IssueController) GetClaimableIssues(c *gin.Context) {
	p, ok := actor(c)
	if !ok {
		return
	}
	issues, err := ic.workflow.ListClaimable(c.Request.Context(), p)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, issues)
}

// ClaimIssue lets a technician take an unassigned issue
func (ic *IssueController) ClaimIssue(c *gin.Context) {
	p, ok := actor(c)
	if !ok {
		return
	}
	issue, err := ic.workflow.Claim(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, issue)
}

// AssignIssue lets an administrator hand an issue to a technician
func (ic *IssueController) AssignIssue(c *gin.Context) {
	p, ok := actor(c)
	if !ok {
		return
	}
	var input struct {
		TechnicianID string `json:"technicianId" binding:"required"`
		Notes        string `json:"notes"`
	}
	if !bindJSON(c, &input) {
		return
	}
	issue, err := ic.workflow.Assign(c.Request.Context(), p, c.Param("id"), input.TechnicianID, input.Notes)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, issue)
}

// UpdateProgress is the technician status update
func (ic *IssueController) UpdateProgress(c *gin.Context) {
	p, ok := actor(c)
	if !ok {
		return
	}
	var input struct {
		Status                  *models.IssueStatus `json:"status"`
		Note                    *string             `json:"note"`
		EstimatedCompletionDate *time.Time          `json:"estimatedCompletionDate"`
	}
	if !bindJSON(c, &input) {
		return
	}
	issue, err := ic.workflow.UpdateAsTechnician(c.Request.Context(), p, c.Param("id"), services.TechnicianChange{
		Status:                  input.Status,
		Note:                    input.Note,
		EstimatedCompletionDate: input.EstimatedCompletionDate,
	})
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, issue)
}

// OverrideStatus is the administrator status change
func (ic *IssueController) OverrideStatus(c *gin.Context) {
	p, ok := actor(c)
	if !ok {
		return
	}
	var input struct {
		Status models.IssueStatus `json:"status" binding:"required"`
		Note   *string            `json:"note"`
	}
	if !bindJSON(c, &input) {
		return
	}
	issue, err := ic.workflow.OverrideStatus(c.Request.Context(), p, c.Param("id"), input.Status, input.Note)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, issue)
}

// UploadPhoto attaches an image to the issue
func (ic *IssueController) UploadPhoto(c *gin.Context) {
	p, ok := actor(c)
	if !ok {
		return
	}
	data, contentType, ok := readImage(c, "photo", ic.maxUploadBytes)
	if !ok {
		return
	}
	issue, err := ic.workflow.AttachPhoto(c.Request.Context(), p, c.Param("id"), data, contentType)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, issue)
}
