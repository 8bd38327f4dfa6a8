package controllers

import (
	"net/http"

	"civicsync/blob"
	"civicsync/identity"
	"civicsync/middlewares"
	"civicsync/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserController serves profile changes.
type UserController struct {
	identity       *identity.Service
	avatars        blob.Store
	maxUploadBytes int64
	logger         *zap.Logger
}

func NewUserController(idService *identity.Service, avatars blob.Store, maxUploadBytes int64, logger *zap.Logger) *UserController {
	return &UserController{identity: idService, avatars: avatars, maxUploadBytes: maxUploadBytes, logger: logger}
}

// UpdateProfile changes the display name and technician categories.
func (uc *UserController) UpdateProfile(c *gin.Context) {
	p, ok := actor(c)
	if !ok {
		return
	}
	var input struct {
		Name       *string                `json:"name"`
		Categories []models.IssueCategory `json:"categories"`
	}
	if !bindJSON(c, &input) {
		return
	}

	updated, err := uc.identity.UpdateProfile(c.Request.Context(), p.ID, input.Name, input.Categories)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// UploadAvatar stores an image and points the profile at it.
func (uc *UserController) UploadAvatar(c *gin.Context) {
	p, ok := actor(c)
	if !ok {
		return
	}
	data, contentType, ok := readImage(c, "avatar", uc.maxUploadBytes)
	if !ok {
		return
	}

	url, err := uc.avatars.Store(c.Request.Context(), data, contentType)
	if err != nil {
		uc.logger.Error("Avatar upload failed", zap.String("user_id", p.ID), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to store avatar", "code": "adapter_failure"})
		return
	}
	updated, err := uc.identity.SetAvatar(c.Request.Context(), p.ID, url)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}
