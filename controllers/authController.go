package controllers

import (
	"net/http"

	"civicsync/identity"
	"civicsync/middlewares"
	"civicsync/models"

	"github.com/gin-gonic/gin"
)

// AuthController serves registration and login.
type AuthController struct {
	identity *identity.Service
}

func NewAuthController(idService *identity.Service) *AuthController {
	return &AuthController{identity: idService}
}

// RegisterUser handles user registration
func (ac *AuthController) RegisterUser(c *gin.Context) {
	var input struct {
		Name       string                 `json:"name" binding:"required,max=50"`
		Email      string                 `json:"email" binding:"required,email"`
		Password   string                 `json:"password" binding:"required,min=6"`
		Role       models.Role            `json:"role"`
		Categories []models.IssueCategory `json:"categories"`
	}
	if !bindJSON(c, &input) {
		return
	}
	if input.Role == "" {
		input.Role = models.RoleCitizen
	}

	principal, err := ac.identity.Register(c.Request.Context(), identity.RegisterInput{
		Name:       input.Name,
		Email:      input.Email,
		Password:   input.Password,
		Role:       input.Role,
		Categories: input.Categories,
	})
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, principal)
}

// LoginUser checks credentials and returns a bearer token
func (ac *AuthController) LoginUser(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if !bindJSON(c, &input) {
		return
	}

	token, principal, err := ac.identity.Login(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": principal})
}

// GetMe returns the authenticated principal
func (ac *AuthController) GetMe(c *gin.Context) {
	p, ok := actor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, p)
}
