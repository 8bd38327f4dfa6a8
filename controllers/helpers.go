package controllers

import (
	"io"
	"net/http"
	"strings"

	"civicsync/apperr"
	"civicsync/middlewares"
	"civicsync/models"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
)

// actor returns the authenticated principal or writes a 401.
func actor(c *gin.Context) (models.Principal, bool) {
	p, ok := middlewares.CurrentPrincipal(c)
	if !ok {
		middlewares.RespondError(c, apperr.Unauthorized("user not authenticated"))
	}
	return p, ok
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		middlewares.RespondError(c, apperr.Validation("%s", err.Error()))
		return false
	}
	return true
}

// readImage reads the multipart file in field, rejecting anything over
// maxBytes or not sniffed as an image. It returns the data and the
// detected content type.
func readImage(c *gin.Context, field string, maxBytes int64) ([]byte, string, bool) {
	fh, err := c.FormFile(field)
	if err != nil {
		middlewares.RespondError(c, apperr.Validation("%s file is required", field))
		return nil, "", false
	}
	if fh.Size > maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large", "code": apperr.KindValidation})
		return nil, "", false
	}
	f, err := fh.Open()
	if err != nil {
		middlewares.RespondError(c, apperr.Validation("unreadable upload"))
		return nil, "", false
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		middlewares.RespondError(c, apperr.Validation("unreadable upload"))
		return nil, "", false
	}
	if int64(len(data)) > maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large", "code": apperr.KindValidation})
		return nil, "", false
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		middlewares.RespondError(c, apperr.Validation("unsupported file type %s", mtype.String()))
		return nil, "", false
	}
	return data, mtype.String(), true
}
