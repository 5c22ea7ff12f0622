package handler

import (
	"net/http"
	"path/filepath"
	"strings"

	"motoexpress/internal/apperr"
	"motoexpress/internal/middleware"
	"motoexpress/internal/service"

	"github.com/gin-gonic/gin"
)

const maxDocumentBytes = 10 << 20

var documentExts = map[string]bool{".pdf": true, ".jpg": true, ".jpeg": true, ".png": true, ".webp": true}

type UploadHandler struct {
	profiles *service.ProfileService
}

func NewUploadHandler(profiles *service.ProfileService) *UploadHandler {
	return &UploadHandler{profiles: profiles}
}

// UploadDocument handles POST /motoboys/me/documents (multipart field "file").
func (h *UploadHandler) UploadDocument(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		fail(c, apperr.Validation("file is required"))
		return
	}
	if file.Size > maxDocumentBytes {
		fail(c, apperr.Validation("file must be at most 10MB"))
		return
	}
	if !documentExts[strings.ToLower(filepath.Ext(file.Filename))] {
		fail(c, apperr.Validation("file must be a PDF or an image"))
		return
	}
	f, err := file.Open()
	if err != nil {
		fail(c, apperr.Validation("could not read file"))
		return
	}
	defer f.Close()

	mb, err := h.profiles.UploadDocument(c.Request.Context(), middleware.CurrentUser(c), f)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"document_url": mb.DocumentURL})
}
