package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"venuebook/models"
	"venuebook/services/documents"
	"venuebook/utils/apperr"

	"github.com/gin-gonic/gin"
)

const defaultSignedURLExpiry = 15 * time.Minute

// UploadDocument accepts a multipart form with a "file" part and a "type" field.
func (h *Handler) UploadDocument(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	// Leave headroom for the multipart envelope; the service enforces the real limit.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, documents.MaxFileSize+1<<20)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fail(c, apperr.Validation("file", "exceeds the 10 MB limit"))
			return
		}
		h.fail(c, apperr.Validation("file", "file not provided"))
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		h.fail(c, err)
		return
	}
	defer f.Close()

	doc, err := h.Documents.Upload(c.Request.Context(), s, models.DocumentType(c.PostForm("type")), documents.Upload{
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Body:        f,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"document": doc})
}

func (h *Handler) ListMyDocuments(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	docs, err := h.Documents.List(c.Request.Context(), s)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

// DocumentURL returns a signed download link. ?expires= is in seconds.
func (h *Handler) DocumentURL(c *gin.Context) {
	expires := defaultSignedURLExpiry
	if raw := c.Query("expires"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs <= 0 {
			h.fail(c, apperr.Validation("expires", "must be a positive number of seconds"))
			return
		}
		expires = time.Duration(secs) * time.Second
	}
	url, err := h.Documents.SignedURL(c.Request.Context(), optionalSession(c), c.Param("id"), expires)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (h *Handler) DeleteDocument(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := h.Documents.Delete(c.Request.Context(), s, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
