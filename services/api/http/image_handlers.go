package http

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eln-lab/eln-backend/services/api/blob"
	"github.com/eln-lab/eln-backend/services/api/db"
)

const maxImageSize = 10 << 20 // 10 MiB

var imageContentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// handleUploadImage attaches an image to a measurement. Multipart field "file".
// POST /api/v1/measurements/:id/images
func (s *Server) handleUploadImage(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	measurementID, ok := idParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	if _, ok := s.measurementWriteGate(c, ctx, measurementID); !ok {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field 'file' is required"})
		return
	}
	if header.Size > maxImageSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file exceeds the 10 MiB limit"})
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	contentType, allowed := imageContentTypes[ext]
	if !allowed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type, allowed: jpg, jpeg, png, gif, webp"})
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer file.Close()

	key := uuid.NewString() + ext
	info, err := s.blobs.Put(ctx, key, file, contentType)
	if err != nil {
		s.log.Errorw("blob upload failed", "key", key, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "image storage failed"})
		return
	}

	imageID, err := s.store.InsertImage(ctx, db.Image{
		MeasurementID:    measurementID,
		FileName:         key,
		OriginalFileName: header.Filename,
		ContentType:      contentType,
		FileSize:         info.Size,
		UploadedBy:       id.UserID,
	})
	if err != nil {
		// The row is the source of truth; orphaned blobs get cleaned up here.
		if delErr := s.blobs.Delete(ctx, key); delErr != nil {
			s.log.Warnw("orphaned blob cleanup failed", "key", key, "err", delErr)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	img, err := s.store.GetImage(ctx, imageID)
	if err != nil || img == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "image not readable after upload"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": img})
}

// handleListImages returns a measurement's image attachments, oldest first.
// GET /api/v1/measurements/:id/images
func (s *Server) handleListImages(c *gin.Context) {
	measurementID, ok := idParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	m, err := s.store.GetMeasurement(ctx, measurementID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if m == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "measurement not found"})
		return
	}

	images, err := s.store.ListImagesByMeasurement(ctx, measurementID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": images,
		"meta": gin.H{"count": len(images)},
	})
}

// handleDownloadImage streams the image bytes.
// GET /api/v1/images/:id
func (s *Server) handleDownloadImage(c *gin.Context) {
	imageID, ok := idParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	img, err := s.store.GetImage(ctx, imageID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if img == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "image not found"})
		return
	}

	info, reader, err := s.blobs.Get(ctx, img.FileName)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "image data not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer reader.Close()

	c.Header("Content-Disposition", `inline; filename="`+img.OriginalFileName+`"`)
	c.DataFromReader(http.StatusOK, info.Size, img.ContentType, reader, nil)
}

// handleDeleteImage removes an image attachment, row first, then the blob.
// DELETE /api/v1/images/:id
func (s *Server) handleDeleteImage(c *gin.Context) {
	imageID, ok := idParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	img, err := s.store.GetImage(ctx, imageID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if img == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "image not found"})
		return
	}

	if _, ok := s.measurementWriteGate(c, ctx, img.MeasurementID); !ok {
		return
	}

	if err := s.store.DeleteImage(ctx, imageID); err != nil {
		writeStoreError(c, err)
		return
	}

	if err := s.blobs.Delete(ctx, img.FileName); err != nil && !errors.Is(err, blob.ErrNotFound) {
		s.log.Warnw("blob delete failed", "key", img.FileName, "err", err)
	}

	c.Status(http.StatusNoContent)
}
