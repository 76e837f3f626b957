package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eln-lab/eln-backend/services/api/serieslock"
)

type createSeriesRequest struct {
	Name         string  `json:"name" binding:"required"`
	Description  *string `json:"description"`
	ImportedFrom *string `json:"imported_from"`
}

type updateSeriesRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
}

// handleCreateSeries creates a measurement series.
// POST /api/v1/series
func (s *Server) handleCreateSeries(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	var req createSeriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	seriesID, err := s.store.CreateSeries(ctx, req.Name, req.Description, req.ImportedFrom, id.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ser, err := s.store.GetSeries(ctx, seriesID)
	if err != nil || ser == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "series not readable after create"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": ser})
}

// handleListSeries returns all series.
// GET /api/v1/series
func (s *Server) handleListSeries(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	series, err := s.store.ListSeries(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": series,
		"meta": gin.H{"count": len(series)},
	})
}

// handleGetSeries returns one series.
// GET /api/v1/series/:id
func (s *Server) handleGetSeries(c *gin.Context) {
	seriesID, ok := idParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	ser, err := s.store.GetSeries(ctx, seriesID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if ser == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "series not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": ser})
}

// handleUpdateSeries renames/redescribes an unlocked series.
// PUT /api/v1/series/:id
func (s *Server) handleUpdateSeries(c *gin.Context) {
	seriesID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req updateSeriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if err := s.store.UpdateSeries(ctx, seriesID, req.Name, req.Description); err != nil {
		writeStoreError(c, err)
		return
	}

	ser, err := s.store.GetSeries(ctx, seriesID)
	if err != nil || ser == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "series not readable after update"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": ser})
}

// handleDeleteSeries removes a series and everything in it. Staff only.
// DELETE /api/v1/series/:id
func (s *Server) handleDeleteSeries(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	if id.Role != serieslock.RoleStaff {
		c.JSON(http.StatusForbidden, gin.H{"error": "staff role required"})
		return
	}

	seriesID, ok := idParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if err := s.store.DeleteSeries(ctx, seriesID); err != nil {
		writeStoreError(c, err)
		return
	}

	s.log.Infow("series deleted", "series_id", seriesID, "by", id.Username)
	c.Status(http.StatusNoContent)
}

// handleLockSeries locks a series against further student edits. Staff only.
// POST /api/v1/series/:id/lock
func (s *Server) handleLockSeries(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	if id.Role != serieslock.RoleStaff {
		c.JSON(http.StatusForbidden, gin.H{"error": "staff role required"})
		return
	}

	seriesID, ok := idParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if err := s.store.LockSeries(ctx, seriesID, id.UserID); err != nil {
		writeStoreError(c, err)
		return
	}

	ser, err := s.store.GetSeries(ctx, seriesID)
	if err != nil || ser == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "series not readable after lock"})
		return
	}

	s.log.Infow("series locked", "series_id", seriesID, "by", id.Username)
	c.JSON(http.StatusOK, gin.H{"data": ser})
}

// handleUnlockSeries reopens a locked series. Staff only.
// POST /api/v1/series/:id/unlock
func (s *Server) handleUnlockSeries(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	if id.Role != serieslock.RoleStaff {
		c.JSON(http.StatusForbidden, gin.H{"error": "staff role required"})
		return
	}

	seriesID, ok := idParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if err := s.store.UnlockSeries(ctx, seriesID); err != nil {
		writeStoreError(c, err)
		return
	}

	ser, err := s.store.GetSeries(ctx, seriesID)
	if err != nil || ser == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "series not readable after unlock"})
		return
	}

	s.log.Infow("series unlocked", "series_id", seriesID, "by", id.Username)
	c.JSON(http.StatusOK, gin.H{"data": ser})
}
