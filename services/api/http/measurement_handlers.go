package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eln-lab/eln-backend/services/api/db"
	"github.com/eln-lab/eln-backend/services/api/history"
	"github.com/eln-lab/eln-backend/services/api/serieslock"
	"github.com/eln-lab/eln-backend/services/api/validation"
)

type createMeasurementRequest struct {
	SeriesID   int64           `json:"series_id" binding:"required"`
	TemplateID int64           `json:"template_id" binding:"required"`
	Data       json.RawMessage `json:"data" binding:"required"`
}

type updateMeasurementRequest struct {
	Data json.RawMessage `json:"data" binding:"required"`
}

// handleCreateMeasurement validates the payload against the template schema
// and stores the measurement. Locked series reject student writes.
// POST /api/v1/measurements
func (s *Server) handleCreateMeasurement(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	var req createMeasurementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "series_id, template_id and data are required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	ser, err := s.store.GetSeries(ctx, req.SeriesID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if ser == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "series not found"})
		return
	}
	if !serieslock.CanMutate(ser.LockState(), id.Role) {
		c.JSON(http.StatusConflict, gin.H{"error": "series is locked"})
		return
	}

	template, err := s.store.GetTemplate(ctx, req.TemplateID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if template == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "template not found"})
		return
	}

	result := validation.ValidateStrict(template.Schema, req.Data)
	if !result.Valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "measurement data failed validation", "validation": result})
		return
	}

	measurementID, err := s.store.CreateMeasurement(ctx, req.SeriesID, req.TemplateID, req.Data, id.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	m, err := s.store.GetMeasurement(ctx, measurementID)
	if err != nil || m == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "measurement not readable after create"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": m})
}

// handleListMeasurements returns measurements matching optional query filters:
// template_id, series_id, date_from, date_to (YYYY-MM-DD) and search.
// GET /api/v1/measurements
func (s *Server) handleListMeasurements(c *gin.Context) {
	filter, ok := measurementFilterFromQuery(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	measurements, err := s.store.ListMeasurements(ctx, filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": measurements,
		"meta": gin.H{"count": len(measurements)},
	})
}

func measurementFilterFromQuery(c *gin.Context) (db.MeasurementFilter, bool) {
	var filter db.MeasurementFilter

	parseID := func(name string) (*int64, bool) {
		raw := c.Query(name)
		if raw == "" {
			return nil, true
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
			return nil, false
		}
		return &v, true
	}
	parseDate := func(name string) (*time.Time, bool) {
		raw := c.Query(name)
		if raw == "" {
			return nil, true
		}
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name + ", expected YYYY-MM-DD"})
			return nil, false
		}
		return &t, true
	}

	var ok bool
	if filter.TemplateID, ok = parseID("template_id"); !ok {
		return filter, false
	}
	if filter.SeriesID, ok = parseID("series_id"); !ok {
		return filter, false
	}
	if filter.DateFrom, ok = parseDate("date_from"); !ok {
		return filter, false
	}
	if filter.DateTo, ok = parseDate("date_to"); !ok {
		return filter, false
	}
	filter.SearchText = c.Query("search")

	return filter, true
}

// handleGetMeasurement returns one measurement.
// GET /api/v1/measurements/:id
func (s *Server) handleGetMeasurement(c *gin.Context) {
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

	c.JSON(http.StatusOK, gin.H{"data": m})
}

// measurementWriteGate loads a measurement and enforces ownership and the
// series lock. Students may touch only their own measurements, and nobody
// below staff touches a locked series.
func (s *Server) measurementWriteGate(c *gin.Context, ctx context.Context, measurementID int64) (*db.Measurement, bool) {
	id, ok := identity(c)
	if !ok {
		return nil, false
	}

	m, err := s.store.GetMeasurement(ctx, measurementID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	if m == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "measurement not found"})
		return nil, false
	}

	if id.Role != serieslock.RoleStaff && m.CreatedBy != id.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the owner of this measurement"})
		return nil, false
	}

	ser, err := s.store.GetSeries(ctx, m.SeriesID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	if ser == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "series not found"})
		return nil, false
	}
	if !serieslock.CanMutate(ser.LockState(), id.Role) {
		c.JSON(http.StatusConflict, gin.H{"error": "series is locked"})
		return nil, false
	}

	return m, true
}

// handleUpdateMeasurement replaces a measurement's data after re-validation.
// PUT /api/v1/measurements/:id
func (s *Server) handleUpdateMeasurement(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	measurementID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req updateMeasurementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "data is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	m, ok := s.measurementWriteGate(c, ctx, measurementID)
	if !ok {
		return
	}

	template, err := s.store.GetTemplate(ctx, m.TemplateID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if template == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "template not found"})
		return
	}

	result := validation.ValidateStrict(template.Schema, req.Data)
	if !result.Valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "measurement data failed validation", "validation": result})
		return
	}

	if err := s.store.UpdateMeasurementData(ctx, measurementID, req.Data, id.UserID); err != nil {
		writeStoreError(c, err)
		return
	}

	updated, err := s.store.GetMeasurement(ctx, measurementID)
	if err != nil || updated == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "measurement not readable after update"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": updated})
}

// handleDeleteMeasurement removes a measurement.
// DELETE /api/v1/measurements/:id
func (s *Server) handleDeleteMeasurement(c *gin.Context) {
	measurementID, ok := idParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	if _, ok := s.measurementWriteGate(c, ctx, measurementID); !ok {
		return
	}

	if err := s.store.DeleteMeasurement(ctx, measurementID); err != nil {
		writeStoreError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type historyResponseEntry struct {
	db.HistoryEntry
	Changes []history.FieldChange `json:"changes"`
}

// handleMeasurementHistory returns the edit history, newest first, with a
// field-level diff attached to each entry. Each stored snapshot is the data
// BEFORE the change took effect, so entry i diffs against snapshot i+1, and
// the last entry diffs against the measurement's current data.
// GET /api/v1/measurements/:id/history
func (s *Server) handleMeasurementHistory(c *gin.Context) {
	measurementID, ok := idParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
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

	entries, err := s.store.ListHistory(ctx, measurementID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]historyResponseEntry, 0, len(entries))
	for i, entry := range entries {
		var after json.RawMessage
		if i+1 < len(entries) {
			after = entries[i+1].DataSnapshot
		} else {
			after = m.Data
		}
		out = append(out, historyResponseEntry{
			HistoryEntry: entry,
			Changes:      history.Diff(decodeData(entry.DataSnapshot), decodeData(after)),
		})
	}

	// Newest first for display.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}

	c.JSON(http.StatusOK, gin.H{
		"data": out,
		"meta": gin.H{"count": len(out)},
	})
}

func decodeData(raw json.RawMessage) map[string]map[string]any {
	var data map[string]map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil
	}
	return data
}

type validateRequest struct {
	Sections []validation.TemplateSection `json:"sections" binding:"required"`
	Data     validation.MeasurementData   `json:"data"`
}

// handleValidate dry-runs measurement data against a schema without storing
// anything. Validation failures are part of the result, not an HTTP error.
// POST /api/v1/validate
func (s *Server) handleValidate(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sections are required"})
		return
	}

	result := validation.ValidateSimple(req.Sections, req.Data)
	c.JSON(http.StatusOK, gin.H{"data": result})
}
