package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eln-lab/eln-backend/services/api/db"
	"github.com/eln-lab/eln-backend/services/api/validation"
)

type createTemplateRequest struct {
	Name     string                       `json:"name" binding:"required"`
	Sections []validation.TemplateSection `json:"sections" binding:"required"`
}

// templateSchemaDoc is the persisted schema envelope.
type templateSchemaDoc struct {
	Sections []validation.TemplateSection `json:"sections"`
}

func templateResponse(t db.Template) gin.H {
	var doc templateSchemaDoc
	_ = json.Unmarshal(t.Schema, &doc)

	fieldCount := 0
	for _, sec := range doc.Sections {
		fieldCount += len(sec.Fields)
	}

	return gin.H{
		"id":                  t.ID,
		"name":                t.Name,
		"sections":            doc.Sections,
		"section_count":       len(doc.Sections),
		"field_count":         fieldCount,
		"created_by":          t.CreatedBy,
		"created_by_username": t.CreatedByUsername,
		"created_at":          t.CreatedAt,
	}
}

// handleCreateTemplate stores a new template schema.
// POST /api/v1/templates
func (s *Server) handleCreateTemplate(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	var req createTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and sections are required"})
		return
	}

	schema, err := json.Marshal(templateSchemaDoc{Sections: req.Sections})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	templateID, err := s.store.CreateTemplate(ctx, req.Name, schema, id.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	template, err := s.store.GetTemplate(ctx, templateID)
	if err != nil || template == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "template not readable after create"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": templateResponse(*template)})
}

// handleListTemplates returns all templates.
// GET /api/v1/templates
func (s *Server) handleListTemplates(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	templates, err := s.store.ListTemplates(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	data := make([]gin.H, 0, len(templates))
	for _, t := range templates {
		data = append(data, templateResponse(t))
	}

	c.JSON(http.StatusOK, gin.H{
		"data": data,
		"meta": gin.H{"count": len(data)},
	})
}

// handleGetTemplate returns one template.
// GET /api/v1/templates/:id
func (s *Server) handleGetTemplate(c *gin.Context) {
	templateID, ok := idParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	template, err := s.store.GetTemplate(ctx, templateID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if template == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "template not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": templateResponse(*template)})
}

// handleDeleteTemplate removes a template.
// DELETE /api/v1/templates/:id
func (s *Server) handleDeleteTemplate(c *gin.Context) {
	templateID, ok := idParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if err := s.store.DeleteTemplate(ctx, templateID); err != nil {
		writeStoreError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
