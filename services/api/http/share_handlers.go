package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eln-lab/eln-backend/services/api/db"
	"github.com/eln-lab/eln-backend/services/api/serieslock"
)

type createShareLinkRequest struct {
	IsPublic          bool     `json:"is_public"`
	AllowedUserEmails []string `json:"allowed_user_emails"`
	ExpiresInDays     int      `json:"expires_in_days" binding:"required"`
}

func (s *Server) shareLinkResponse(link db.ShareLink) gin.H {
	return gin.H{
		"id":                  link.ID,
		"series_id":           link.SeriesID,
		"token":               link.Token,
		"share_url":           s.cfg.ShareBaseURL + "/shared/" + link.Token,
		"is_public":           link.IsPublic,
		"allowed_user_emails": link.AllowedEmails,
		"created_by":          link.CreatedBy,
		"created_by_username": link.CreatedByUsername,
		"created_at":          link.CreatedAt,
		"expires_at":          link.ExpiresAt,
		"is_active":           link.IsActive,
	}
}

// handleCreateShareLink issues a tokenized read-only link for a series.
// POST /api/v1/series/:id/share
func (s *Server) handleCreateShareLink(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	seriesID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req createShareLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expires_in_days is required"})
		return
	}
	if req.ExpiresInDays < 1 || req.ExpiresInDays > 365 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expires_in_days must be between 1 and 365"})
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

	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	expiresAt := time.Now().AddDate(0, 0, req.ExpiresInDays)

	linkID, err := s.store.CreateShareLink(ctx, seriesID, token, req.IsPublic, req.AllowedUserEmails, id.UserID, expiresAt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	link, err := s.store.GetShareLink(ctx, linkID)
	if err != nil || link == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "share link not readable after create"})
		return
	}

	s.log.Infow("share link created", "series_id", seriesID, "by", id.Username, "public", req.IsPublic)
	c.JSON(http.StatusCreated, gin.H{"data": s.shareLinkResponse(*link)})
}

// handleListShareLinks returns a series' share links, newest first.
// GET /api/v1/series/:id/share
func (s *Server) handleListShareLinks(c *gin.Context) {
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

	links, err := s.store.ListShareLinks(ctx, seriesID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	data := make([]gin.H, 0, len(links))
	for _, link := range links {
		data = append(data, s.shareLinkResponse(link))
	}

	c.JSON(http.StatusOK, gin.H{
		"data": data,
		"meta": gin.H{"count": len(data)},
	})
}

// shareLinkOwnerGate loads a share link and checks the caller created it
// (staff bypass the ownership check).
func (s *Server) shareLinkOwnerGate(c *gin.Context, ctx context.Context, linkID int64) (*db.ShareLink, bool) {
	id, ok := identity(c)
	if !ok {
		return nil, false
	}

	link, err := s.store.GetShareLink(ctx, linkID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	if link == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "share link not found"})
		return nil, false
	}

	if id.Role != serieslock.RoleStaff && link.CreatedBy != id.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the owner of this share link"})
		return nil, false
	}

	return link, true
}

// handleDeleteShareLink removes a share link.
// DELETE /api/v1/share/:id
func (s *Server) handleDeleteShareLink(c *gin.Context) {
	linkID, ok := idParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if _, ok := s.shareLinkOwnerGate(c, ctx, linkID); !ok {
		return
	}

	if err := s.store.DeleteShareLink(ctx, linkID); err != nil {
		writeStoreError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// handleDeactivateShareLink disables a share link without deleting it.
// POST /api/v1/share/:id/deactivate
func (s *Server) handleDeactivateShareLink(c *gin.Context) {
	linkID, ok := idParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if _, ok := s.shareLinkOwnerGate(c, ctx, linkID); !ok {
		return
	}

	if err := s.store.DeactivateShareLink(ctx, linkID); err != nil {
		writeStoreError(c, err)
		return
	}

	link, err := s.store.GetShareLink(ctx, linkID)
	if err != nil || link == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "share link not readable after deactivate"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": s.shareLinkResponse(*link)})
}

// handleSharedSeries serves the read-only shared view of a series. No token
// in the Authorization sense: the URL token is the credential. Private links
// require a matching email query parameter.
// GET /api/v1/shared/:token
func (s *Server) handleSharedSeries(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	link, err := s.store.GetShareLinkByToken(ctx, token)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if link == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "share link not found"})
		return
	}
	if !link.IsActive {
		c.JSON(http.StatusGone, gin.H{"error": "share link has been deactivated"})
		return
	}
	if time.Now().After(link.ExpiresAt) {
		c.JSON(http.StatusGone, gin.H{"error": "share link has expired"})
		return
	}

	if !link.IsPublic {
		email := c.Query("email")
		if !emailAllowed(link.AllowedEmails, email) {
			c.JSON(http.StatusForbidden, gin.H{"error": "email not allowed for this share link"})
			return
		}
	}

	ser, err := s.store.GetSeries(ctx, link.SeriesID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if ser == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "series not found"})
		return
	}

	measurements, err := s.store.ListMeasurementsBySeries(ctx, link.SeriesID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Shared readers see data only, no internal ids of other users.
	readonly := make([]gin.H, 0, len(measurements))
	for _, m := range measurements {
		readonly = append(readonly, gin.H{
			"id":                  m.ID,
			"template_name":       m.TemplateName,
			"data":                m.Data,
			"created_at":          m.CreatedAt,
			"created_by_username": m.CreatedByUsername,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"series":       ser,
			"measurements": readonly,
			"expires_at":   link.ExpiresAt,
		},
	})
}

func emailAllowed(allowed []string, email string) bool {
	if email == "" {
		return false
	}
	for _, a := range allowed {
		if strings.EqualFold(a, email) {
			return true
		}
	}
	return false
}
