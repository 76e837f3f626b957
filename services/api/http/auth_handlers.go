package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eln-lab/eln-backend/services/api/auth"
	"github.com/eln-lab/eln-backend/services/api/serieslock"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// handleLogin verifies credentials, upserts the account and issues a JWT.
// POST /api/v1/auth/login
func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if err := s.authn.Authenticate(ctx, req.Username, req.Password); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		s.log.Errorw("credential backend failure", "username", req.Username, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "authentication backend unavailable"})
		return
	}

	role := serieslock.RoleStudent
	if s.cfg.IsStaffUser(req.Username) {
		role = serieslock.RoleStaff
	}

	user, err := s.store.EnsureUser(ctx, req.Username, role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	token, expiresAt, err := s.issuer.Issue(auth.Identity{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.log.Infow("user logged in", "username", user.Username, "role", user.Role)

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expiresAt.Format(time.RFC3339),
		"user":       user,
	})
}
