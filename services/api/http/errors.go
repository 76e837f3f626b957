package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eln-lab/eln-backend/services/api/db"
	"github.com/eln-lab/eln-backend/services/api/serieslock"
)

// writeStoreError maps store sentinels to HTTP status codes. Missing rows
// become 404, lock precondition failures 409, anything else 500.
func writeStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, serieslock.ErrAlreadyLocked):
		c.JSON(http.StatusConflict, gin.H{"error": serieslock.ErrAlreadyLocked.Error()})
	case errors.Is(err, serieslock.ErrNotLocked):
		c.JSON(http.StatusConflict, gin.H{"error": serieslock.ErrNotLocked.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
