// Package http exposes the ELN REST API.
package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eln-lab/eln-backend/services/api/auth"
	"github.com/eln-lab/eln-backend/services/api/blob"
	"github.com/eln-lab/eln-backend/services/api/config"
	"github.com/eln-lab/eln-backend/services/api/db"
)

// Server bundles router and dependencies for the REST API.
type Server struct {
	cfg    config.Config
	store  *db.Store
	blobs  blob.Store
	issuer *auth.TokenIssuer
	authn  auth.Authenticator
	log    *zap.SugaredLogger
	engine *gin.Engine
}

// New constructs a server with routes and middleware.
func New(cfg config.Config, store *db.Store, blobs blob.Store, issuer *auth.TokenIssuer, authn auth.Authenticator, log *zap.SugaredLogger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())
	engine.Use(corsMiddleware())

	server := &Server{
		cfg:    cfg,
		store:  store,
		blobs:  blobs,
		issuer: issuer,
		authn:  authn,
		log:    log,
		engine: engine,
	}
	server.registerRoutes()
	return server
}

// Engine exposes the underlying gin engine (for tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run starts the HTTP server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.ListenAddr(),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := s.engine.Group("/api/v1")

	// Public endpoints.
	v1.POST("/auth/login", s.handleLogin)
	v1.GET("/shared/:token", s.handleSharedSeries)

	// Everything else requires a valid token.
	authed := v1.Group("")
	authed.Use(auth.Middleware(s.issuer))

	templates := authed.Group("/templates")
	{
		templates.GET("", s.handleListTemplates)
		templates.POST("", s.handleCreateTemplate)
		templates.GET("/:id", s.handleGetTemplate)
		templates.DELETE("/:id", s.handleDeleteTemplate)
	}

	series := authed.Group("/series")
	{
		series.GET("", s.handleListSeries)
		series.POST("", s.handleCreateSeries)
		series.GET("/:id", s.handleGetSeries)
		series.PUT("/:id", s.handleUpdateSeries)
		series.DELETE("/:id", s.handleDeleteSeries)
		series.POST("/:id/lock", s.handleLockSeries)
		series.POST("/:id/unlock", s.handleUnlockSeries)
		series.GET("/:id/share", s.handleListShareLinks)
		series.POST("/:id/share", s.handleCreateShareLink)
	}

	measurements := authed.Group("/measurements")
	{
		measurements.GET("", s.handleListMeasurements)
		measurements.POST("", s.handleCreateMeasurement)
		measurements.GET("/:id", s.handleGetMeasurement)
		measurements.PUT("/:id", s.handleUpdateMeasurement)
		measurements.DELETE("/:id", s.handleDeleteMeasurement)
		measurements.GET("/:id/history", s.handleMeasurementHistory)
		measurements.GET("/:id/images", s.handleListImages)
		measurements.POST("/:id/images", s.handleUploadImage)
	}

	authed.POST("/validate", s.handleValidate)

	images := authed.Group("/images")
	{
		images.GET("/:id", s.handleDownloadImage)
		images.DELETE("/:id", s.handleDeleteImage)
	}

	share := authed.Group("/share")
	{
		share.DELETE("/:id", s.handleDeleteShareLink)
		share.POST("/:id/deactivate", s.handleDeactivateShareLink)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// identity returns the authenticated caller; aborts with 401 when absent.
func identity(c *gin.Context) (auth.Identity, bool) {
	id, ok := auth.FromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return auth.Identity{}, false
	}
	return id, true
}

// idParam parses the named path parameter as an int64; writes 400 on failure.
func idParam(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}
