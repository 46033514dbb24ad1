package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/niramay-pgx-server/internal/domain"
	"github.com/niramay-pgx-server/internal/middleware"
	"github.com/niramay-pgx-server/internal/service"
)

const (
	// maxBodyBytes bounds request bodies, inline VCF content included
	maxBodyBytes    = 32 << 20
	shutdownTimeout = 30 * time.Second
	serviceVersion  = "1.0.0"
)

// StatusReporter describes backend state without calling any backend
type StatusReporter interface {
	Status() map[string]interface{}
}

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	analyzer      domain.Analyzer
	parser        service.VariantParser
	status        StatusReporter
	logger        *logrus.Logger
	router        *gin.Engine
	server        *http.Server
}

// NewServer creates a new HTTP server instance
func NewServer(
	configManager domain.ConfigManager,
	analyzer domain.Analyzer,
	parser service.VariantParser,
	status StatusReporter,
	logger *logrus.Logger,
) *Server {
	cfg := configManager.GetConfig()

	// Set Gin mode based on environment
	if cfg.Logging.Level == "debug" && !configManager.IsProduction() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.SecurityHeaders())
	router.Use(corsMiddleware())
	router.Use(middleware.AuditLogger(logger))
	router.Use(middleware.RequestTimeout(cfg.Server.RequestTimeout))

	server := &Server{
		configManager: configManager,
		analyzer:      analyzer,
		parser:        parser,
		status:        status,
		logger:        logger,
		router:        router,
	}

	server.setupRoutes()

	return server
}

// Handler exposes the router for embedding and tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/analyze-vcf", s.handleAnalyze)
		v1.GET("/status", s.handleStatus)
	}
}

// handleHealth is a liveness probe and touches no backend
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   serviceVersion,
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"backends":  s.status.Status(),
	})
}

// handleAnalyze runs a drug-response analysis over inline variants or VCF content
func (s *Server) handleAnalyze(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)

	var body domain.DrugRiskRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, domain.NewPGxError(
			domain.ErrInvalidInput, "invalid request body", err.Error(), requestID(c)))
		return
	}

	req, err := service.BuildAnalysisRequest(&body, s.parser)
	if err != nil {
		s.respondError(c, err)
		return
	}

	result, err := s.analyzer.Analyze(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// respondError maps caller mistakes to 400 and everything else to a generic 500
func (s *Server) respondError(c *gin.Context, err error) {
	reqID := requestID(c)
	body, callerFault := domain.ResponseError(err, reqID)
	if callerFault {
		c.JSON(http.StatusBadRequest, body)
		return
	}

	s.logger.WithError(err).WithField("correlation_id", reqID).Error("Analysis failed")
	c.JSON(http.StatusInternalServerError, body)
}

func requestID(c *gin.Context) string {
	return c.GetString(middleware.CorrelationIDKey)
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, "+middleware.CorrelationIDHeader)
		c.Header("Access-Control-Expose-Headers", "Content-Length, "+middleware.CorrelationIDHeader)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
