// Package server is the HTTP surface of the API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"superconnector/internal/connector"
	"superconnector/internal/logger"
	"superconnector/internal/metrics"
	"superconnector/internal/store"
)

// Connector is the slice of the service layer the HTTP handlers need.
type Connector interface {
	Register(ctx context.Context, name, phone string, upload *connector.ResumeUpload) (*store.User, error)
	Connect(ctx context.Context, req *connector.ConnectionRequest) (*connector.MatchResult, error)
	GetUser(ctx context.Context, id string) (*store.User, error)
}

type Server struct {
	router  *gin.Engine
	service Connector
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func New(service Connector, m *metrics.Metrics, logger *zap.Logger, debug bool) *Server {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		router:  gin.New(),
		service: service,
		metrics: m,
		logger:  logger,
	}

	// observe sits outside recovery so panicking requests still count.
	s.router.Use(s.requestLogger(), s.observe(), gin.Recovery())
	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := s.router.Group("/api/discord")
	api.POST("/register", s.handleRegister)
	api.POST("/connect", s.handleConnect)
	api.GET("/users/:id", s.handleGetUser)
}

// Handler exposes the router to the http.Server in cmd and to tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// requestLogger tags every request with a uuid and logs it on completion.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := uuid.NewString()

		c.Next()

		logger.WithRequestID(s.logger, requestID).Info("request handled",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// observe records request metrics using the route template so path
// parameters do not fan out the label set.
func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		s.metrics.RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Super Connector API is running"})
}

func (s *Server) handleRegister(c *gin.Context) {
	name := c.PostForm("name")
	phone := c.PostForm("phone")
	if name == "" || phone == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and phone are required"})
		return
	}

	var upload *connector.ResumeUpload
	file, err := c.FormFile("resume")
	switch {
	case err == nil:
		f, openErr := file.Open()
		if openErr != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "reading resume upload: " + openErr.Error()})
			return
		}
		defer f.Close()
		upload = &connector.ResumeUpload{Filename: file.Filename, Data: f}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		// registration without a resume
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := s.service.Register(c.Request.Context(), name, phone, upload)
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (s *Server) handleConnect(c *gin.Context) {
	var req connector.ConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	result, err := s.service.Connect(c.Request.Context(), &req)
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleGetUser(c *gin.Context) {
	user, err := s.service.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// renderError maps flow errors onto the API status contract.
func (s *Server) renderError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, connector.ErrInvalidRequest), errors.Is(err, store.ErrInvalidPhone):
		status = http.StatusBadRequest
	case errors.Is(err, connector.ErrNoUsers), errors.Is(err, connector.ErrNoMatch), errors.Is(err, store.ErrUserNotFound):
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}

	c.JSON(status, gin.H{"error": err.Error()})
}
