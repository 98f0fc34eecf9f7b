// Package api provides the RESTful HTTP API for pocket-meta.
//
// SYSTEM ARCHITECTURE ROLE:
// This module is the HTTP interface layer. It lets an editor plugin or any
// other HTTP client drive the generation pipeline without linking Go code.
//
// KEY RESPONSIBILITIES:
// - Expose generation, insertion, suggestion and estimation endpoints
// - Expose template management and usage statistics
// - Wrap every response in the standard APIResponse envelope
// - Map AppErrors onto HTTP status codes through errors.HTTPErrorHandler
//
// INTEGRATION POINTS:
// - internal/service: every handler calls the orchestrator directly
// - internal/errors/handlers.go: HTTPErrorHandler builds error bodies
// - internal/metrics: request counters and the /metrics endpoint
// - internal/api/openapi.go: /api/openapi.json documents the routes below
//
// ENDPOINT STRUCTURE:
// - /api/v1/generate, /api/v1/insert: metadata for inline text or a file path
// - /api/v1/suggest, /api/v1/estimate: template ranking and cost estimate
// - /api/v1/templates: template CRUD and duplication
// - /api/v1/usage: statistics and reset
// - /api/v1/health, /metrics: monitoring
package api

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/dpshade/pocket-meta/internal/config"
	"github.com/dpshade/pocket-meta/internal/errors"
	"github.com/dpshade/pocket-meta/internal/frontmatter"
	"github.com/dpshade/pocket-meta/internal/logger"
	"github.com/dpshade/pocket-meta/internal/metrics"
	"github.com/dpshade/pocket-meta/internal/models"
	"github.com/dpshade/pocket-meta/internal/service"
	"github.com/dpshade/pocket-meta/internal/storage"
)

const (
	maxBodySize  = "2M"
	readTimeout  = 30 * time.Second
	writeTimeout = 90 * time.Second
	idleTimeout  = 120 * time.Second
)

// APIServer serves the HTTP API
type APIServer struct {
	service         *service.Service
	errorHandler    *errors.HTTPErrorHandler
	app             *echo.Echo
	address         string
	shutdownTimeout time.Duration
	metrics         bool
}

// NewAPIServer creates a server for svc
func NewAPIServer(svc *service.Service, cfg config.ServerConfig, metricsEnabled bool) *APIServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &APIServer{
		service:         svc,
		errorHandler:    errors.NewHTTPErrorHandler(true),
		app:             e,
		address:         cfg.Addr(),
		shutdownTimeout: cfg.ShutdownTimeout,
		metrics:         metricsEnabled,
	}
	if s.shutdownTimeout <= 0 {
		s.shutdownTimeout = 10 * time.Second
	}

	e.HTTPErrorHandler = s.handleError
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(maxBodySize))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
		MaxAge:       86400,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogLatency: true,
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
			)
			return nil
		},
	}))
	if metricsEnabled {
		e.Use(metricsMiddleware)
	}

	s.registerRoutes()
	return s
}

// Handler exposes the router, mainly for tests
func (s *APIServer) Handler() http.Handler {
	return s.app
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *APIServer) Run(ctx context.Context) error {
	logger.Info("API server starting", "addr", s.address)
	logger.Info("OpenAPI specification", "url", fmt.Sprintf("http://%s/api/openapi.json", s.address))

	httpServer := &http.Server{
		Addr:         s.address,
		Handler:      s.app,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.app.StartServer(httpServer); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.app.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		logger.Info("API server stopped")
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *APIServer) registerRoutes() {
	v1 := s.app.Group("/api/v1")

	v1.POST("/generate", s.handleGenerate)
	v1.POST("/insert", s.handleInsert)
	v1.POST("/suggest", s.handleSuggest)
	v1.POST("/estimate", s.handleEstimate)

	v1.GET("/templates", s.handleListTemplates)
	v1.POST("/templates", s.handleCreateTemplate)
	v1.GET("/templates/:id", s.handleGetTemplate)
	v1.PUT("/templates/:id", s.handleUpdateTemplate)
	v1.DELETE("/templates/:id", s.handleDeleteTemplate)
	v1.POST("/templates/:id/duplicate", s.handleDuplicateTemplate)

	v1.GET("/usage", s.handleUsage)
	v1.DELETE("/usage", s.handleResetUsage)

	v1.GET("/health", s.handleHealth)

	s.app.GET("/api/openapi.json", s.handleOpenAPISpec)
	if s.metrics {
		s.app.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	}
}

// APIResponse represents a standardized API response
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	Error     interface{} `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func (s *APIServer) writeResponse(c echo.Context, status int, data interface{}, message string) error {
	return c.JSON(status, APIResponse{
		Success:   status < 400,
		Data:      data,
		Message:   message,
		Timestamp: time.Now(),
	})
}

// handleError turns any handler error into the standard envelope
func (s *APIServer) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if stderrors.As(err, &he) {
		code := errors.ErrCodeInvalidInput
		switch he.Code {
		case http.StatusNotFound:
			code = errors.ErrCodeNotFound
		case http.StatusMethodNotAllowed:
			code = errors.ErrCodeInvalidCommand
		}
		_ = c.JSON(he.Code, APIResponse{
			Error:     errors.HTTPErrorInfo{Code: code, Message: fmt.Sprint(he.Message)},
			Timestamp: time.Now(),
		})
		return
	}

	status, body := s.errorHandler.Response(err)
	_ = c.JSON(status, APIResponse{Error: body.Error, Timestamp: time.Now()})
}

func metricsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)

		status := c.Response().Status
		if err != nil {
			var he *echo.HTTPError
			if stderrors.As(err, &he) {
				status = he.Code
			} else {
				status = errors.StatusCode(err)
			}
		}
		path := c.Path()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request().Method, path, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request().Method, path).Observe(time.Since(start).Seconds())
		return err
	}
}

func bind(c echo.Context, target interface{}) error {
	if err := c.Bind(target); err != nil {
		return errors.NewAppError(errors.ErrCodeInvalidInput, "invalid JSON payload").WithDetails(err.Error())
	}
	return nil
}

// GenerateRequest selects a document either by path or by inline content.
// Inline content is always previewed; nothing is written.
type GenerateRequest struct {
	Path       string `json:"path,omitempty"`
	Content    string `json:"content,omitempty"`
	FileName   string `json:"fileName,omitempty"`
	TemplateID string `json:"templateId,omitempty"`
	AutoSelect *bool  `json:"autoSelect,omitempty"`
	Preview    bool   `json:"preview"`
}

func (s *APIServer) handleGenerate(c echo.Context) error {
	var req GenerateRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	doc, inline, err := documentFor(req.Path, req.Content, req.FileName)
	if err != nil {
		return err
	}
	preview := req.Preview || inline
	ctx := c.Request().Context()

	var outcome service.GenerationOutcome
	if req.TemplateID != "" {
		tmpl, err := s.service.GetTemplate(req.TemplateID)
		if err != nil {
			return err
		}
		outcome, err = s.service.GenerateWithTemplate(ctx, doc, tmpl, "", preview)
		if err != nil {
			return err
		}
	} else {
		autoSelect := req.AutoSelect == nil || *req.AutoSelect
		outcome, err = s.service.GenerateForDocument(ctx, doc, autoSelect, preview)
		if err != nil {
			return err
		}
	}

	return s.writeResponse(c, http.StatusOK, outcome, "")
}

// InsertRequest writes metadata into a file, or returns the merged text of
// inline content
type InsertRequest struct {
	Path            string `json:"path,omitempty"`
	Content         string `json:"content,omitempty"`
	Metadata        string `json:"metadata"`
	ReplaceExisting bool   `json:"replaceExisting"`
}

func (s *APIServer) handleInsert(c echo.Context) error {
	var req InsertRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Metadata) == "" {
		return errors.ValidationError("metadata is required")
	}

	if req.Path == "" {
		return s.writeResponse(c, http.StatusOK, map[string]string{
			"document": frontmatter.Insert(req.Content, req.Metadata, req.ReplaceExisting),
		}, "")
	}

	doc, err := fileDocument(req.Path)
	if err != nil {
		return err
	}
	if err := s.service.InsertMetadata(c.Request().Context(), doc, req.Metadata, req.ReplaceExisting); err != nil {
		return err
	}
	return s.writeResponse(c, http.StatusOK, map[string]string{"path": req.Path}, "Metadata inserted")
}

// TextRequest carries a note body
type TextRequest struct {
	Content  string `json:"content"`
	FileName string `json:"fileName,omitempty"`
}

func (s *APIServer) handleSuggest(c echo.Context) error {
	var req TextRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	body := frontmatter.ExtractBody(req.Content)
	return s.writeResponse(c, http.StatusOK, s.service.SuggestTemplates(body, req.FileName), "")
}

func (s *APIServer) handleEstimate(c echo.Context) error {
	var req TextRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	return s.writeResponse(c, http.StatusOK, s.service.EstimateCost(req.Content), "")
}

func (s *APIServer) handleListTemplates(c echo.Context) error {
	if q := c.QueryParam("q"); q != "" {
		return s.writeResponse(c, http.StatusOK, s.service.SearchTemplates(q), "")
	}
	return s.writeResponse(c, http.StatusOK, s.service.ListTemplates(), "")
}

func (s *APIServer) handleGetTemplate(c echo.Context) error {
	tmpl, err := s.service.GetTemplate(c.Param("id"))
	if err != nil {
		return err
	}
	return s.writeResponse(c, http.StatusOK, tmpl, "")
}

func (s *APIServer) handleCreateTemplate(c echo.Context) error {
	var input models.TemplateInput
	if err := bind(c, &input); err != nil {
		return err
	}
	tmpl, err := s.service.CreateTemplate(input)
	if err != nil {
		return err
	}
	return s.writeResponse(c, http.StatusCreated, tmpl, "Template created")
}

func (s *APIServer) handleUpdateTemplate(c echo.Context) error {
	var patch models.TemplatePatch
	if err := bind(c, &patch); err != nil {
		return err
	}
	tmpl, err := s.service.UpdateTemplate(c.Param("id"), patch)
	if err != nil {
		return err
	}
	return s.writeResponse(c, http.StatusOK, tmpl, "Template updated")
}

func (s *APIServer) handleDeleteTemplate(c echo.Context) error {
	if err := s.service.DeleteTemplate(c.Param("id")); err != nil {
		return err
	}
	return s.writeResponse(c, http.StatusOK, nil, "Template deleted")
}

func (s *APIServer) handleDuplicateTemplate(c echo.Context) error {
	var req struct {
		Name string `json:"name"`
	}
	if c.Request().ContentLength > 0 {
		if err := bind(c, &req); err != nil {
			return err
		}
	}
	tmpl, err := s.service.DuplicateTemplate(c.Param("id"), req.Name)
	if err != nil {
		return err
	}
	return s.writeResponse(c, http.StatusCreated, tmpl, "Template duplicated")
}

func (s *APIServer) handleUsage(c echo.Context) error {
	return s.writeResponse(c, http.StatusOK, s.service.UsageStats(), "")
}

func (s *APIServer) handleResetUsage(c echo.Context) error {
	if err := s.service.ResetUsageStats(c.Request().Context()); err != nil {
		return err
	}
	return s.writeResponse(c, http.StatusOK, s.service.UsageStats(), "Usage statistics reset")
}

func (s *APIServer) handleHealth(c echo.Context) error {
	return s.writeResponse(c, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"templates": len(s.service.ListTemplates()),
	}, "")
}

// inlineDocument holds request content in memory
type inlineDocument struct {
	name string
	text string
}

func (d *inlineDocument) Name() string { return d.name }

func (d *inlineDocument) Read(ctx context.Context) (string, error) { return d.text, nil }

func (d *inlineDocument) Write(ctx context.Context, content string) error {
	d.text = content
	return nil
}

// fileDocument opens an existing note. Paths that do not exist are a 404,
// not a storage failure.
func fileDocument(path string) (*storage.FileDocument, error) {
	info, err := os.Stat(path)
	if stderrors.Is(err, os.ErrNotExist) {
		return nil, errors.NotFoundError(fmt.Sprintf("document %s", path))
	}
	if err != nil {
		return nil, errors.StorageError("stat document", err)
	}
	if info.IsDir() {
		return nil, errors.ValidationError(fmt.Sprintf("%s is a directory", path))
	}
	return storage.NewFileDocument(path), nil
}

func documentFor(path, content, fileName string) (service.Document, bool, error) {
	if path != "" {
		doc, err := fileDocument(path)
		if err != nil {
			return nil, false, err
		}
		return doc, false, nil
	}
	if strings.TrimSpace(content) == "" {
		return nil, false, errors.DocumentEmptyError(fileName)
	}
	if fileName == "" {
		fileName = "untitled.md"
	}
	return &inlineDocument{name: fileName, text: content}, true, nil
}
