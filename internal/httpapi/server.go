// Package httpapi exposes the job pipeline over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/book-expert/lingocast/internal/core"
	"github.com/book-expert/lingocast/internal/pipeline"
	"github.com/book-expert/logger"
	"github.com/gin-gonic/gin"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 30 * time.Second
)

// JobRunner runs one job to a terminal state.
type JobRunner interface {
	Run(ctx context.Context, req core.JobRequest) pipeline.Outcome
}

// Controller holds the HTTP handlers.
type Controller struct {
	runner JobRunner
	log    *logger.Logger
}

// NewController creates a Controller.
func NewController(runner JobRunner, log *logger.Logger) *Controller {
	return &Controller{
		runner: runner,
		log:    log,
	}
}

// RegisterRoutes attaches the handlers to the engine.
func (c *Controller) RegisterRoutes(g *gin.Engine) {
	g.POST("/generate", c.Generate)
	g.GET("/health", c.Health)
}

// Generate runs one job synchronously and answers with its result.
func (c *Controller) Generate(ctx *gin.Context) {
	var req core.JobRequest

	err := ctx.ShouldBindJSON(&req)
	if err != nil {
		c.log.Warn("Rejected /generate request: %v", err)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})

		return
	}

	outcome := c.runner.Run(ctx.Request.Context(), req.WithDefaults())

	ctx.JSON(outcome.StatusCode(), outcome.Result)
}

// Health reports that the process is serving.
func (c *Controller) Health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// NewRouter builds the gin engine with recovery and request logging.
func NewRouter(runner JobRunner, log *logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	NewController(runner, log).RegisterRoutes(router)

	return router
}

func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		ctx.Next()

		log.Info("%s %s -> %d (%s)", ctx.Request.Method, ctx.Request.URL.Path, ctx.Writer.Status(), time.Since(start))
	}
}

// Server serves the router until its context is cancelled.
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
}

// NewServer creates a Server listening on addr.
func NewServer(addr string, handler http.Handler, log *logger.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		log: log,
	}
}

// Run listens until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("HTTP server listening on %s", s.httpServer.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("Shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return s.httpServer.Shutdown(shutdownCtx)
}
