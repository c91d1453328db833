package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"quizd/internal/agent"
	"quizd/internal/logging"
	"quizd/internal/observability"
	"quizd/internal/server/handlers"
	"quizd/internal/server/middleware"
)

// Config carries the HTTP surface settings.
type Config struct {
	Addr         string
	AppName      string
	Secret       string
	Debug        bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server is the HTTP front of the quiz solver.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	logger     logging.Logger
	startTime  time.Time
	appName    string
}

// New assembles the gin engine, middleware chain, and routes.
func New(cfg Config, invoker agent.Invoker, metrics *observability.MetricsCollector, logger logging.Logger) *Server {
	logger = logging.OrNop(logger)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.RequestLogging(logger))
	engine.Use(middleware.Metrics(metrics))

	// Registered on the engine rather than the /api group so CORS preflights
	// are answered even though no OPTIONS routes exist.
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Requested-With"}
	engine.Use(cors.New(corsConfig))

	readTimeout := cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 30 * time.Second
	}
	// Agent runs can take minutes; the write timeout bounds the whole
	// response, so it must cover a full solver run.
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 15 * time.Minute
	}

	s := &Server{
		engine:    engine,
		logger:    logger,
		startTime: time.Now(),
		appName:   cfg.AppName,
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      engine,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
		},
	}

	s.setupRoutes(cfg, invoker, metrics)
	return s
}

func (s *Server) setupRoutes(cfg Config, invoker agent.Invoker, metrics *observability.MetricsCollector) {
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	quizHandler := handlers.NewQuizHandler(invoker, cfg.Secret, s.logger, metrics)

	api := s.engine.Group("/api")
	api.GET("/hello", handlers.Hello(cfg.AppName))
	api.POST("/quiz_solver", quizHandler.SolveQuiz)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"app":    s.appName,
		"uptime": time.Since(s.startTime).Round(time.Second).String(),
	})
}

// Handler exposes the engine for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start blocks serving HTTP until Stop is called or the listener fails.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server: %w", err)
	}
	return nil
}

// Stop drains in-flight requests and shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("HTTP server shutting down")
	return s.httpServer.Shutdown(ctx)
}
