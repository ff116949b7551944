package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"synapse/internal/agent"
	"synapse/internal/config"
	"synapse/internal/evidence"
	"synapse/internal/logging"
	"synapse/internal/notify"
	"synapse/internal/session"
	"synapse/internal/tools"
)

// Server wires the agent, tool registry, and session store behind the HTTP
// API and owns the listener lifecycle.
type Server struct {
	cfg      *config.Config
	agent    *agent.Agent
	registry *tools.Registry
	sessions *session.Store
	evidence *evidence.Repo
	notifier notify.Sender
	logger   logging.Logger
	metrics  *Metrics

	engine *gin.Engine
	http   *http.Server
}

// Deps are the services the server exposes over HTTP.
type Deps struct {
	Agent    *agent.Agent
	Registry *tools.Registry
	Sessions *session.Store
	Evidence *evidence.Repo
	Notifier notify.Sender
	Logger   logging.Logger
}

// New builds the server and its router.
func New(cfg *config.Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	s := &Server{
		cfg:      cfg,
		agent:    deps.Agent,
		registry: deps.Registry,
		sessions: deps.Sessions,
		evidence: deps.Evidence,
		notifier: deps.Notifier,
		logger:   logger,
		metrics:  NewMetrics(),
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(logger))
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	s.routes(engine)
	s.engine = engine
	s.http = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until the context is cancelled, then drains connections.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server: listening on %s", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (s *Server) routes(engine *gin.Engine) {
	engine.GET("/api/health", s.handleHealth)
	engine.GET("/api/tools", s.handleTools)

	engine.GET("/api/agent/run", s.handleAgentRun)
	engine.GET("/api/agent/clarify/continue", s.handleClarifyContinue)
	engine.POST("/api/agent/clarify/continue", s.handleClarifyContinue)
	engine.POST("/api/agent/resolve", s.handleResolveSync)

	engine.POST("/api/evidence/upload", s.handleEvidenceUpload)
	engine.POST("/api/notify/send", s.handleNotifySend)

	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})))
}

func requestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http: %s %s -> %d (%s)",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
