// Package server exposes the solving pipeline over HTTP with gin.
//
// Routes:
//
//	POST /solve    solve one equation, returns the solution and its steps
//	POST /tool     agent tool calls (solve_ode, normalize, classify and the kernel tools)
//	GET  /schema   JSON description of the tool surface
//	GET  /         embedded web page
//	GET  /health   liveness
//	GET  /metrics  Prometheus metrics
package server

import (
	"embed"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/njchilds90/odesolve/internal/config"
	"github.com/njchilds90/odesolve/internal/engine"
	"github.com/njchilds90/odesolve/internal/logging"
	"github.com/njchilds90/odesolve/internal/parser"
	"github.com/njchilds90/odesolve/internal/pipeline"
)

//go:embed static
var staticFiles embed.FS

// Server wires the HTTP routes to a pipeline.Resolver.
type Server struct {
	cfg      config.ServerConfig
	resolver *pipeline.Resolver
	eng      engine.Engine
	parser   *parser.Parser
	logger   *slog.Logger
	validate *validator.Validate

	// limiter is nil when rate limiting is disabled.
	limiter *rate.Limiter
	slots   *semaphore.Weighted

	version        string
	tracingService string
	metrics        bool

	router *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithVersion sets the version reported by /health.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// WithTracing enables otelgin request spans under the given service name.
func WithTracing(service string) Option {
	return func(s *Server) { s.tracingService = service }
}

// WithMetrics toggles the /metrics route. It is on by default.
func WithMetrics(enabled bool) Option {
	return func(s *Server) { s.metrics = enabled }
}

// New builds a Server and its routes.
func New(cfg config.ServerConfig, resolver *pipeline.Resolver, eng engine.Engine, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		resolver: resolver,
		eng:      eng,
		parser:   parser.New(),
		logger:   logging.Discard(),
		validate: newRequestValidator(),
		version:  "dev",
		metrics:  true,
	}
	for _, opt := range opts {
		opt(s)
	}

	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	slots := cfg.MaxConcurrentSolves
	if slots < 1 {
		slots = 1
	}
	s.slots = semaphore.NewWeighted(slots)

	s.router = s.routes()
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.router }

// HTTPServer returns an http.Server for the configured address and
// timeouts. The caller owns starting and shutting it down.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.router,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
	}
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	if s.tracingService != "" {
		r.Use(otelgin.Middleware(s.tracingService))
	}
	r.Use(s.requestContext(), gin.CustomRecovery(s.recovered))

	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	r.GET("/", s.handleIndex)
	r.StaticFS("/static", http.FS(static))
	r.GET("/health", s.handleHealth)
	r.GET("/schema", s.handleSchema)
	if s.metrics {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	api := r.Group("/", s.limitBody(), s.rateLimit())
	api.POST("/solve", s.handleSolve)
	api.POST("/tool", s.handleTool)
	return r
}
