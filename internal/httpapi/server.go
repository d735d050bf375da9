// Package httpapi serves stored form schemas and live form sessions over a
// gin router. Each session wraps one session.Runtime; responses carry the
// runtime revision so clients can drop stale snapshots.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/goliatone/go-formbuilder"
	"github.com/goliatone/go-formbuilder/internal/metrics"
	"github.com/goliatone/go-formbuilder/pkg/derive"
	"github.com/goliatone/go-formbuilder/pkg/render"
	"github.com/goliatone/go-formbuilder/pkg/render/html"
	"github.com/goliatone/go-formbuilder/pkg/store"
)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithEvaluator sets the expression engine used by sessions and schema
// checks.
func WithEvaluator(evaluator formbuilder.Evaluator) Option {
	return func(s *Server) {
		if evaluator != nil {
			s.evaluator = evaluator
		}
	}
}

// WithMetrics records session and store metrics and serves them at /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithRenderer overrides the HTML preview renderer.
func WithRenderer(r *html.Renderer) Option {
	return func(s *Server) {
		if r != nil {
			s.renderer = r
		}
	}
}

// WithClock overrides the time source used for createdAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSessionTTL drops sessions idle for longer than ttl. Zero keeps them
// until deleted.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Server) {
		s.sessions.ttl = ttl
	}
}

// Server holds the API dependencies.
type Server struct {
	store     store.Store
	evaluator formbuilder.Evaluator
	renderer  *html.Renderer
	formats   *render.Registry
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
	sessions  *registry
}

// New constructs a Server over s.
func New(s store.Store, opts ...Option) (*Server, error) {
	srv := &Server{
		store:    s,
		logger:   slog.Default(),
		now:      time.Now,
		sessions: newRegistry(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(srv)
		}
	}
	if srv.evaluator == nil {
		eval, err := formbuilder.NewEvaluator(formbuilder.EngineBuiltin, derive.DefaultLimits())
		if err != nil {
			return nil, err
		}
		srv.evaluator = eval
	}
	if srv.renderer == nil {
		r, err := html.New()
		if err != nil {
			return nil, err
		}
		srv.renderer = r
	}
	formats, err := render.DefaultRegistry(srv.renderer)
	if err != nil {
		return nil, err
	}
	srv.formats = formats
	if srv.metrics != nil {
		srv.store = srv.metrics.InstrumentStore(srv.store)
		srv.sessions.onClose = srv.metrics.SessionClosed
	}
	srv.sessions.now = srv.now
	return srv, nil
}

// Handler returns the gin engine with every route registered.
func (s *Server) Handler() http.Handler {
	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger())
	s.Routes(engine)
	return engine
}

// Routes registers the API on r.
func (s *Server) Routes(r gin.IRouter) {
	api := r.Group("/api")
	api.GET("/forms", s.listForms)
	api.POST("/forms", s.createForm)
	api.GET("/forms/:id", s.getForm)
	api.DELETE("/forms/:id", s.deleteForm)
	api.GET("/forms/:id/openapi", s.formOpenAPI)
	api.GET("/forms/:id/export", s.exportForm)
	api.POST("/forms/:id/sessions", s.openSession)

	api.GET("/sessions/:sid", s.getSession)
	api.DELETE("/sessions/:sid", s.closeSession)
	api.POST("/sessions/:sid/edits", s.applyEdit)
	api.POST("/sessions/:sid/submit", s.submitSession)

	r.GET("/forms/:id/preview", s.previewForm)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("elapsed", time.Since(start)),
		)
	}
}
