package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/orms-api/internal/handler/auth"
	"github.com/jwalitptl/orms-api/internal/handler/health"
	"github.com/jwalitptl/orms-api/internal/handler/invoice"
	"github.com/jwalitptl/orms-api/internal/handler/patient"
	"github.com/jwalitptl/orms-api/internal/handler/prometheus"
	"github.com/jwalitptl/orms-api/internal/handler/reference"
	"github.com/jwalitptl/orms-api/internal/middleware"
	"github.com/jwalitptl/orms-api/pkg/httputil"
)

type Config struct {
	Mode           string
	AllowedOrigins []string
	RateLimit      bool
	RateRPS        float64
	RateBurst      int
	RateClientTTL  time.Duration
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

type Handlers struct {
	Auth      *auth.Handler
	Health    *health.Handler
	Invoice   *invoice.Handler
	Patient   *patient.Handler
	Reference *reference.Handler
	Metrics   *prometheus.Handler
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	handlers Handlers
}

func NewRouter(authMW *middleware.AuthMiddleware, handlers Handlers, config Config) *Router {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}

	engine := gin.New()

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
		handlers.Metrics.Middleware(),
		cors.New(corsConfig(config.AllowedOrigins)),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig()),
		middleware.SizeLimit(config.MaxBodyBytes),
		middleware.Timeout(config.RequestTimeout),
		middleware.ErrorHandler(),
	)

	if config.RateLimit {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  rate.Limit(config.RateRPS),
			Burst: config.RateBurst,
			TTL:   config.RateClientTTL,
		})
		engine.Use(limiter.RateLimit())
	}

	return &Router{
		engine:   engine,
		auth:     authMW,
		handlers: handlers,
	}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", middleware.HeaderXRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowCredentials = false
		cfg.AllowAllOrigins = true
		return cfg
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowCredentials = false
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}

func (r *Router) Setup() {
	r.engine.GET("/metrics", r.handlers.Metrics.Handler())

	api := r.engine.Group("/api")
	r.handlers.Health.RegisterRoutes(api)
	r.handlers.Auth.RegisterRoutes(api)

	protected := api.Group("")
	protected.Use(r.auth.Authenticate())
	r.handlers.Invoice.RegisterRoutes(protected)
	r.handlers.Patient.RegisterRoutes(protected)
	r.handlers.Reference.RegisterRoutes(protected)

	r.engine.NoRoute(func(c *gin.Context) {
		httputil.AbortWithError(c, http.StatusNotFound, "Endpoint not found")
	})
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) Handler() http.Handler {
	return r.engine
}
