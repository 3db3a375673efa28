package router

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/reminderd/config"
	promHandler "github.com/jwalitptl/reminderd/internal/handler/prometheus"
	"github.com/jwalitptl/reminderd/internal/middleware"
)

// Handler is anything that mounts routes on the API group.
type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Router struct {
	engine     *gin.Engine
	prometheus *promHandler.Handler
	handlers   []Handler
}

func NewRouter(cfg *config.Config, logger *zerolog.Logger, prometheus *promHandler.Handler, handlers ...Handler) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.RequestLogger(logger),
		prometheus.Middleware(),
		middleware.CORS(),
	)

	if cfg.RateLimit.Enabled {
		rateLimiter := middleware.NewRateLimiter(cfg.RateLimit)
		engine.Use(rateLimiter.RateLimit())
	}

	return &Router{
		engine:     engine,
		prometheus: prometheus,
		handlers:   handlers,
	}
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	for _, h := range r.handlers {
		h.RegisterRoutes(api)
	}

	r.engine.GET("/metrics", r.prometheus.Handler())
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
