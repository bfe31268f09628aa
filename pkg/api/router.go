// Package api serves the HTTP status and control API.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/urmzd/treelights/pkg/api/handlers"
	"github.com/urmzd/treelights/pkg/metrics"
	"github.com/urmzd/treelights/pkg/protocol"
)

// Options configures the router.
type Options struct {
	// CORSOrigins lists allowed origins; empty allows any.
	CORSOrigins []string
	Swagger     bool
	Codec       *protocol.Codec
	Recorder    metrics.Recorder
}

// Router holds the Gin engine and dependencies
type Router struct {
	engine  *gin.Engine
	display handlers.Display
	opts    Options
}

// NewRouter creates a new API router
func NewRouter(display handlers.Display, opts Options) *Router {
	gin.SetMode(gin.ReleaseMode)

	if opts.Codec == nil {
		opts.Codec = protocol.NewCodec(nil)
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.Nop{}
	}

	engine := gin.New()
	SetupMiddleware(engine, opts.CORSOrigins)

	router := &Router{
		engine:  engine,
		display: display,
		opts:    opts,
	}
	router.setupRoutes()

	return router
}

// setupRoutes configures all API routes
func (r *Router) setupRoutes() {
	if r.opts.Swagger {
		r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
		r.engine.GET("/docs", func(c *gin.Context) {
			c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
		})
	}

	healthHandler := handlers.NewHealthHandler(r.display)
	r.engine.GET("/health", healthHandler.Health)

	pixelsHandler := handlers.NewPixelsHandler(r.display, r.opts.Codec, r.opts.Recorder)
	streamHandler := handlers.NewStreamHandler(r.display)

	v1 := r.engine.Group("/api/v1")
	{
		v1.GET("/health", healthHandler.Health)
		v1.GET("/pixels", pixelsHandler.GetPixels)
		v1.POST("/commands", pixelsHandler.PostCommand)
		v1.GET("/stream", streamHandler.Stream)
	}
}

// Handler returns the router as an http.Handler
func (r *Router) Handler() http.Handler {
	return r.engine
}
