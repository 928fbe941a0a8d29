package api

import (
	"io/fs"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	userHttp "github.com/nekogravitycat/user-directory/internal/user/http"
	"github.com/nekogravitycat/user-directory/web"
)

// Config holds what the router needs from the composition root.
type Config struct {
	IsProduction bool
	// ProdOrigins is a comma-separated list of allowed CORS origins in production.
	ProdOrigins string
	Logger      *zap.Logger
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer    prometheus.Gatherer
	UserHandler *userHttp.Handler
}

// NewRouter initializes the HTTP router engine.
// It is responsible for assembling middleware (request ID, logging, recovery, CORS) and registering routes.
func NewRouter(cfg Config) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()

	// Global Middleware:
	// - RequestID: Tags every request and response with X-Request-ID.
	// - RequestLogger: Structured access log.
	// - Recovery: Captures panics to prevent server crashes and returns a 500 error.
	r.Use(RequestID(), RequestLogger(logger, "/healthz", "/metrics"), gin.Recovery())

	// Configure CORS (Cross-Origin Resource Sharing).
	config := cors.DefaultConfig()
	config.AllowOrigins = []string{
		"http://localhost:3000",
	}
	if cfg.IsProduction {
		config.AllowOrigins = splitOrigins(cfg.ProdOrigins)
	}
	config.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", RequestIDHeader}
	config.ExposeHeaders = []string{RequestIDHeader, "Location"}
	if len(config.AllowOrigins) > 0 {
		r.Use(cors.New(config))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	static, err := fs.Sub(web.StaticFS, "static")
	if err != nil {
		// The embed pattern guarantees the directory.
		panic(err)
	}
	r.StaticFS("/static", http.FS(static))

	// Server-rendered pages
	userHttp.RegisterPages(r, cfg.UserHandler)

	// Register API routes under /v1
	v1 := r.Group("/v1")
	{
		userHttp.RegisterRoutes(v1, cfg.UserHandler)
	}

	return r
}

func splitOrigins(s string) []string {
	var origins []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
