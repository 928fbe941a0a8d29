package app

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/nekogravitycat/user-directory/internal/api"
	"github.com/nekogravitycat/user-directory/internal/boundary"
	"github.com/nekogravitycat/user-directory/internal/fetch"
	"github.com/nekogravitycat/user-directory/internal/pkg/cache"
	"github.com/nekogravitycat/user-directory/internal/pkg/metrics"
	"github.com/nekogravitycat/user-directory/internal/render"
	"github.com/nekogravitycat/user-directory/internal/user"
	userHttp "github.com/nekogravitycat/user-directory/internal/user/http"
	"github.com/nekogravitycat/user-directory/internal/view"
	"github.com/nekogravitycat/user-directory/web"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction    bool
	ProdOrigins     string
	APIBaseURL      string
	FetchTimeout    time.Duration
	RevalidateTTL   time.Duration
	DefaultPageSize int
	ViewSessionTTL  time.Duration

	// Redis, when set, backs the revalidation cache. Otherwise it lives in process memory.
	Redis  *redis.Client
	Logger *zap.Logger
	// Registry receives the application collectors and backs /metrics. Optional.
	Registry *prometheus.Registry
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router   *gin.Engine
	Sessions *view.Sessions
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) (*Container, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		met      *metrics.Metrics
		gatherer prometheus.Gatherer
	)
	if cfg.Registry != nil {
		met = metrics.New(cfg.Registry)
		gatherer = cfg.Registry
	}

	// Revalidation cache
	var store cache.Store = cache.NewMemoryStore()
	if cfg.Redis != nil {
		store = cache.NewRedisStore(cache.RedisStoreConfig{Client: cfg.Redis})
	}

	// User Module
	client := fetch.NewClient(fetch.Config{Timeout: cfg.FetchTimeout, Metrics: met})
	userRepo := user.NewCachedRepository(user.NewHTTPRepository(client, cfg.APIBaseURL), user.CachedRepositoryConfig{
		Store:   store,
		TTL:     cfg.RevalidateTTL,
		Logger:  logger.Named("cache"),
		Metrics: met,
	})
	userService := user.NewService(userRepo)

	// Rendering
	renderer, err := render.NewRenderer(render.RendererConfig{
		FS:     web.TemplatesFS,
		Logger: logger.Named("render"),
	})
	if err != nil {
		return nil, fmt.Errorf("init renderer: %w", err)
	}

	boundaryOpts := boundary.Options{
		Logger:  logger.Named("boundary"),
		Metrics: met,
		DevMode: !cfg.IsProduction,
	}

	// View sessions, each with its own render boundary
	sessions := view.NewSessions(view.SessionsConfig{
		TTL:     cfg.ViewSessionTTL,
		PerPage: cfg.DefaultPageSize,
		Boundary: func(id string) *boundary.Boundary {
			opts := boundaryOpts
			opts.RetryURL = "/v1/views/" + id + "/retry"
			opts.ReloadURL = "/v1/views/" + id + "/fragment"
			return boundary.NewDefault(opts)
		},
		Logger:  logger.Named("views"),
		Metrics: met,
	})

	userHandler := userHttp.NewHandler(userHttp.Config{
		Service:  userService,
		Sessions: sessions,
		Renderer: renderer,
		PerPage:  cfg.DefaultPageSize,
		Boundary: boundaryOpts,
		Logger:   logger.Named("users"),
	})

	// Router
	router := api.NewRouter(api.Config{
		IsProduction: cfg.IsProduction,
		ProdOrigins:  cfg.ProdOrigins,
		Logger:       logger.Named("http"),
		Gatherer:     gatherer,
		UserHandler:  userHandler,
	})

	return &Container{
		Router:   router,
		Sessions: sessions,
	}, nil
}
