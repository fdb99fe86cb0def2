package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pathconvert/pathconvert/internal/domain"
	"github.com/pathconvert/pathconvert/internal/middleware"
	"github.com/pathconvert/pathconvert/internal/security"
	"github.com/pathconvert/pathconvert/internal/ws"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	Log             *logrus.Logger
	DB              Database
	Cache           Pinger
	Hub             *ws.Hub
	Jobs            domain.JobService
	Admin           domain.AdminService
	Recommendations domain.RecommendationService
	Entitlements    domain.EntitlementService
	Shops           domain.ShopDirectory
	KeyLookup       middleware.ShopKeyLookup
	ProxySecret     string
	CORSOrigins     []string
	Version         string
	EmbeddingModel  string
	EmbeddingDims   int
}

// Router-level limits.
const (
	maxBodySize = 1 << 20
	rateLimit   = 50
	rateBurst   = 100
)

func setupMiddleware(ctx context.Context, r *gin.Engine, deps *RouterDeps) {
	r.SetTrustedProxies(nil) //nolint:errcheck // nil always succeeds.
	r.Use(middleware.RequestID(deps.Log))
	r.Use(ginLogger(deps.Log))
	r.Use(gin.Recovery())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.MaxBodySize(maxBodySize))
	r.Use(cors.New(cors.Config{
		AllowOrigins: deps.CORSOrigins,
		AllowMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:       time.Hour,
	}))
	r.Use(middleware.NewRateLimiter(ctx, rateLimit, rateBurst).Handler())
	r.Use(middleware.PrometheusMiddleware())
}

func registerRoutes(ctx context.Context, r *gin.Engine, deps *RouterDeps) {
	log := deps.Log

	var clients func() int
	if deps.Hub != nil {
		clients = deps.Hub.ClientCount
	}

	health := NewHealthHandler(deps.DB, deps.Cache, clients, log, deps.Version, deps.EmbeddingModel, deps.EmbeddingDims)
	jobs := NewJobHandler(deps.Jobs, log)
	collections := NewCollectionHandler(deps.Admin, deps.Recommendations, log)
	settings := NewSettingsHandler(deps.Admin, log)
	proxy := NewProxyHandler(deps.Shops, deps.Entitlements, deps.Recommendations, log)

	r.GET("/health", health.Liveness)
	r.GET("/ready", health.Readiness)

	// Storefront traffic arrives through the Shopify app proxy and is
	// authenticated by its signature, not an API key.
	r.GET("/apps/pathconvert/buttons", middleware.ProxySignature(deps.ProxySecret, log), proxy.Buttons)

	keys := middleware.NewCachedShopLookup(ctx, deps.KeyLookup)
	lockout := security.NewLockout(ctx, security.DefaultLockoutConfig(), log)

	api := r.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(keys, lockout, log))

	api.POST("/jobs", jobs.Create)
	api.GET("/jobs/latest", jobs.Latest)
	api.GET("/jobs/:id", jobs.Get)

	api.GET("/collections", collections.List)
	api.POST("/collections/state", collections.SetState)
	api.GET("/collections/:handle/recommendations", collections.Preview)

	api.GET("/settings", settings.Get)
	api.PUT("/settings", settings.Update)

	if deps.Hub != nil {
		api.GET("/ws", wsHandler(ctx, deps.Hub, deps.CORSOrigins, keys, log))
	}
}

// NewRouter creates and configures the Gin engine with all middleware and routes.
func NewRouter(ctx context.Context, deps *RouterDeps) http.Handler {
	r := gin.New()
	setupMiddleware(ctx, r, deps)
	registerRoutes(ctx, r, deps)

	return r
}
