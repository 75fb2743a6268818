package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/foodgram/backend/config"
	"github.com/foodgram/backend/internal/database"
	"github.com/foodgram/backend/internal/middleware"
	"github.com/foodgram/backend/internal/service"
)

// Deps are the long-lived resources the router is built from.
type Deps struct {
	DB       *gorm.DB
	Images   service.ImageStore
	Revoker  service.Revoker
	Redis    *redis.Client // optional; enables rate limiting
	Registry *prometheus.Registry
	Logger   *zap.Logger
}

// NewRouter wires services, middleware and handlers into a gin engine.
func NewRouter(cfg *config.Config, d Deps) *gin.Engine {
	if d.Registry == nil {
		d.Registry = prometheus.NewRegistry()
	}
	if d.Revoker == nil {
		d.Revoker = service.NewDBRevoker(d.DB)
	}
	middleware.UseJSONFieldNames()

	authService := service.NewAuthService(d.DB, cfg.Auth.SecretKey, cfg.Auth.TokenTTL, d.Revoker, d.Logger)

	router := gin.New()
	router.RedirectTrailingSlash = false
	router.Use(
		middleware.RequestLogger(d.Logger),
		middleware.NewMetrics(d.Registry).Handler(),
		middleware.CORS(cfg.Server.AllowedOrigins),
		middleware.ErrorHandler(d.Logger),
	)

	router.GET("/health", healthCheck(d.DB))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})))
	if disk, ok := d.Images.(*service.DiskImageStore); ok {
		router.Static("/media", disk.Dir())
	}

	pages := newPager(cfg.Server.BaseURL, cfg.Pagination, cfg.Recipes)

	v1 := router.Group("/api", middleware.Authenticate(authService))
	NewAuthHandler(authService).RegisterRoutes(v1)
	NewUserHandler(
		authService,
		service.NewUserService(d.DB, d.Images),
		service.NewFollowService(d.DB, d.Images, d.Logger),
		pages,
	).RegisterRoutes(v1)
	NewCatalogHandler(service.NewCatalogService(d.DB, d.Logger)).RegisterRoutes(v1)

	recipes := NewRecipeHandler(
		service.NewRecipeService(d.DB, d.Images, d.Logger),
		service.NewFavoriteService(d.DB, d.Images, d.Logger),
		service.NewShoppingCartService(d.DB, d.Images, d.Logger),
		service.NewShoppingListService(d.DB),
		pages,
	)
	if d.Redis != nil {
		recipes.createLimit = middleware.NewRecipeCreationRateLimiter(d.Redis, cfg.RateLimit.Requests, cfg.RateLimit.Window, d.Logger).Handler()
	}
	recipes.RegisterRoutes(v1)

	return router
}

func healthCheck(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := database.HealthCheck(ctx, db); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	}
}
