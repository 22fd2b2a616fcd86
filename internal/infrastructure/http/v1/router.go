// Package v1 provides HTTP API version 1.
package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"backoffice/internal/domain/inventory"
	"backoffice/internal/infrastructure/http/v1/handlers"
	"backoffice/internal/infrastructure/http/v1/middleware"
	"backoffice/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	Logger  *logger.Logger
	Service *inventory.Service
	Catalog *inventory.Catalog

	// Idempotency enables X-Idempotency-Key handling on mutating routes when set.
	Idempotency middleware.IdempotencyStore

	// HealthChecks are pinged by /health/ready.
	HealthChecks map[string]handlers.Pinger

	// Metrics is served at /metrics when set.
	Metrics http.Handler
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(log))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.HealthChecks)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	v1 := router.Group("/api/v1")
	if cfg.Idempotency != nil {
		v1.Use(middleware.Idempotency(cfg.Idempotency))
	}

	base := handlers.NewBaseHandler()
	registerInventoryRoutes(v1, handlers.NewInventoryHandler(base, cfg.Service))
	registerAccountRoutes(v1, handlers.NewAccountHandler(base, cfg.Service))
	registerCatalogRoutes(v1, handlers.NewCatalogHandler(base, cfg.Catalog))

	return router
}

func registerInventoryRoutes(rg *gin.RouterGroup, h *handlers.InventoryHandler) {
	inv := rg.Group("/inventory")
	{
		inv.POST("/movements", h.RecordMovement)
		inv.GET("/movements", h.Movements)
		inv.POST("/invoices", h.RecordInvoice)
		inv.POST("/adjustments", h.RecordAdjustment)
		inv.GET("/stock", h.Stock)
		inv.POST("/materials/:id/rebuild", h.RebuildMaterial)
	}
	rg.POST("/recipes/propagate", h.Propagate)
}

func registerAccountRoutes(rg *gin.RouterGroup, h *handlers.AccountHandler) {
	acc := rg.Group("/accounts/:id")
	{
		acc.POST("/transactions", h.RecordTransaction)
		acc.GET("/aging", h.Aging)
		acc.GET("/balance", h.Balance)
	}
}

func registerCatalogRoutes(rg *gin.RouterGroup, h *handlers.CatalogHandler) {
	cat := rg.Group("/catalog")
	{
		cat.POST("/units", h.CreateUnit)
		cat.POST("/warehouses", h.CreateWarehouse)
		cat.POST("/materials", h.CreateMaterial)
		cat.GET("/materials/:id", h.GetMaterial)
		cat.POST("/accounts", h.CreateAccount)
		cat.POST("/recipes", h.CreateRecipe)
	}
	rg.GET("/recipes/:id", h.GetRecipe)
}
