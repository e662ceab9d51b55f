// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"florist/internal/domain/auth"
	"florist/internal/domain/availability"
	"florist/internal/domain/catalog/product"
	"florist/internal/domain/orders"
	"florist/internal/domain/reservation"
	"florist/internal/domain/warehouse"
	"florist/internal/infrastructure/http/v1/handlers"
	"florist/internal/infrastructure/http/v1/middleware"
	"florist/internal/infrastructure/storage/postgres"
	"florist/internal/infrastructure/storage/postgres/catalog_repo"
	"florist/internal/infrastructure/storage/postgres/order_repo"
	"florist/internal/infrastructure/storage/postgres/reservation_repo"
	"florist/internal/infrastructure/storage/postgres/warehouse_repo"
	"florist/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Pool is the database connection pool (health checks).
	Pool *pgxpool.Pool

	// TxManager runs all repository work.
	TxManager *postgres.TxManager

	// Logger for request logging.
	Logger *logger.Logger

	// JWTValidator for token validation.
	JWTValidator middleware.JWTValidator

	// AuthService for the login endpoint.
	AuthService *auth.Service

	// AuditService records stock change payloads. Optional.
	AuditService *postgres.AuditService
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints, no auth
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	baseHandler := handlers.NewBaseHandler()

	// Repositories and services share the single TxManager; per-request
	// scoping comes from the user context, not from per-tenant pools.
	productRepo := catalog_repo.NewProductRepo(cfg.TxManager)
	recipeRepo := catalog_repo.NewRecipeRepo(cfg.TxManager)
	itemRepo := warehouse_repo.NewItemRepo(cfg.TxManager)
	operationRepo := warehouse_repo.NewOperationRepo(cfg.TxManager)
	reservationRepo := reservation_repo.NewReservationRepo(cfg.TxManager)
	orderRepo := order_repo.NewOrderRepo(cfg.TxManager)

	var auditor warehouse.Auditor
	if cfg.AuditService != nil {
		auditor = cfg.AuditService
	}

	productService := product.NewService(productRepo, recipeRepo, cfg.TxManager)
	warehouseService := warehouse.NewService(itemRepo, operationRepo, reservationRepo, cfg.TxManager, auditor)
	calculator := availability.NewCalculator(productRepo, recipeRepo, itemRepo, reservationRepo)
	manager := reservation.NewManager(
		reservationRepo, itemRepo, operationRepo,
		productRepo, recipeRepo, orderRepo,
		cfg.TxManager, auditor,
	)
	sweeper := reservation.NewSweeper(manager, reservationRepo, nil)
	orderService := orders.NewService(orderRepo, productRepo, manager, cfg.TxManager)

	api := router.Group("/api/v1")
	{
		// Public auth endpoint
		if cfg.AuthService != nil {
			authHandler := handlers.NewAuthHandler(baseHandler, cfg.AuthService)
			api.POST("/auth/login", authHandler.Login)
		}

		protected := api.Group("")
		protected.Use(middleware.Auth(cfg.JWTValidator))

		// Catalog
		productHandler := handlers.NewProductHandler(baseHandler, productService)
		products := protected.Group("/products")
		{
			products.POST("", productHandler.Create)
			products.GET("", productHandler.List)
			products.GET("/:id", productHandler.Get)
			products.PUT("/:id", productHandler.Update)
			products.DELETE("/:id", productHandler.Delete)
		}

		// Warehouse
		warehouseHandler := handlers.NewWarehouseHandler(baseHandler, warehouseService)
		items := protected.Group("/warehouse/items")
		{
			items.POST("", warehouseHandler.Create)
			items.GET("", warehouseHandler.List)
			items.GET("/:id", warehouseHandler.Get)
			items.POST("/:id/adjust", middleware.RequireRole(auth.RoleManager), warehouseHandler.Adjust)
			items.GET("/:id/operations", warehouseHandler.Operations)
		}

		// Availability
		availabilityHandler := handlers.NewAvailabilityHandler(baseHandler, calculator)
		availabilityGroup := protected.Group("/availability")
		{
			availabilityGroup.GET("/:productId", availabilityHandler.CheckProduct)
			availabilityGroup.POST("/check", availabilityHandler.CheckBatch)
		}

		// Orders
		orderHandler := handlers.NewOrderHandler(baseHandler, orderService)
		ordersGroup := protected.Group("/orders")
		{
			ordersGroup.POST("", orderHandler.Create)
			ordersGroup.GET("", orderHandler.List)
			ordersGroup.GET("/:id", orderHandler.Get)
			ordersGroup.POST("/:id/status", orderHandler.SetStatus)
			ordersGroup.DELETE("/:id", middleware.RequireRole(auth.RoleManager), orderHandler.Delete)
		}

		// Reservations
		reservationHandler := handlers.NewReservationHandler(baseHandler, manager, reservationRepo, sweeper)
		reservations := protected.Group("/reservations")
		{
			reservations.POST("", reservationHandler.Reserve)
			reservations.POST("/sweep", middleware.RequireRole(auth.RoleManager), reservationHandler.Sweep)
			reservations.GET("/:orderId", reservationHandler.GetByOrder)
			reservations.DELETE("/:orderId", reservationHandler.Release)
			reservations.POST("/:orderId/convert", middleware.RequireRole(auth.RoleManager), reservationHandler.Convert)
		}
	}

	return router
}
