package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/storeapi/internal/api/handlers"
	"github.com/jafarshop/storeapi/internal/api/middleware"
	"github.com/jafarshop/storeapi/internal/auth"
	"github.com/jafarshop/storeapi/internal/config"
	"github.com/jafarshop/storeapi/internal/domain"
	"github.com/jafarshop/storeapi/internal/events"
	"github.com/jafarshop/storeapi/internal/media"
	"github.com/jafarshop/storeapi/internal/repository"
)

// NewRouter creates and configures the Gin router
func NewRouter(
	cfg *config.Config,
	repos *repository.Repositories,
	tx repository.TxManager,
	tokens *auth.TokenManager,
	publisher events.Publisher,
	uploader *media.Client,
	metrics *middleware.Metrics,
	logger *zap.Logger,
) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(logger))
	router.Use(metrics.Middleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: false,
	}))

	// Health check and metrics
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(middleware.Handler()))

	// API v1 routes
	v1 := router.Group("/v1")
	{
		// Public routes
		v1.POST("/auth/register", handlers.HandleRegister(repos, tokens, logger))
		v1.POST("/auth/login", handlers.HandleLogin(repos, tokens, logger))
		v1.POST("/auth/refresh", handlers.HandleRefresh(tokens, logger))

		v1.GET("/products", handlers.HandleListProducts(repos, logger))
		v1.GET("/products/:id", handlers.HandleGetProduct(repos, logger))
		v1.GET("/categories", handlers.HandleListCategories(repos, logger))

		// Authenticated routes
		userRoutes := v1.Group("")
		userRoutes.Use(middleware.AuthMiddleware(tokens, logger))
		{
			userRoutes.POST("/auth/logout", handlers.HandleLogout(tokens, logger))
			userRoutes.GET("/me", handlers.HandleGetMe(repos, logger))

			userRoutes.GET("/cart", handlers.HandleGetCart(repos, tx, logger))
			userRoutes.POST("/cart/items", handlers.HandleAddToCart(repos, tx, logger))
			userRoutes.PUT("/cart/items/:product_id", handlers.HandleUpdateCartItem(repos, tx, logger))
			userRoutes.DELETE("/cart/items/:product_id", handlers.HandleRemoveCartItem(repos, tx, logger))
			userRoutes.DELETE("/cart", handlers.HandleClearCart(repos, tx, logger))

			userRoutes.POST("/orders", handlers.HandleCreateOrder(repos, tx, publisher, metrics, logger))
			userRoutes.GET("/orders", handlers.HandleGetOrders(repos, tx, publisher, logger))
		}

		// Admin routes
		adminRoutes := v1.Group("/admin")
		adminRoutes.Use(middleware.AuthMiddleware(tokens, logger))
		adminRoutes.Use(middleware.RequireRole(domain.RoleAdmin))
		{
			adminRoutes.POST("/products", handlers.HandleCreateProduct(repos, logger))
			adminRoutes.PUT("/products/:id", handlers.HandleUpdateProduct(repos, logger))
			adminRoutes.DELETE("/products/:id", handlers.HandleDeleteProduct(repos, logger))
			adminRoutes.POST("/products/:id/images", handlers.HandleUploadProductImage(repos, uploader, logger))

			adminRoutes.POST("/categories", handlers.HandleCreateCategory(repos, logger))
			adminRoutes.DELETE("/categories/:id", handlers.HandleDeleteCategory(repos, logger))

			adminRoutes.GET("/orders", handlers.HandleListAllOrders(repos, logger))
			adminRoutes.POST("/orders/:id/payment-status", handlers.HandleUpdatePaymentStatus(repos, tx, publisher, logger))
			adminRoutes.POST("/orders/:id/delivery-status", handlers.HandleUpdateDeliveryStatus(repos, tx, publisher, logger))
		}
	}

	return router
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		status := c.Writer.Status()
		logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
		)
	}
}
