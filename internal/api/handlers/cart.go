package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jafarshop/storeapi/internal/api/middleware"
	"github.com/jafarshop/storeapi/internal/domain"
	"github.com/jafarshop/storeapi/internal/repository"
	"github.com/jafarshop/storeapi/internal/service"
)

// AddToCartRequest represents the add-to-cart payload
type AddToCartRequest struct {
	ProductID string  `json:"product_id" binding:"required"`
	Quantity  int     `json:"quantity" binding:"required,min=1"`
	Size      *string `json:"size,omitempty"`
}

// UpdateCartItemRequest represents the cart line update payload. A quantity
// of exactly zero removes the line.
type UpdateCartItemRequest struct {
	Quantity *int    `json:"quantity,omitempty"`
	Size     *string `json:"size,omitempty"`
}

// CartResponse represents the cart state after a mutation
type CartResponse struct {
	CartID     string  `json:"cart_id"`
	TotalPrice float64 `json:"total_price"`
}

// HandleGetCart handles GET /v1/cart
func HandleGetCart(repos *repository.Repositories, tx repository.TxManager, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.GetUserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		cartService := service.NewCartService(repos, tx, logger)
		view, err := cartService.Get(c.Request.Context(), userID)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, view)
	}
}

// HandleAddToCart handles POST /v1/cart/items
func HandleAddToCart(repos *repository.Repositories, tx repository.TxManager, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.GetUserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req AddToCartRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "validation failed",
				"details": err.Error(),
			})
			return
		}

		productID, err := uuid.Parse(req.ProductID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product ID"})
			return
		}

		cartService := service.NewCartService(repos, tx, logger)
		cart, err := cartService.AddItem(c.Request.Context(), userID, productID, req.Quantity, sizeFromString(req.Size))
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, CartResponse{
			CartID:     cart.ID.String(),
			TotalPrice: cart.TotalPrice,
		})
	}
}

// HandleUpdateCartItem handles PUT /v1/cart/items/:product_id
func HandleUpdateCartItem(repos *repository.Repositories, tx repository.TxManager, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.GetUserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		productID, err := uuid.Parse(c.Param("product_id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product ID"})
			return
		}

		var req UpdateCartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "validation failed",
				"details": err.Error(),
			})
			return
		}

		cartService := service.NewCartService(repos, tx, logger)
		cart, err := cartService.UpdateItem(c.Request.Context(), userID, productID, req.Quantity, sizeFromString(req.Size))
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, CartResponse{
			CartID:     cart.ID.String(),
			TotalPrice: cart.TotalPrice,
		})
	}
}

// HandleRemoveCartItem handles DELETE /v1/cart/items/:product_id
func HandleRemoveCartItem(repos *repository.Repositories, tx repository.TxManager, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.GetUserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		productID, err := uuid.Parse(c.Param("product_id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product ID"})
			return
		}

		cartService := service.NewCartService(repos, tx, logger)
		if _, err := cartService.RemoveItem(c.Request.Context(), userID, productID); err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "cart item removed"})
	}
}

// HandleClearCart handles DELETE /v1/cart
func HandleClearCart(repos *repository.Repositories, tx repository.TxManager, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.GetUserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		cartService := service.NewCartService(repos, tx, logger)
		cart, err := cartService.Clear(c.Request.Context(), userID)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, CartResponse{
			CartID:     cart.ID.String(),
			TotalPrice: cart.TotalPrice,
		})
	}
}

func sizeFromString(value *string) *domain.Size {
	if value == nil {
		return nil
	}
	size := domain.Size(*value)
	return &size
}
