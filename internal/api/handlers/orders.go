package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/storeapi/internal/api/middleware"
	"github.com/jafarshop/storeapi/internal/domain"
	"github.com/jafarshop/storeapi/internal/events"
	"github.com/jafarshop/storeapi/internal/repository"
	"github.com/jafarshop/storeapi/internal/service"
	"github.com/jafarshop/storeapi/pkg/errors"
)

// ShippingAddressRequest represents the shipping fields of a checkout
type ShippingAddressRequest struct {
	FullName   string `json:"full_name" binding:"required"`
	Phone      string `json:"phone" binding:"required"`
	Address    string `json:"address" binding:"required"`
	City       string `json:"city" binding:"required"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// CreateOrderRequest represents the checkout payload
type CreateOrderRequest struct {
	ShippingAddress ShippingAddressRequest `json:"shipping_address" binding:"required"`
	PaymentMethod   string                 `json:"payment_method" binding:"required"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID              string                 `json:"id"`
	ShippingAddress domain.ShippingAddress `json:"shipping_address"`
	PaymentMethod   domain.PaymentMethod   `json:"payment_method"`
	PaymentStatus   domain.PaymentStatus   `json:"payment_status"`
	DeliveryStatus  domain.DeliveryStatus  `json:"delivery_status"`
	TotalPrice      float64                `json:"total_price"`
	Items           []OrderItemResponse    `json:"items,omitempty"`
	CreatedAt       string                 `json:"created_at"`
}

type OrderItemResponse struct {
	ProductID     string   `json:"product_id"`
	ProductName   string   `json:"product_name"`
	ProductImages []string `json:"product_images,omitempty"`
	Quantity      int      `json:"quantity"`
	Price         float64  `json:"price"`
	Size          *string  `json:"size,omitempty"`
}

// HandleCreateOrder handles POST /v1/orders — the checkout transaction
func HandleCreateOrder(
	repos *repository.Repositories,
	tx repository.TxManager,
	publisher events.Publisher,
	metrics *middleware.Metrics,
	logger *zap.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.GetUserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "validation failed",
				"details": err.Error(),
			})
			return
		}

		shipping := domain.ShippingAddress{
			FullName:   req.ShippingAddress.FullName,
			Phone:      req.ShippingAddress.Phone,
			Address:    req.ShippingAddress.Address,
			City:       req.ShippingAddress.City,
			PostalCode: req.ShippingAddress.PostalCode,
			Country:    req.ShippingAddress.Country,
		}

		orderService := service.NewOrderService(repos, tx, publisher, logger)
		order, err := orderService.CreateOrder(c.Request.Context(), userID, shipping, domain.PaymentMethod(req.PaymentMethod))
		if err != nil {
			metrics.CheckoutFailures.WithLabelValues(checkoutFailureReason(err)).Inc()
			respondError(c, logger, err)
			return
		}

		metrics.OrdersCreated.Inc()

		c.JSON(http.StatusCreated, OrderResponse{
			ID:              order.ID.String(),
			ShippingAddress: order.ShippingAddress,
			PaymentMethod:   order.PaymentMethod,
			PaymentStatus:   order.PaymentStatus,
			DeliveryStatus:  order.DeliveryStatus,
			TotalPrice:      order.TotalPrice,
			CreatedAt:       order.CreatedAt.Format(time.RFC3339),
		})
	}
}

// HandleGetOrders handles GET /v1/orders
func HandleGetOrders(repos *repository.Repositories, tx repository.TxManager, publisher events.Publisher, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.GetUserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		orderService := service.NewOrderService(repos, tx, publisher, logger)
		details, err := orderService.GetOrders(c.Request.Context(), userID)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		responses := make([]OrderResponse, 0, len(details))
		for _, detail := range details {
			responses = append(responses, toOrderResponse(detail))
		}

		c.JSON(http.StatusOK, gin.H{"orders": responses})
	}
}

func toOrderResponse(detail service.OrderDetail) OrderResponse {
	items := make([]OrderItemResponse, 0, len(detail.Items))
	for _, item := range detail.Items {
		var size *string
		if item.Size != nil {
			s := string(*item.Size)
			size = &s
		}
		items = append(items, OrderItemResponse{
			ProductID:     item.ProductID.String(),
			ProductName:   item.Product.Name,
			ProductImages: item.Product.Images,
			Quantity:      item.Quantity,
			Price:         item.Price,
			Size:          size,
		})
	}

	return OrderResponse{
		ID:              detail.Order.ID.String(),
		ShippingAddress: detail.Order.ShippingAddress,
		PaymentMethod:   detail.Order.PaymentMethod,
		PaymentStatus:   detail.Order.PaymentStatus,
		DeliveryStatus:  detail.Order.DeliveryStatus,
		TotalPrice:      detail.Order.TotalPrice,
		Items:           items,
		CreatedAt:       detail.Order.CreatedAt.Format(time.RFC3339),
	}
}

func checkoutFailureReason(err error) string {
	switch err.(type) {
	case *errors.ErrInsufficientStock:
		return "insufficient_stock"
	case *errors.ErrInvalidCartState:
		return "invalid_cart_state"
	case *errors.ErrValidation:
		return "invalid_input"
	case *errors.ErrForbidden:
		return "forbidden"
	case *errors.ErrNotFound:
		return "not_found"
	default:
		return "internal"
	}
}
