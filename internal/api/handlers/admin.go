package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jafarshop/storeapi/internal/domain"
	"github.com/jafarshop/storeapi/internal/events"
	"github.com/jafarshop/storeapi/internal/media"
	"github.com/jafarshop/storeapi/internal/repository"
	"github.com/jafarshop/storeapi/internal/service"
	"github.com/jafarshop/storeapi/pkg/errors"
)

// ProductRequest represents the create/update product payload
type ProductRequest struct {
	Name        string   `json:"name" binding:"required,max=50"`
	Description string   `json:"description" binding:"required,min=10,max=200"`
	Images      []string `json:"images"`
	Price       float64  `json:"price" binding:"min=0"`
	Discount    float64  `json:"discount" binding:"min=0,max=100"`
	IsOnSale    bool     `json:"is_on_sale"`
	IsFeatured  bool     `json:"is_featured"`
	Stock       int      `json:"stock" binding:"min=0"`
	CategoryID  string   `json:"category_id" binding:"required"`
	Sizes       []string `json:"sizes" binding:"required,min=1"`
	Gender      string   `json:"gender"`
}

// CategoryRequest represents the create category payload
type CategoryRequest struct {
	Name  string  `json:"name" binding:"required"`
	Image *string `json:"image,omitempty"`
}

// UpdatePaymentStatusRequest carries the new payment state
type UpdatePaymentStatusRequest struct {
	PaymentStatus string `json:"payment_status" binding:"required"`
}

// UpdateDeliveryStatusRequest carries the new delivery state
type UpdateDeliveryStatusRequest struct {
	DeliveryStatus string `json:"delivery_status" binding:"required"`
}

// HandleCreateProduct handles POST /v1/admin/products
func HandleCreateProduct(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "validation failed",
				"details": err.Error(),
			})
			return
		}

		product, err := productFromRequest(req, uuid.Nil)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		if err := repos.Product.Create(c.Request.Context(), product); err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusCreated, toProductResponse(product))
	}
}

// HandleUpdateProduct handles PUT /v1/admin/products/:id
func HandleUpdateProduct(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		productID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product ID"})
			return
		}

		var req ProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "validation failed",
				"details": err.Error(),
			})
			return
		}

		product, err := productFromRequest(req, productID)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		if err := repos.Product.Update(c.Request.Context(), product); err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, toProductResponse(product))
	}
}

// HandleDeleteProduct handles DELETE /v1/admin/products/:id
func HandleDeleteProduct(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		productID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product ID"})
			return
		}

		if err := repos.Product.Delete(c.Request.Context(), productID); err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "product deleted"})
	}
}

// HandleUploadProductImage handles POST /v1/admin/products/:id/images
func HandleUploadProductImage(repos *repository.Repositories, uploader *media.Client, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		productID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product ID"})
			return
		}

		product, err := repos.Product.GetByID(c.Request.Context(), productID)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		fileHeader, err := c.FormFile("image")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			logger.Error("Failed to open uploaded file", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		defer file.Close()

		url, err := uploader.Upload(fileHeader.Filename, file)
		if err != nil {
			logger.Error("Failed to upload image", zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "image upload failed"})
			return
		}

		images := append(product.Images, url)
		if err := repos.Product.UpdateImages(c.Request.Context(), productID, images); err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"url": url, "images": images})
	}
}

// HandleCreateCategory handles POST /v1/admin/categories
func HandleCreateCategory(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CategoryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "validation failed",
				"details": err.Error(),
			})
			return
		}

		category := &domain.Category{
			Name:  req.Name,
			Image: req.Image,
		}
		if err := repos.Category.Create(c.Request.Context(), category); err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusCreated, category)
	}
}

// HandleDeleteCategory handles DELETE /v1/admin/categories/:id
func HandleDeleteCategory(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		categoryID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category ID"})
			return
		}

		if err := repos.Category.Delete(c.Request.Context(), categoryID); err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "category deleted"})
	}
}

// HandleListAllOrders handles GET /v1/admin/orders
func HandleListAllOrders(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		orders, err := repos.Order.List(c.Request.Context())
		if err != nil {
			respondError(c, logger, err)
			return
		}

		responses := make([]OrderResponse, 0, len(orders))
		for _, order := range orders {
			responses = append(responses, toOrderResponse(service.OrderDetail{Order: order}))
		}

		c.JSON(http.StatusOK, gin.H{"orders": responses})
	}
}

// HandleUpdatePaymentStatus handles POST /v1/admin/orders/:id/payment-status
func HandleUpdatePaymentStatus(repos *repository.Repositories, tx repository.TxManager, publisher events.Publisher, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order ID"})
			return
		}

		var req UpdatePaymentStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "validation failed",
				"details": err.Error(),
			})
			return
		}

		status := domain.PaymentStatus(req.PaymentStatus)
		if !status.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment status"})
			return
		}

		orderService := service.NewOrderService(repos, tx, publisher, logger)
		if err := orderService.UpdatePaymentStatus(c.Request.Context(), orderID, status); err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"id": orderID.String(), "payment_status": status})
	}
}

// HandleUpdateDeliveryStatus handles POST /v1/admin/orders/:id/delivery-status
func HandleUpdateDeliveryStatus(repos *repository.Repositories, tx repository.TxManager, publisher events.Publisher, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order ID"})
			return
		}

		var req UpdateDeliveryStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "validation failed",
				"details": err.Error(),
			})
			return
		}

		status := domain.DeliveryStatus(req.DeliveryStatus)
		if !status.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid delivery status"})
			return
		}

		orderService := service.NewOrderService(repos, tx, publisher, logger)
		if err := orderService.UpdateDeliveryStatus(c.Request.Context(), orderID, status); err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"id": orderID.String(), "delivery_status": status})
	}
}

func productFromRequest(req ProductRequest, id uuid.UUID) (*domain.Product, error) {
	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		return nil, &errors.ErrValidation{Field: "category_id", Message: "must be a valid UUID"}
	}

	sizes := make([]domain.Size, 0, len(req.Sizes))
	for _, raw := range req.Sizes {
		size := domain.Size(raw)
		if !size.IsValid() {
			return nil, &errors.ErrValidation{Field: "sizes", Message: "contains an unsupported size"}
		}
		sizes = append(sizes, size)
	}

	gender := req.Gender
	if gender == "" {
		gender = "Unisex"
	}

	product := &domain.Product{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Images:      req.Images,
		Price:       req.Price,
		Discount:    req.Discount,
		IsOnSale:    req.IsOnSale,
		IsFeatured:  req.IsFeatured,
		Stock:       req.Stock,
		CategoryID:  categoryID,
		Sizes:       sizes,
		Gender:      gender,
	}
	product.ComputeTotalPrice()

	return product, nil
}
