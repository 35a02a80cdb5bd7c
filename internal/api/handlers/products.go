package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jafarshop/storeapi/internal/domain"
	"github.com/jafarshop/storeapi/internal/repository"
)

// ProductResponse represents a product in API responses
type ProductResponse struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Images       []string `json:"images"`
	Price        float64  `json:"price"`
	Discount     float64  `json:"discount"`
	TotalPrice   float64  `json:"total_price"`
	IsOnSale     bool     `json:"is_on_sale"`
	IsFeatured   bool     `json:"is_featured"`
	Stock        int      `json:"stock"`
	TotalSold    int      `json:"total_sold"`
	Availability bool     `json:"availability"`
	CategoryID   string   `json:"category_id"`
	Sizes        []string `json:"sizes"`
	Gender       string   `json:"gender"`
}

// HandleListProducts handles GET /v1/products
func HandleListProducts(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter repository.ProductFilter

		if raw := c.Query("category_id"); raw != "" {
			categoryID, err := uuid.Parse(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category ID"})
				return
			}
			filter.CategoryID = &categoryID
		}
		if raw := c.Query("featured"); raw != "" {
			featured := raw == "true"
			filter.Featured = &featured
		}

		products, err := repos.Product.List(c.Request.Context(), filter)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		responses := make([]ProductResponse, 0, len(products))
		for i := range products {
			responses = append(responses, toProductResponse(&products[i]))
		}

		c.JSON(http.StatusOK, gin.H{"products": responses})
	}
}

// HandleGetProduct handles GET /v1/products/:id
func HandleGetProduct(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
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

		c.JSON(http.StatusOK, toProductResponse(product))
	}
}

// HandleListCategories handles GET /v1/categories
func HandleListCategories(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		categories, err := repos.Category.List(c.Request.Context())
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"categories": categories})
	}
}

func toProductResponse(product *domain.Product) ProductResponse {
	sizes := make([]string, 0, len(product.Sizes))
	for _, size := range product.Sizes {
		sizes = append(sizes, string(size))
	}

	return ProductResponse{
		ID:           product.ID.String(),
		Name:         product.Name,
		Description:  product.Description,
		Images:       product.Images,
		Price:        product.Price,
		Discount:     product.Discount,
		TotalPrice:   product.TotalPrice,
		IsOnSale:     product.IsOnSale,
		IsFeatured:   product.IsFeatured,
		Stock:        product.Stock,
		TotalSold:    product.TotalSold,
		Availability: product.Availability,
		CategoryID:   product.CategoryID.String(),
		Sizes:        sizes,
		Gender:       product.Gender,
	}
}
