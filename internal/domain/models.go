package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// User represents a store customer or admin
type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Phone        string
	Role         Role
	CartID       *uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Category represents a product category
type Category struct {
	ID        uuid.UUID
	Name      string
	Image     *string
	CreatedAt time.Time
}

// Product represents a catalog entry
type Product struct {
	ID           uuid.UUID
	Name         string
	Description  string
	Images       []string
	Price        float64
	Discount     float64 // percentage, 0-100
	TotalPrice   float64 // derived: price after discount
	IsOnSale     bool
	IsFeatured   bool
	Stock        int
	TotalSold    int
	Availability bool
	CategoryID   uuid.UUID
	Sizes        []Size
	Gender       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ComputeTotalPrice derives the discounted total price and availability.
// Total price is rounded to the nearest whole unit and never negative.
// Must be called before every product write.
func (p *Product) ComputeTotalPrice() {
	total := p.Price * (1 - p.Discount/100)
	p.TotalPrice = math.Max(math.Round(total), 0)
	p.Availability = p.Stock > 0
}

// Cart represents a user's active cart. One per user, created lazily,
// emptied rather than deleted.
type Cart struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	TotalPrice float64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CartItem is a prospective purchase line. Price is snapshotted from the
// product's total price when the line is inserted, not re-derived on read.
type CartItem struct {
	ID        uuid.UUID
	CartID    uuid.UUID
	ProductID uuid.UUID
	Quantity  int
	Size      *Size
	Price     float64
	AddedAt   time.Time
}

// Subtotal returns the line contribution to the cart total
func (i CartItem) Subtotal() float64 {
	return i.Price * float64(i.Quantity)
}

// CartTotal sums line subtotals. The persisted cart total must always
// equal this value for the committed set of items.
func CartTotal(items []CartItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Subtotal()
	}
	return total
}

// ProductSummary is the slice of a product resolved into cart and order views
type ProductSummary struct {
	ID         uuid.UUID
	Name       string
	Images     []string
	TotalPrice float64
	Stock      int
}

// CartItemDetail is a cart line with its product resolved for display
type CartItemDetail struct {
	CartItem
	Product ProductSummary
}

// ShippingAddress holds the structured destination fields of an order
type ShippingAddress struct {
	FullName   string `json:"fullName"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country"`
}

// Order is an immutable record of a completed checkout
type Order struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	ShippingAddress ShippingAddress
	PaymentMethod   PaymentMethod
	PaymentStatus   PaymentStatus
	DeliveryStatus  DeliveryStatus
	TotalPrice      float64
	IsPaid          bool
	PaidAt          *time.Time
	IsDelivered     bool
	DeliveredAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderItem is a purchased line, copied from the cart at checkout time
type OrderItem struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ProductID uuid.UUID
	Quantity  int
	Price     float64
	Size      *Size
}

// OrderItemDetail is an order line with its product resolved for display
type OrderItemDetail struct {
	OrderItem
	Product ProductSummary
}

// OrderTotal sums line subtotals for an order
func OrderTotal(items []OrderItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Price * float64(item.Quantity)
	}
	return total
}
