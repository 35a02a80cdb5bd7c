package service

import "github.com/jafarshop/storeapi/internal/domain"

// CartView is the cart as returned to the transport layer: lines with
// resolved product summaries, the persisted total and the item count.
type CartView struct {
	CartID     string                  `json:"cart_id"`
	Items      []domain.CartItemDetail `json:"items"`
	TotalPrice float64                 `json:"total_price"`
	ItemCount  int                     `json:"item_count"`
}

// OrderDetail is an order with its lines resolved for display
type OrderDetail struct {
	Order domain.Order
	Items []domain.OrderItemDetail
}
