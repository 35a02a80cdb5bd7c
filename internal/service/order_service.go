package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jafarshop/storeapi/internal/domain"
	"github.com/jafarshop/storeapi/internal/events"
	"github.com/jafarshop/storeapi/internal/repository"
	"github.com/jafarshop/storeapi/pkg/errors"
)

// Shipping phone numbers: 7-15 characters of digits, +, -, spaces, parentheses
var phonePattern = regexp.MustCompile(`^[0-9+\-\s()]{7,15}$`)

const defaultShippingCountry = "Egypt"

type orderService struct {
	repos     *repository.Repositories
	tx        repository.TxManager
	publisher events.Publisher
	logger    *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(repos *repository.Repositories, tx repository.TxManager, publisher events.Publisher, logger *zap.Logger) *orderService {
	return &orderService{
		repos:     repos,
		tx:        tx,
		publisher: publisher,
		logger:    logger,
	}
}

// CreateOrder converts the user's cart into a persisted order. The whole
// sequence runs in one transaction: resolve and authorize the cart, validate
// its lines and the order input, re-verify stock, create the order, decrement
// stock and bump sold counters, then clear the cart. Any failure rolls every
// step back, leaving cart and catalog exactly as they were.
func (s *orderService) CreateOrder(ctx context.Context, userID uuid.UUID, shipping domain.ShippingAddress, paymentMethod domain.PaymentMethod) (*domain.Order, error) {
	var order *domain.Order
	var orderItems []domain.OrderItem

	err := s.tx.WithinTx(ctx, func(ctx context.Context, r *repository.Repositories) error {
		user, err := r.User.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if user.CartID == nil {
			return &errors.ErrNotFound{Resource: "cart", ID: userID.String()}
		}

		cart, err := r.Cart.GetByID(ctx, *user.CartID)
		if err != nil {
			return err
		}

		if cart.UserID != userID {
			return &errors.ErrForbidden{Message: "unauthorized access to cart"}
		}

		items, err := r.Cart.Items(ctx, cart.ID)
		if err != nil {
			return err
		}

		if err := validateCartItems(items); err != nil {
			return err
		}
		if shipping.Country == "" {
			shipping.Country = defaultShippingCountry
		}
		if err := validateOrderInput(shipping, paymentMethod); err != nil {
			return err
		}

		// Stock is re-verified here, not trusted from add-to-cart time.
		for _, item := range items {
			product, err := r.Product.GetByID(ctx, item.ProductID)
			if err != nil {
				return err
			}
			if product.Stock < item.Quantity {
				return &errors.ErrInsufficientStock{
					ProductID: item.ProductID.String(),
					Requested: item.Quantity,
					Available: product.Stock,
				}
			}
		}

		order = &domain.Order{
			ID:              uuid.New(),
			UserID:          userID,
			ShippingAddress: shipping,
			PaymentMethod:   paymentMethod,
			PaymentStatus:   domain.PaymentStatusPending,
			DeliveryStatus:  domain.DeliveryStatusProcessing,
			TotalPrice:      cart.TotalPrice,
		}
		if err := r.Order.Create(ctx, order); err != nil {
			return err
		}

		orderItems = make([]domain.OrderItem, 0, len(items))
		for _, item := range items {
			orderItems = append(orderItems, domain.OrderItem{
				ID:        uuid.New(),
				OrderID:   order.ID,
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				Price:     item.Price,
				Size:      item.Size,
			})
		}
		if err := r.Order.CreateItems(ctx, orderItems); err != nil {
			return err
		}

		// The decrement is conditional on remaining stock, so a concurrent
		// checkout that got there first aborts this one instead of driving
		// stock negative.
		for _, item := range items {
			if err := r.Product.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		if err := r.Cart.ClearItems(ctx, cart.ID); err != nil {
			return err
		}
		if _, err := r.Cart.RecomputeTotal(ctx, cart.ID); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishOrderCreated(ctx, order, orderItems)

	return order, nil
}

// publishOrderCreated emits the post-commit event. The order is already
// durable, so a publish failure is logged and swallowed.
func (s *orderService) publishOrderCreated(ctx context.Context, order *domain.Order, items []domain.OrderItem) {
	event := events.OrderCreatedEvent{
		EventID:    uuid.NewString(),
		OrderID:    order.ID.String(),
		UserID:     order.UserID.String(),
		TotalPrice: order.TotalPrice,
		Items:      make([]events.OrderItemEvent, 0, len(items)),
	}
	for _, item := range items {
		event.Items = append(event.Items, events.OrderItemEvent{
			ProductID: item.ProductID.String(),
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}

	if err := s.publisher.PublishOrderCreated(ctx, event); err != nil {
		s.logger.Warn("Failed to publish order created event",
			zap.String("order_id", event.OrderID),
			zap.Error(err),
		)
	}
}

// GetOrders returns the user's order history, newest first, with product
// summaries resolved for every line.
func (s *orderService) GetOrders(ctx context.Context, userID uuid.UUID) ([]OrderDetail, error) {
	orders, err := s.repos.Order.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, &errors.ErrNotFound{Resource: "orders", ID: userID.String()}
	}

	details := make([]OrderDetail, 0, len(orders))
	for _, order := range orders {
		items, err := s.repos.Order.ItemsDetailed(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		details = append(details, OrderDetail{Order: order, Items: items})
	}

	return details, nil
}

// UpdatePaymentStatus transitions an order's payment state machine
func (s *orderService) UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, status domain.PaymentStatus) error {
	order, err := s.repos.Order.GetByID(ctx, orderID)
	if err != nil {
		return err
	}

	if !order.PaymentStatus.CanTransitionTo(status) {
		return &errors.ErrInvalidStateTransition{
			From: string(order.PaymentStatus),
			To:   string(status),
		}
	}

	return s.repos.Order.UpdatePaymentStatus(ctx, orderID, status)
}

// UpdateDeliveryStatus transitions an order's delivery state machine
func (s *orderService) UpdateDeliveryStatus(ctx context.Context, orderID uuid.UUID, status domain.DeliveryStatus) error {
	order, err := s.repos.Order.GetByID(ctx, orderID)
	if err != nil {
		return err
	}

	if !order.DeliveryStatus.CanTransitionTo(status) {
		return &errors.ErrInvalidStateTransition{
			From: string(order.DeliveryStatus),
			To:   string(status),
		}
	}

	return s.repos.Order.UpdateDeliveryStatus(ctx, orderID, status)
}

// validateCartItems checks the structural invariants of the persisted cart
// before checkout: non-empty, and every line carries a product reference, an
// integer quantity of at least one, a non-negative price and a known size.
func validateCartItems(items []domain.CartItem) error {
	if len(items) == 0 {
		return &errors.ErrInvalidCartState{Reason: "cart is empty"}
	}

	for _, item := range items {
		switch {
		case item.ProductID == uuid.Nil:
			return &errors.ErrInvalidCartState{Reason: fmt.Sprintf("item %s has no product reference", item.ID)}
		case item.Quantity < 1:
			return &errors.ErrInvalidCartState{Reason: fmt.Sprintf("item %s has quantity %d", item.ID, item.Quantity)}
		case item.Price < 0:
			return &errors.ErrInvalidCartState{Reason: fmt.Sprintf("item %s has negative price", item.ID)}
		case item.Size != nil && !item.Size.IsValid():
			return &errors.ErrInvalidCartState{Reason: fmt.Sprintf("item %s has unknown size %q", item.ID, *item.Size)}
		}
	}

	return nil
}

// validateOrderInput checks the shipping address and payment method
func validateOrderInput(shipping domain.ShippingAddress, paymentMethod domain.PaymentMethod) error {
	if strings.TrimSpace(shipping.FullName) == "" {
		return &errors.ErrValidation{Field: "shippingAddress.fullName", Message: "is required"}
	}
	if strings.TrimSpace(shipping.Phone) == "" {
		return &errors.ErrValidation{Field: "shippingAddress.phone", Message: "is required"}
	}
	if strings.TrimSpace(shipping.Address) == "" {
		return &errors.ErrValidation{Field: "shippingAddress.address", Message: "is required"}
	}
	if strings.TrimSpace(shipping.City) == "" {
		return &errors.ErrValidation{Field: "shippingAddress.city", Message: "is required"}
	}
	if !phonePattern.MatchString(shipping.Phone) {
		return &errors.ErrValidation{Field: "shippingAddress.phone", Message: "invalid phone number format"}
	}
	if !paymentMethod.IsValid() {
		return &errors.ErrValidation{Field: "paymentMethod", Message: "must be one of Cash, Card, PayPal"}
	}

	return nil
}
