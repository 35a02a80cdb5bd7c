package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/jafarshop/storeapi/internal/domain"
)

// UserRepository manages user records
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	SetCartID(ctx context.Context, userID, cartID uuid.UUID) error
}

// ProductRepository manages catalog entries
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, error)
	UpdateImages(ctx context.Context, id uuid.UUID, images []string) error
	// DecrementStock atomically decrements stock and increments the sold
	// counter, but only when enough stock remains. Returns
	// ErrInsufficientStock when the conditional update matches no row for
	// an existing product.
	DecrementStock(ctx context.Context, id uuid.UUID, quantity int) error
}

// ProductFilter narrows product listings
type ProductFilter struct {
	CategoryID *uuid.UUID
	Featured   *bool
}

// CartRepository manages carts and their lines
type CartRepository interface {
	Create(ctx context.Context, cart *domain.Cart) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Cart, error)
	GetByUser(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	Items(ctx context.Context, cartID uuid.UUID) ([]domain.CartItem, error)
	ItemsDetailed(ctx context.Context, cartID uuid.UUID) ([]domain.CartItemDetail, error)
	// FindItem matches a line by (product, size); FindItemByProduct matches
	// by product alone, the key used by update and remove.
	FindItem(ctx context.Context, cartID, productID uuid.UUID, size *domain.Size) (*domain.CartItem, error)
	FindItemByProduct(ctx context.Context, cartID, productID uuid.UUID) (*domain.CartItem, error)
	InsertItem(ctx context.Context, item *domain.CartItem) error
	UpdateItem(ctx context.Context, item *domain.CartItem) error
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
	ClearItems(ctx context.Context, cartID uuid.UUID) error
	// RecomputeTotal re-derives the cart total from its current lines and
	// persists it. Every item mutator must call this within the same
	// transaction as the mutation.
	RecomputeTotal(ctx context.Context, cartID uuid.UUID) (float64, error)
}

// OrderRepository manages orders and their lines
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	CreateItems(ctx context.Context, items []domain.OrderItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Order, error)
	List(ctx context.Context) ([]domain.Order, error)
	ItemsDetailed(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItemDetail, error)
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus) error
	UpdateDeliveryStatus(ctx context.Context, id uuid.UUID, status domain.DeliveryStatus) error
}

// CategoryRepository manages categories
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]domain.Category, error)
}

// Repositories aggregates all repositories over one storage backend
type Repositories struct {
	User     UserRepository
	Product  ProductRepository
	Cart     CartRepository
	Order    OrderRepository
	Category CategoryRepository
}

// TxFunc runs against transaction-scoped repositories
type TxFunc func(ctx context.Context, repos *Repositories) error

// TxManager provides the commit/abort boundary for multi-record operations.
// The checkout coordinator and every cart mutator run inside WithinTx: all
// writes made by fn commit together, or none do.
type TxManager interface {
	WithinTx(ctx context.Context, fn TxFunc) error
}
