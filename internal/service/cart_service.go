package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jafarshop/storeapi/internal/domain"
	"github.com/jafarshop/storeapi/internal/repository"
	"github.com/jafarshop/storeapi/pkg/errors"
)

type cartService struct {
	repos  *repository.Repositories
	tx     repository.TxManager
	logger *zap.Logger
}

// NewCartService creates a new cart service
func NewCartService(repos *repository.Repositories, tx repository.TxManager, logger *zap.Logger) *cartService {
	return &cartService{
		repos:  repos,
		tx:     tx,
		logger: logger,
	}
}

// GetOrCreate returns the user's cart, creating an empty one and linking it
// to the user record if none exists yet. Calling it repeatedly for the same
// user always yields the same cart.
func (s *cartService) GetOrCreate(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	cart, err := s.repos.Cart.GetByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if _, ok := err.(*errors.ErrNotFound); !ok {
		return nil, err
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context, r *repository.Repositories) error {
		cart, err = getOrCreateCart(ctx, r, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return cart, nil
}

// getOrCreateCart is the transaction-scoped variant shared by the mutators
func getOrCreateCart(ctx context.Context, r *repository.Repositories, userID uuid.UUID) (*domain.Cart, error) {
	cart, err := r.Cart.GetByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if _, ok := err.(*errors.ErrNotFound); !ok {
		return nil, err
	}

	cart = &domain.Cart{
		ID:     uuid.New(),
		UserID: userID,
	}
	if err := r.Cart.Create(ctx, cart); err != nil {
		return nil, err
	}

	// Another request may have created the cart between the read and the
	// insert. The insert is a no-op on conflict, so re-read to get the
	// winning row either way.
	cart, err = r.Cart.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := r.User.SetCartID(ctx, userID, cart.ID); err != nil {
		return nil, err
	}

	return cart, nil
}

// Get returns the cart with resolved product summaries, creating the cart
// when the user has none.
func (s *cartService) Get(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	cart, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	items, err := s.repos.Cart.ItemsDetailed(ctx, cart.ID)
	if err != nil {
		return nil, err
	}

	return &CartView{
		CartID:     cart.ID.String(),
		Items:      items,
		TotalPrice: cart.TotalPrice,
		ItemCount:  len(items),
	}, nil
}

// AddItem adds quantity of a product to the user's cart, merging into an
// existing line when one matches the same (product, size) pair. The line
// price is snapshotted from the product's current total price and the cart
// total is recomputed within the same transaction as the mutation.
func (s *cartService) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int, size *domain.Size) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, &errors.ErrValidation{Field: "quantity", Message: "must be a positive integer"}
	}
	if size != nil && !size.IsValid() {
		return nil, &errors.ErrValidation{Field: "size", Message: "must be one of XS, S, M, L, XL, XXL"}
	}

	var cart *domain.Cart
	err := s.tx.WithinTx(ctx, func(ctx context.Context, r *repository.Repositories) error {
		product, err := r.Product.GetByID(ctx, productID)
		if err != nil {
			return err
		}
		if !product.Availability || product.Stock <= 0 {
			return &errors.ErrValidation{Field: "product", Message: "product is not available"}
		}

		cart, err = getOrCreateCart(ctx, r, userID)
		if err != nil {
			return err
		}

		existing, err := r.Cart.FindItem(ctx, cart.ID, productID, size)
		switch err.(type) {
		case nil:
			merged := existing.Quantity + quantity
			if merged > product.Stock {
				return &errors.ErrInsufficientStock{
					ProductID: productID.String(),
					Requested: merged,
					Available: product.Stock,
				}
			}
			existing.Quantity = merged
			if err := r.Cart.UpdateItem(ctx, existing); err != nil {
				return err
			}
		case *errors.ErrNotFound:
			if quantity > product.Stock {
				return &errors.ErrInsufficientStock{
					ProductID: productID.String(),
					Requested: quantity,
					Available: product.Stock,
				}
			}
			item := &domain.CartItem{
				ID:        uuid.New(),
				CartID:    cart.ID,
				ProductID: productID,
				Quantity:  quantity,
				Size:      size,
				Price:     product.TotalPrice,
			}
			if err := r.Cart.InsertItem(ctx, item); err != nil {
				return err
			}
		default:
			return err
		}

		cart.TotalPrice, err = r.Cart.RecomputeTotal(ctx, cart.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return cart, nil
}

// UpdateItem changes quantity and/or size on the line matching the product.
// A quantity of exactly zero removes the line.
func (s *cartService) UpdateItem(ctx context.Context, userID, productID uuid.UUID, quantity *int, size *domain.Size) (*domain.Cart, error) {
	if quantity != nil && *quantity < 0 {
		return nil, &errors.ErrValidation{Field: "quantity", Message: "must not be negative"}
	}
	if size != nil && !size.IsValid() {
		return nil, &errors.ErrValidation{Field: "size", Message: "must be one of XS, S, M, L, XL, XXL"}
	}

	var cart *domain.Cart
	err := s.tx.WithinTx(ctx, func(ctx context.Context, r *repository.Repositories) error {
		var err error
		cart, err = r.Cart.GetByUser(ctx, userID)
		if err != nil {
			return err
		}

		item, err := r.Cart.FindItemByProduct(ctx, cart.ID, productID)
		if err != nil {
			return err
		}

		if quantity != nil && *quantity == 0 {
			if err := r.Cart.DeleteItem(ctx, item.ID); err != nil {
				return err
			}
		} else {
			if quantity != nil {
				item.Quantity = *quantity
			}
			if size != nil {
				item.Size = size
			}
			if err := r.Cart.UpdateItem(ctx, item); err != nil {
				return err
			}
		}

		cart.TotalPrice, err = r.Cart.RecomputeTotal(ctx, cart.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return cart, nil
}

// RemoveItem deletes the line matching the product
func (s *cartService) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*domain.Cart, error) {
	var cart *domain.Cart
	err := s.tx.WithinTx(ctx, func(ctx context.Context, r *repository.Repositories) error {
		var err error
		cart, err = r.Cart.GetByUser(ctx, userID)
		if err != nil {
			return err
		}

		item, err := r.Cart.FindItemByProduct(ctx, cart.ID, productID)
		if err != nil {
			return err
		}

		if err := r.Cart.DeleteItem(ctx, item.ID); err != nil {
			return err
		}

		cart.TotalPrice, err = r.Cart.RecomputeTotal(ctx, cart.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return cart, nil
}

// Clear empties the cart and resets its total to zero. Clearing an already
// empty cart succeeds.
func (s *cartService) Clear(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	var cart *domain.Cart
	err := s.tx.WithinTx(ctx, func(ctx context.Context, r *repository.Repositories) error {
		var err error
		cart, err = r.Cart.GetByUser(ctx, userID)
		if err != nil {
			return err
		}

		if err := r.Cart.ClearItems(ctx, cart.ID); err != nil {
			return err
		}

		cart.TotalPrice, err = r.Cart.RecomputeTotal(ctx, cart.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return cart, nil
}
