package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/jafarshop/storeapi/internal/domain"
	"github.com/jafarshop/storeapi/pkg/errors"
)

type cartRepository struct {
	db     executor
	logger *zap.Logger
}

// NewCartRepository creates a new cart repository
func NewCartRepository(db executor, logger *zap.Logger) *cartRepository {
	return &cartRepository{
		db:     db,
		logger: logger,
	}
}

func (r *cartRepository) Create(ctx context.Context, cart *domain.Cart) error {
	query := `
		INSERT INTO carts (id, user_id, total_price, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO NOTHING
	`

	now := time.Now()
	if cart.ID == uuid.Nil {
		cart.ID = uuid.New()
	}
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	cart.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		cart.ID,
		cart.UserID,
		cart.TotalPrice,
		cart.CreatedAt,
		cart.UpdatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create cart", zap.Error(err))
		return err
	}

	return nil
}

func (r *cartRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Cart, error) {
	query := `
		SELECT id, user_id, total_price, created_at, updated_at
		FROM carts
		WHERE id = $1
	`

	return r.scanCart(r.db.QueryRowContext(ctx, query, id), id.String())
}

func (r *cartRepository) GetByUser(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	query := `
		SELECT id, user_id, total_price, created_at, updated_at
		FROM carts
		WHERE user_id = $1
	`

	return r.scanCart(r.db.QueryRowContext(ctx, query, userID), userID.String())
}

func (r *cartRepository) scanCart(row *sql.Row, ref string) (*domain.Cart, error) {
	var cart domain.Cart

	err := row.Scan(
		&cart.ID,
		&cart.UserID,
		&cart.TotalPrice,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "cart", ID: ref}
	}
	if err != nil {
		r.logger.Error("Failed to get cart", zap.Error(err))
		return nil, err
	}

	return &cart, nil
}

func (r *cartRepository) Items(ctx context.Context, cartID uuid.UUID) ([]domain.CartItem, error) {
	query := `
		SELECT id, cart_id, product_id, quantity, size, price, added_at
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY added_at
	`

	rows, err := r.db.QueryContext(ctx, query, cartID)
	if err != nil {
		r.logger.Error("Failed to get cart items", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var items []domain.CartItem
	for rows.Next() {
		item, err := scanCartItem(rows)
		if err != nil {
			r.logger.Error("Failed to scan cart item", zap.Error(err))
			return nil, err
		}
		items = append(items, *item)
	}

	return items, rows.Err()
}

func (r *cartRepository) ItemsDetailed(ctx context.Context, cartID uuid.UUID) ([]domain.CartItemDetail, error) {
	query := `
		SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity, ci.size, ci.price, ci.added_at,
			p.name, p.images, p.total_price, p.stock
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.added_at
	`

	rows, err := r.db.QueryContext(ctx, query, cartID)
	if err != nil {
		r.logger.Error("Failed to get cart items with products", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var details []domain.CartItemDetail
	for rows.Next() {
		var detail domain.CartItemDetail
		var size sql.NullString
		var images pq.StringArray

		err := rows.Scan(
			&detail.ID,
			&detail.CartID,
			&detail.ProductID,
			&detail.Quantity,
			&size,
			&detail.Price,
			&detail.AddedAt,
			&detail.Product.Name,
			&images,
			&detail.Product.TotalPrice,
			&detail.Product.Stock,
		)
		if err != nil {
			r.logger.Error("Failed to scan cart item detail", zap.Error(err))
			return nil, err
		}

		if size.Valid {
			s := domain.Size(size.String)
			detail.Size = &s
		}
		detail.Product.ID = detail.ProductID
		detail.Product.Images = images
		details = append(details, detail)
	}

	return details, rows.Err()
}

// FindItem and FindItemByProduct lock the matched row: callers read the line,
// merge quantities in memory and write back inside the same transaction, so a
// concurrent mutation of the same line must block until this one commits.
func (r *cartRepository) FindItem(ctx context.Context, cartID, productID uuid.UUID, size *domain.Size) (*domain.CartItem, error) {
	query := `
		SELECT id, cart_id, product_id, quantity, size, price, added_at
		FROM cart_items
		WHERE cart_id = $1 AND product_id = $2 AND COALESCE(size, '') = COALESCE($3, '')
		FOR UPDATE
	`

	row := r.db.QueryRowContext(ctx, query, cartID, productID, sizeArg(size))
	return r.findItemRow(row, productID)
}

func (r *cartRepository) FindItemByProduct(ctx context.Context, cartID, productID uuid.UUID) (*domain.CartItem, error) {
	query := `
		SELECT id, cart_id, product_id, quantity, size, price, added_at
		FROM cart_items
		WHERE cart_id = $1 AND product_id = $2
		FOR UPDATE
	`

	row := r.db.QueryRowContext(ctx, query, cartID, productID)
	return r.findItemRow(row, productID)
}

func (r *cartRepository) findItemRow(row *sql.Row, productID uuid.UUID) (*domain.CartItem, error) {
	item, err := scanCartItem(row)
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "cart item", ID: productID.String()}
	}
	if err != nil {
		r.logger.Error("Failed to find cart item", zap.Error(err))
		return nil, err
	}
	return item, nil
}

func (r *cartRepository) InsertItem(ctx context.Context, item *domain.CartItem) error {
	query := `
		INSERT INTO cart_items (id, cart_id, product_id, quantity, size, price, added_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if item.AddedAt.IsZero() {
		item.AddedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, query,
		item.ID,
		item.CartID,
		item.ProductID,
		item.Quantity,
		sizeArg(item.Size),
		item.Price,
		item.AddedAt,
	)

	if err != nil {
		r.logger.Error("Failed to insert cart item", zap.Error(err))
		return err
	}

	return nil
}

func (r *cartRepository) UpdateItem(ctx context.Context, item *domain.CartItem) error {
	// added_at stays untouched so the line keeps its position in the cart
	query := `
		UPDATE cart_items
		SET quantity = $2, size = $3
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, item.ID, item.Quantity, sizeArg(item.Size))
	if err != nil {
		r.logger.Error("Failed to update cart item", zap.Error(err))
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return &errors.ErrNotFound{Resource: "cart item", ID: item.ID.String()}
	}

	return nil
}

func (r *cartRepository) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1`, itemID)
	if err != nil {
		r.logger.Error("Failed to delete cart item", zap.Error(err))
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return &errors.ErrNotFound{Resource: "cart item", ID: itemID.String()}
	}

	return nil
}

func (r *cartRepository) ClearItems(ctx context.Context, cartID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	if err != nil {
		r.logger.Error("Failed to clear cart items", zap.Error(err))
		return err
	}
	return nil
}

// RecomputeTotal re-derives the cart total from its committed lines. Callers
// run it inside the same transaction as the item mutation so the total is
// never observed stale.
func (r *cartRepository) RecomputeTotal(ctx context.Context, cartID uuid.UUID) (float64, error) {
	query := `
		UPDATE carts
		SET total_price = COALESCE(
				(SELECT SUM(price * quantity) FROM cart_items WHERE cart_id = $1), 0),
			updated_at = $2
		WHERE id = $1
		RETURNING total_price
	`

	var total float64
	err := r.db.QueryRowContext(ctx, query, cartID, time.Now()).Scan(&total)
	if err == sql.ErrNoRows {
		return 0, &errors.ErrNotFound{Resource: "cart", ID: cartID.String()}
	}
	if err != nil {
		r.logger.Error("Failed to recompute cart total", zap.Error(err))
		return 0, err
	}

	return total, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCartItem(row rowScanner) (*domain.CartItem, error) {
	var item domain.CartItem
	var size sql.NullString

	err := row.Scan(
		&item.ID,
		&item.CartID,
		&item.ProductID,
		&item.Quantity,
		&size,
		&item.Price,
		&item.AddedAt,
	)
	if err != nil {
		return nil, err
	}

	if size.Valid {
		s := domain.Size(size.String)
		item.Size = &s
	}

	return &item, nil
}

func sizeArg(size *domain.Size) sql.NullString {
	if size == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*size), Valid: true}
}
