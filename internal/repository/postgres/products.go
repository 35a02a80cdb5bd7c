package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/jafarshop/storeapi/internal/domain"
	"github.com/jafarshop/storeapi/internal/repository"
	"github.com/jafarshop/storeapi/pkg/errors"
)

type productRepository struct {
	db     executor
	logger *zap.Logger
}

// NewProductRepository creates a new product repository
func NewProductRepository(db executor, logger *zap.Logger) *productRepository {
	return &productRepository{
		db:     db,
		logger: logger,
	}
}

const productColumns = `
	id, name, description, images, price, discount, total_price, is_on_sale,
	is_featured, stock, total_sold, availability, category_id, sizes, gender,
	created_at, updated_at
`

func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (id, name, description, images, price, discount, total_price,
			is_on_sale, is_featured, stock, total_sold, availability, category_id, sizes,
			gender, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	now := time.Now()
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now
	product.ComputeTotalPrice()

	_, err := r.db.ExecContext(ctx, query,
		product.ID,
		product.Name,
		product.Description,
		pq.Array(product.Images),
		product.Price,
		product.Discount,
		product.TotalPrice,
		product.IsOnSale,
		product.IsFeatured,
		product.Stock,
		product.TotalSold,
		product.Availability,
		product.CategoryID,
		pq.Array(sizesToStrings(product.Sizes)),
		product.Gender,
		product.CreatedAt,
		product.UpdatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create product", zap.Error(err))
		return err
	}

	return nil
}

func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET name = $2, description = $3, images = $4, price = $5, discount = $6,
			total_price = $7, is_on_sale = $8, is_featured = $9, stock = $10,
			availability = $11, category_id = $12, sizes = $13, gender = $14, updated_at = $15
		WHERE id = $1
	`

	product.UpdatedAt = time.Now()
	product.ComputeTotalPrice()

	result, err := r.db.ExecContext(ctx, query,
		product.ID,
		product.Name,
		product.Description,
		pq.Array(product.Images),
		product.Price,
		product.Discount,
		product.TotalPrice,
		product.IsOnSale,
		product.IsFeatured,
		product.Stock,
		product.Availability,
		product.CategoryID,
		pq.Array(sizesToStrings(product.Sizes)),
		product.Gender,
		product.UpdatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to update product", zap.Error(err))
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return &errors.ErrNotFound{Resource: "product", ID: product.ID.String()}
	}

	return nil
}

func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete product", zap.Error(err))
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return &errors.ErrNotFound{Resource: "product", ID: id.String()}
	}

	return nil
}

func (r *productRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	var product domain.Product
	var images pq.StringArray
	var sizes pq.StringArray

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&images,
		&product.Price,
		&product.Discount,
		&product.TotalPrice,
		&product.IsOnSale,
		&product.IsFeatured,
		&product.Stock,
		&product.TotalSold,
		&product.Availability,
		&product.CategoryID,
		&sizes,
		&product.Gender,
		&product.CreatedAt,
		&product.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "product", ID: id.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get product", zap.Error(err))
		return nil, err
	}

	product.Images = images
	product.Sizes = stringsToSizes(sizes)

	return &product, nil
}

func (r *productRepository) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE 1=1`
	args := []interface{}{}

	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		query += ` AND category_id = $1`
	}
	if filter.Featured != nil {
		args = append(args, *filter.Featured)
		if len(args) == 1 {
			query += ` AND is_featured = $1`
		} else {
			query += ` AND is_featured = $2`
		}
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list products", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var product domain.Product
		var images pq.StringArray
		var sizes pq.StringArray

		err := rows.Scan(
			&product.ID,
			&product.Name,
			&product.Description,
			&images,
			&product.Price,
			&product.Discount,
			&product.TotalPrice,
			&product.IsOnSale,
			&product.IsFeatured,
			&product.Stock,
			&product.TotalSold,
			&product.Availability,
			&product.CategoryID,
			&sizes,
			&product.Gender,
			&product.CreatedAt,
			&product.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan product", zap.Error(err))
			return nil, err
		}

		product.Images = images
		product.Sizes = stringsToSizes(sizes)
		products = append(products, product)
	}

	return products, rows.Err()
}

func (r *productRepository) UpdateImages(ctx context.Context, id uuid.UUID, images []string) error {
	query := `
		UPDATE products
		SET images = $2, updated_at = $3
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, pq.Array(images), time.Now())
	if err != nil {
		r.logger.Error("Failed to update product images", zap.Error(err))
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return &errors.ErrNotFound{Resource: "product", ID: id.String()}
	}

	return nil
}

// DecrementStock performs a conditional atomic decrement: the update only
// matches when enough stock remains, so concurrent checkouts can never drive
// stock negative regardless of isolation level.
func (r *productRepository) DecrementStock(ctx context.Context, id uuid.UUID, quantity int) error {
	query := `
		UPDATE products
		SET stock = stock - $2,
			total_sold = total_sold + $2,
			availability = (stock - $2) > 0,
			updated_at = $3
		WHERE id = $1 AND stock >= $2
	`

	result, err := r.db.ExecContext(ctx, query, id, quantity, time.Now())
	if err != nil {
		r.logger.Error("Failed to decrement stock", zap.Error(err))
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		// Either the product is gone or it has too little stock left.
		var stock int
		err := r.db.QueryRowContext(ctx, `SELECT stock FROM products WHERE id = $1`, id).Scan(&stock)
		if err == sql.ErrNoRows {
			return &errors.ErrNotFound{Resource: "product", ID: id.String()}
		}
		if err != nil {
			return err
		}
		return &errors.ErrInsufficientStock{ProductID: id.String(), Requested: quantity, Available: stock}
	}

	return nil
}

func sizesToStrings(sizes []domain.Size) []string {
	out := make([]string, len(sizes))
	for i, s := range sizes {
		out[i] = string(s)
	}
	return out
}

func stringsToSizes(values []string) []domain.Size {
	out := make([]domain.Size, len(values))
	for i, v := range values {
		out[i] = domain.Size(v)
	}
	return out
}
