package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/jafarshop/storeapi/internal/domain"
	"github.com/jafarshop/storeapi/pkg/errors"
)

type orderRepository struct {
	db     executor
	logger *zap.Logger
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db executor, logger *zap.Logger) *orderRepository {
	return &orderRepository{
		db:     db,
		logger: logger,
	}
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (id, user_id, shipping_address, payment_method, payment_status,
			delivery_status, total_price, is_paid, is_delivered, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	now := time.Now()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	shipping, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query,
		order.ID,
		order.UserID,
		shipping,
		order.PaymentMethod,
		order.PaymentStatus,
		order.DeliveryStatus,
		order.TotalPrice,
		order.IsPaid,
		order.IsDelivered,
		order.CreatedAt,
		order.UpdatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create order", zap.Error(err))
		return err
	}

	return nil
}

func (r *orderRepository) CreateItems(ctx context.Context, items []domain.OrderItem) error {
	query := `
		INSERT INTO order_items (id, order_id, product_id, quantity, price, size)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}

		_, err := r.db.ExecContext(ctx, query,
			items[i].ID,
			items[i].OrderID,
			items[i].ProductID,
			items[i].Quantity,
			items[i].Price,
			sizeArg(items[i].Size),
		)
		if err != nil {
			r.logger.Error("Failed to create order item", zap.Error(err))
			return err
		}
	}

	return nil
}

const orderColumns = `
	id, user_id, shipping_address, payment_method, payment_status, delivery_status,
	total_price, is_paid, paid_at, is_delivered, delivered_at, created_at, updated_at
`

func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "order", ID: id.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get order", zap.Error(err))
		return nil, err
	}

	return order, nil
}

func (r *orderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`
	return r.queryOrders(ctx, query, userID)
}

func (r *orderRepository) List(ctx context.Context) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC`
	return r.queryOrders(ctx, query)
}

func (r *orderRepository) queryOrders(ctx context.Context, query string, args ...interface{}) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list orders", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			r.logger.Error("Failed to scan order", zap.Error(err))
			return nil, err
		}
		orders = append(orders, *order)
	}

	return orders, rows.Err()
}

func (r *orderRepository) ItemsDetailed(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItemDetail, error) {
	query := `
		SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.price, oi.size,
			p.name, p.images, p.total_price, p.stock
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
	`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		r.logger.Error("Failed to get order items", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var details []domain.OrderItemDetail
	for rows.Next() {
		var detail domain.OrderItemDetail
		var size sql.NullString
		var images pq.StringArray

		err := rows.Scan(
			&detail.ID,
			&detail.OrderID,
			&detail.ProductID,
			&detail.Quantity,
			&detail.Price,
			&size,
			&detail.Product.Name,
			&images,
			&detail.Product.TotalPrice,
			&detail.Product.Stock,
		)
		if err != nil {
			r.logger.Error("Failed to scan order item detail", zap.Error(err))
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

func (r *orderRepository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus) error {
	query := `
		UPDATE orders
		SET payment_status = $2,
			is_paid = ($2 = 'Paid'),
			paid_at = CASE WHEN $2 = 'Paid' THEN $3 ELSE paid_at END,
			updated_at = $3
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, status, time.Now())
	if err != nil {
		r.logger.Error("Failed to update payment status", zap.Error(err))
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return &errors.ErrNotFound{Resource: "order", ID: id.String()}
	}

	return nil
}

func (r *orderRepository) UpdateDeliveryStatus(ctx context.Context, id uuid.UUID, status domain.DeliveryStatus) error {
	query := `
		UPDATE orders
		SET delivery_status = $2,
			is_delivered = ($2 = 'Delivered'),
			delivered_at = CASE WHEN $2 = 'Delivered' THEN $3 ELSE delivered_at END,
			updated_at = $3
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, status, time.Now())
	if err != nil {
		r.logger.Error("Failed to update delivery status", zap.Error(err))
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return &errors.ErrNotFound{Resource: "order", ID: id.String()}
	}

	return nil
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var order domain.Order
	var shipping []byte
	var paidAt, deliveredAt sql.NullTime

	err := row.Scan(
		&order.ID,
		&order.UserID,
		&shipping,
		&order.PaymentMethod,
		&order.PaymentStatus,
		&order.DeliveryStatus,
		&order.TotalPrice,
		&order.IsPaid,
		&paidAt,
		&order.IsDelivered,
		&deliveredAt,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(shipping, &order.ShippingAddress); err != nil {
		return nil, err
	}
	if paidAt.Valid {
		order.PaidAt = &paidAt.Time
	}
	if deliveredAt.Valid {
		order.DeliveredAt = &deliveredAt.Time
	}

	return &order, nil
}
