package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jafarshop/storeapi/internal/domain"
	"github.com/jafarshop/storeapi/internal/events"
	"github.com/jafarshop/storeapi/internal/repository"
	"github.com/jafarshop/storeapi/pkg/errors"
)

// memStore is an in-memory backend shared by the fake repositories. The fake
// transaction manager serializes transactions with the mutex and restores a
// snapshot when the transaction function fails, mirroring rollback.
type memStore struct {
	mu         sync.Mutex
	users      map[uuid.UUID]domain.User
	products   map[uuid.UUID]domain.Product
	carts      map[uuid.UUID]domain.Cart
	cartItems  map[uuid.UUID]domain.CartItem
	orders     map[uuid.UUID]domain.Order
	orderItems map[uuid.UUID][]domain.OrderItem
	categories map[uuid.UUID]domain.Category
}

func newMemStore() *memStore {
	return &memStore{
		users:      make(map[uuid.UUID]domain.User),
		products:   make(map[uuid.UUID]domain.Product),
		carts:      make(map[uuid.UUID]domain.Cart),
		cartItems:  make(map[uuid.UUID]domain.CartItem),
		orders:     make(map[uuid.UUID]domain.Order),
		orderItems: make(map[uuid.UUID][]domain.OrderItem),
		categories: make(map[uuid.UUID]domain.Category),
	}
}

func (s *memStore) repositories() *repository.Repositories {
	return &repository.Repositories{
		User:     &fakeUserRepo{store: s},
		Product:  &fakeProductRepo{store: s},
		Cart:     &fakeCartRepo{store: s},
		Order:    &fakeOrderRepo{store: s},
		Category: &fakeCategoryRepo{store: s},
	}
}

func (s *memStore) snapshot() *memStore {
	clone := newMemStore()
	for k, v := range s.users {
		clone.users[k] = v
	}
	for k, v := range s.products {
		clone.products[k] = v
	}
	for k, v := range s.carts {
		clone.carts[k] = v
	}
	for k, v := range s.cartItems {
		clone.cartItems[k] = v
	}
	for k, v := range s.orders {
		clone.orders[k] = v
	}
	for k, v := range s.orderItems {
		items := make([]domain.OrderItem, len(v))
		copy(items, v)
		clone.orderItems[k] = items
	}
	for k, v := range s.categories {
		clone.categories[k] = v
	}
	return clone
}

func (s *memStore) restore(snap *memStore) {
	s.users = snap.users
	s.products = snap.products
	s.carts = snap.carts
	s.cartItems = snap.cartItems
	s.orders = snap.orders
	s.orderItems = snap.orderItems
	s.categories = snap.categories
}

// fakeTxManager serializes transactions over the shared store. All writes made
// by fn are kept on success and discarded on failure.
type fakeTxManager struct {
	store *memStore
}

func (m *fakeTxManager) WithinTx(ctx context.Context, fn repository.TxFunc) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	snap := m.store.snapshot()
	if err := fn(ctx, m.store.repositories()); err != nil {
		m.store.restore(snap)
		return err
	}
	return nil
}

type fakeUserRepo struct {
	store *memStore
}

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.store.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, ok := r.store.users[id]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "user", ID: id.String()}
	}
	return &user, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, user := range r.store.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, &errors.ErrNotFound{Resource: "user", ID: email}
}

func (r *fakeUserRepo) SetCartID(ctx context.Context, userID, cartID uuid.UUID) error {
	user, ok := r.store.users[userID]
	if !ok {
		return &errors.ErrNotFound{Resource: "user", ID: userID.String()}
	}
	user.CartID = &cartID
	r.store.users[userID] = user
	return nil
}

type fakeProductRepo struct {
	store *memStore
}

func (r *fakeProductRepo) Create(ctx context.Context, product *domain.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	product.ComputeTotalPrice()
	r.store.products[product.ID] = *product
	return nil
}

func (r *fakeProductRepo) Update(ctx context.Context, product *domain.Product) error {
	if _, ok := r.store.products[product.ID]; !ok {
		return &errors.ErrNotFound{Resource: "product", ID: product.ID.String()}
	}
	product.ComputeTotalPrice()
	r.store.products[product.ID] = *product
	return nil
}

func (r *fakeProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.store.products[id]; !ok {
		return &errors.ErrNotFound{Resource: "product", ID: id.String()}
	}
	delete(r.store.products, id)
	return nil
}

func (r *fakeProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, ok := r.store.products[id]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "product", ID: id.String()}
	}
	return &product, nil
}

func (r *fakeProductRepo) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, error) {
	var products []domain.Product
	for _, product := range r.store.products {
		if filter.CategoryID != nil && product.CategoryID != *filter.CategoryID {
			continue
		}
		if filter.Featured != nil && product.IsFeatured != *filter.Featured {
			continue
		}
		products = append(products, product)
	}
	return products, nil
}

func (r *fakeProductRepo) UpdateImages(ctx context.Context, id uuid.UUID, images []string) error {
	product, ok := r.store.products[id]
	if !ok {
		return &errors.ErrNotFound{Resource: "product", ID: id.String()}
	}
	product.Images = images
	r.store.products[id] = product
	return nil
}

func (r *fakeProductRepo) DecrementStock(ctx context.Context, id uuid.UUID, quantity int) error {
	product, ok := r.store.products[id]
	if !ok {
		return &errors.ErrNotFound{Resource: "product", ID: id.String()}
	}
	if product.Stock < quantity {
		return &errors.ErrInsufficientStock{
			ProductID: id.String(),
			Requested: quantity,
			Available: product.Stock,
		}
	}
	product.Stock -= quantity
	product.TotalSold += quantity
	product.Availability = product.Stock > 0
	r.store.products[id] = product
	return nil
}

type fakeCartRepo struct {
	store *memStore
}

// Create mirrors the insert's ON CONFLICT (user_id) DO NOTHING: a user who
// already has a cart keeps it.
func (r *fakeCartRepo) Create(ctx context.Context, cart *domain.Cart) error {
	if cart.ID == uuid.Nil {
		cart.ID = uuid.New()
	}
	for _, existing := range r.store.carts {
		if existing.UserID == cart.UserID {
			return nil
		}
	}
	r.store.carts[cart.ID] = *cart
	return nil
}

func (r *fakeCartRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Cart, error) {
	cart, ok := r.store.carts[id]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "cart", ID: id.String()}
	}
	return &cart, nil
}

func (r *fakeCartRepo) GetByUser(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	for _, cart := range r.store.carts {
		if cart.UserID == userID {
			c := cart
			return &c, nil
		}
	}
	return nil, &errors.ErrNotFound{Resource: "cart", ID: userID.String()}
}

func (r *fakeCartRepo) Items(ctx context.Context, cartID uuid.UUID) ([]domain.CartItem, error) {
	var items []domain.CartItem
	for _, item := range r.store.cartItems {
		if item.CartID == cartID {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].AddedAt.Before(items[j].AddedAt)
	})
	return items, nil
}

func (r *fakeCartRepo) ItemsDetailed(ctx context.Context, cartID uuid.UUID) ([]domain.CartItemDetail, error) {
	items, _ := r.Items(ctx, cartID)
	details := make([]domain.CartItemDetail, 0, len(items))
	for _, item := range items {
		product := r.store.products[item.ProductID]
		details = append(details, domain.CartItemDetail{
			CartItem: item,
			Product: domain.ProductSummary{
				ID:         product.ID,
				Name:       product.Name,
				Images:     product.Images,
				TotalPrice: product.TotalPrice,
				Stock:      product.Stock,
			},
		})
	}
	return details, nil
}

func sizeKey(size *domain.Size) string {
	if size == nil {
		return ""
	}
	return string(*size)
}

func (r *fakeCartRepo) FindItem(ctx context.Context, cartID, productID uuid.UUID, size *domain.Size) (*domain.CartItem, error) {
	for _, item := range r.store.cartItems {
		if item.CartID == cartID && item.ProductID == productID && sizeKey(item.Size) == sizeKey(size) {
			found := item
			return &found, nil
		}
	}
	return nil, &errors.ErrNotFound{Resource: "cart item", ID: productID.String()}
}

func (r *fakeCartRepo) FindItemByProduct(ctx context.Context, cartID, productID uuid.UUID) (*domain.CartItem, error) {
	for _, item := range r.store.cartItems {
		if item.CartID == cartID && item.ProductID == productID {
			found := item
			return &found, nil
		}
	}
	return nil, &errors.ErrNotFound{Resource: "cart item", ID: productID.String()}
}

func (r *fakeCartRepo) InsertItem(ctx context.Context, item *domain.CartItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if item.AddedAt.IsZero() {
		item.AddedAt = time.Now()
	}
	r.store.cartItems[item.ID] = *item
	return nil
}

func (r *fakeCartRepo) UpdateItem(ctx context.Context, item *domain.CartItem) error {
	if _, ok := r.store.cartItems[item.ID]; !ok {
		return &errors.ErrNotFound{Resource: "cart item", ID: item.ID.String()}
	}
	r.store.cartItems[item.ID] = *item
	return nil
}

func (r *fakeCartRepo) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	if _, ok := r.store.cartItems[itemID]; !ok {
		return &errors.ErrNotFound{Resource: "cart item", ID: itemID.String()}
	}
	delete(r.store.cartItems, itemID)
	return nil
}

func (r *fakeCartRepo) ClearItems(ctx context.Context, cartID uuid.UUID) error {
	for id, item := range r.store.cartItems {
		if item.CartID == cartID {
			delete(r.store.cartItems, id)
		}
	}
	return nil
}

func (r *fakeCartRepo) RecomputeTotal(ctx context.Context, cartID uuid.UUID) (float64, error) {
	cart, ok := r.store.carts[cartID]
	if !ok {
		return 0, &errors.ErrNotFound{Resource: "cart", ID: cartID.String()}
	}
	var total float64
	for _, item := range r.store.cartItems {
		if item.CartID == cartID {
			total += item.Price * float64(item.Quantity)
		}
	}
	cart.TotalPrice = total
	r.store.carts[cartID] = cart
	return total, nil
}

type fakeOrderRepo struct {
	store *memStore
}

func (r *fakeOrderRepo) Create(ctx context.Context, order *domain.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	r.store.orders[order.ID] = *order
	return nil
}

func (r *fakeOrderRepo) CreateItems(ctx context.Context, items []domain.OrderItem) error {
	for _, item := range items {
		r.store.orderItems[item.OrderID] = append(r.store.orderItems[item.OrderID], item)
	}
	return nil
}

func (r *fakeOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	order, ok := r.store.orders[id]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "order", ID: id.String()}
	}
	return &order, nil
}

func (r *fakeOrderRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Order, error) {
	var orders []domain.Order
	for _, order := range r.store.orders {
		if order.UserID == userID {
			orders = append(orders, order)
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

func (r *fakeOrderRepo) List(ctx context.Context) ([]domain.Order, error) {
	var orders []domain.Order
	for _, order := range r.store.orders {
		orders = append(orders, order)
	}
	return orders, nil
}

func (r *fakeOrderRepo) ItemsDetailed(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItemDetail, error) {
	items := r.store.orderItems[orderID]
	details := make([]domain.OrderItemDetail, 0, len(items))
	for _, item := range items {
		product := r.store.products[item.ProductID]
		details = append(details, domain.OrderItemDetail{
			OrderItem: item,
			Product: domain.ProductSummary{
				ID:         product.ID,
				Name:       product.Name,
				Images:     product.Images,
				TotalPrice: product.TotalPrice,
				Stock:      product.Stock,
			},
		})
	}
	return details, nil
}

func (r *fakeOrderRepo) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus) error {
	order, ok := r.store.orders[id]
	if !ok {
		return &errors.ErrNotFound{Resource: "order", ID: id.String()}
	}
	order.PaymentStatus = status
	order.IsPaid = status == domain.PaymentStatusPaid
	r.store.orders[id] = order
	return nil
}

func (r *fakeOrderRepo) UpdateDeliveryStatus(ctx context.Context, id uuid.UUID, status domain.DeliveryStatus) error {
	order, ok := r.store.orders[id]
	if !ok {
		return &errors.ErrNotFound{Resource: "order", ID: id.String()}
	}
	order.DeliveryStatus = status
	order.IsDelivered = status == domain.DeliveryStatusDelivered
	r.store.orders[id] = order
	return nil
}

type fakeCategoryRepo struct {
	store *memStore
}

func (r *fakeCategoryRepo) Create(ctx context.Context, category *domain.Category) error {
	if category.ID == uuid.Nil {
		category.ID = uuid.New()
	}
	r.store.categories[category.ID] = *category
	return nil
}

func (r *fakeCategoryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.store.categories[id]; !ok {
		return &errors.ErrNotFound{Resource: "category", ID: id.String()}
	}
	delete(r.store.categories, id)
	return nil
}

func (r *fakeCategoryRepo) List(ctx context.Context) ([]domain.Category, error) {
	var categories []domain.Category
	for _, category := range r.store.categories {
		categories = append(categories, category)
	}
	return categories, nil
}

// capturePublisher records published events; failPublisher always errors.
type capturePublisher struct {
	mu     sync.Mutex
	events []events.OrderCreatedEvent
}

func (p *capturePublisher) PublishOrderCreated(ctx context.Context, event events.OrderCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

type failPublisher struct{}

func (failPublisher) PublishOrderCreated(ctx context.Context, event events.OrderCreatedEvent) error {
	return context.DeadlineExceeded
}

func (failPublisher) Close() error { return nil }

// testEnv bundles the fakes a service test needs
type testEnv struct {
	store *memStore
	repos *repository.Repositories
	tx    repository.TxManager
}

func newTestEnv() *testEnv {
	store := newMemStore()
	return &testEnv{
		store: store,
		repos: store.repositories(),
		tx:    &fakeTxManager{store: store},
	}
}

func (e *testEnv) seedUser() *domain.User {
	user := &domain.User{
		ID:    uuid.New(),
		Name:  "Test User",
		Email: uuid.NewString() + "@example.com",
		Phone: "+20123456789",
		Role:  domain.RoleUser,
	}
	e.store.users[user.ID] = *user
	return user
}

func (e *testEnv) seedProduct(price float64, stock int) *domain.Product {
	product := &domain.Product{
		ID:          uuid.New(),
		Name:        "Test Product",
		Description: "A product used in tests",
		Price:       price,
		Stock:       stock,
		CategoryID:  uuid.New(),
		Sizes:       []domain.Size{domain.SizeM, domain.SizeL},
		Gender:      "Unisex",
	}
	product.ComputeTotalPrice()
	e.store.products[product.ID] = *product
	return product
}

func (e *testEnv) seedCart(userID uuid.UUID) *domain.Cart {
	cart := &domain.Cart{
		ID:     uuid.New(),
		UserID: userID,
	}
	e.store.carts[cart.ID] = *cart

	user := e.store.users[userID]
	user.CartID = &cart.ID
	e.store.users[userID] = user
	return cart
}

func (e *testEnv) seedCartItem(cartID, productID uuid.UUID, quantity int, price float64, size *domain.Size) *domain.CartItem {
	item := &domain.CartItem{
		ID:        uuid.New(),
		CartID:    cartID,
		ProductID: productID,
		Quantity:  quantity,
		Price:     price,
		Size:      size,
	}
	e.store.cartItems[item.ID] = *item

	cart := e.store.carts[cartID]
	cart.TotalPrice += price * float64(quantity)
	e.store.carts[cartID] = cart
	return item
}
