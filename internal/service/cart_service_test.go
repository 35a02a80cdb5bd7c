package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jafarshop/storeapi/internal/domain"
	"github.com/jafarshop/storeapi/internal/repository"
	"github.com/jafarshop/storeapi/pkg/errors"
)

func TestGetOrCreateReturnsSameCart(t *testing.T) {
	env := newTestEnv()
	user := env.seedUser()
	svc := NewCartService(env.repos, env.tx, zap.NewNop())

	first, err := svc.GetOrCreate(context.Background(), user.ID)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, user.ID, first.UserID)
	assert.Zero(t, first.TotalPrice)

	second, err := svc.GetOrCreate(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// The cart is linked back to the user record
	stored := env.store.users[user.ID]
	require.NotNil(t, stored.CartID)
	assert.Equal(t, first.ID, *stored.CartID)
}

// racingCartRepo simulates a concurrent request inserting the cart between
// this transaction's miss and its insert: the first read misses even though
// a cart already exists.
type racingCartRepo struct {
	repository.CartRepository
	missed bool
}

func (r *racingCartRepo) GetByUser(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	if !r.missed {
		r.missed = true
		return nil, &errors.ErrNotFound{Resource: "cart", ID: userID.String()}
	}
	return r.CartRepository.GetByUser(ctx, userID)
}

func TestGetOrCreateCartWhenAnotherRequestCreatesFirst(t *testing.T) {
	env := newTestEnv()
	user := env.seedUser()
	existing := env.seedCart(user.ID)

	repos := &repository.Repositories{
		User:     env.repos.User,
		Product:  env.repos.Product,
		Cart:     &racingCartRepo{CartRepository: env.repos.Cart},
		Order:    env.repos.Order,
		Category: env.repos.Category,
	}

	cart, err := getOrCreateCart(context.Background(), repos, user.ID)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, cart.ID)

	// Still exactly one cart, and the user record points at it
	assert.Len(t, env.store.carts, 1)
	stored := env.store.users[user.ID]
	require.NotNil(t, stored.CartID)
	assert.Equal(t, existing.ID, *stored.CartID)
}

func TestAddItemSnapshotsPrice(t *testing.T) {
	env := newTestEnv()
	user := env.seedUser()
	product := env.seedProduct(100, 10)
	product.Discount = 20
	product.ComputeTotalPrice()
	env.store.products[product.ID] = *product

	svc := NewCartService(env.repos, env.tx, zap.NewNop())

	cart, err := svc.AddItem(context.Background(), user.ID, product.ID, 2, nil)
	require.NoError(t, err)

	items, err := env.repos.Cart.Items(context.Background(), cart.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 80.0, items[0].Price) // discounted price at insert time
	assert.Equal(t, 160.0, cart.TotalPrice)
}

func TestAddItemMergesMatchingLine(t *testing.T) {
	env := newTestEnv()
	user := env.seedUser()
	product := env.seedProduct(50, 10)
	size := domain.SizeM

	svc := NewCartService(env.repos, env.tx, zap.NewNop())

	_, err := svc.AddItem(context.Background(), user.ID, product.ID, 2, &size)
	require.NoError(t, err)

	cart, err := svc.AddItem(context.Background(), user.ID, product.ID, 3, &size)
	require.NoError(t, err)

	items, err := env.repos.Cart.Items(context.Background(), cart.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
	assert.Equal(t, 250.0, cart.TotalPrice)
}

func TestAddItemDifferentSizesAreSeparateLines(t *testing.T) {
	env := newTestEnv()
	user := env.seedUser()
	product := env.seedProduct(50, 10)
	m, l := domain.SizeM, domain.SizeL

	svc := NewCartService(env.repos, env.tx, zap.NewNop())

	_, err := svc.AddItem(context.Background(), user.ID, product.ID, 1, &m)
	require.NoError(t, err)

	cart, err := svc.AddItem(context.Background(), user.ID, product.ID, 1, &l)
	require.NoError(t, err)

	items, err := env.repos.Cart.Items(context.Background(), cart.ID)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 100.0, cart.TotalPrice)
}

func TestAddItemRejectsQuantityBeyondStock(t *testing.T) {
	env := newTestEnv()
	user := env.seedUser()
	product := env.seedProduct(50, 3)

	svc := NewCartService(env.repos, env.tx, zap.NewNop())

	_, err := svc.AddItem(context.Background(), user.ID, product.ID, 4, nil)
	var stockErr *errors.ErrInsufficientStock
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 4, stockErr.Requested)
	assert.Equal(t, 3, stockErr.Available)
}

func TestAddItemRejectsMergedQuantityBeyondStock(t *testing.T) {
	env := newTestEnv()
	user := env.seedUser()
	product := env.seedProduct(50, 3)

	svc := NewCartService(env.repos, env.tx, zap.NewNop())

	cart, err := svc.AddItem(context.Background(), user.ID, product.ID, 2, nil)
	require.NoError(t, err)

	_, err = svc.AddItem(context.Background(), user.ID, product.ID, 2, nil)
	var stockErr *errors.ErrInsufficientStock
	require.ErrorAs(t, err, &stockErr)

	// The failed add leaves the cart untouched
	items, err := env.repos.Cart.Items(context.Background(), cart.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, 100.0, env.store.carts[cart.ID].TotalPrice)
}

func TestAddItemValidation(t *testing.T) {
	env := newTestEnv()
	user := env.seedUser()
	product := env.seedProduct(50, 10)
	svc := NewCartService(env.repos, env.tx, zap.NewNop())

	_, err := svc.AddItem(context.Background(), user.ID, product.ID, 0, nil)
	var valErr *errors.ErrValidation
	assert.ErrorAs(t, err, &valErr)

	bad := domain.Size("XXXL")
	_, err = svc.AddItem(context.Background(), user.ID, product.ID, 1, &bad)
	assert.ErrorAs(t, err, &valErr)
}

func TestAddItemUnavailableProduct(t *testing.T) {
	env := newTestEnv()
	user := env.seedUser()
	product := env.seedProduct(50, 0)

	svc := NewCartService(env.repos, env.tx, zap.NewNop())

	_, err := svc.AddItem(context.Background(), user.ID, product.ID, 1, nil)
	var valErr *errors.ErrValidation
	require.ErrorAs(t, err, &valErr)
}

func TestUpdateItemChangesQuantity(t *testing.T) {
	env := newTestEnv()
	user := env.seedUser()
	product := env.seedProduct(50, 10)

	svc := NewCartService(env.repos, env.tx, zap.NewNop())
	_, err := svc.AddItem(context.Background(), user.ID, product.ID, 2, nil)
	require.NoError(t, err)

	quantity := 5
	cart, err := svc.UpdateItem(context.Background(), user.ID, product.ID, &quantity, nil)
	require.NoError(t, err)
	assert.Equal(t, 250.0, cart.TotalPrice)
}

func TestUpdateItemZeroQuantityRemovesLine(t *testing.T) {
	env := newTestEnv()
	user := env.seedUser()
	product := env.seedProduct(50, 10)

	svc := NewCartService(env.repos, env.tx, zap.NewNop())
	_, err := svc.AddItem(context.Background(), user.ID, product.ID, 2, nil)
	require.NoError(t, err)

	quantity := 0
	cart, err := svc.UpdateItem(context.Background(), user.ID, product.ID, &quantity, nil)
	require.NoError(t, err)

	items, err := env.repos.Cart.Items(context.Background(), cart.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, cart.TotalPrice)
}

func TestUpdateItemKeepsLinePosition(t *testing.T) {
	env := newTestEnv()
	user := env.seedUser()
	first := env.seedProduct(40, 10)
	second := env.seedProduct(25, 10)

	svc := NewCartService(env.repos, env.tx, zap.NewNop())
	cart, err := svc.AddItem(context.Background(), user.ID, first.ID, 1, nil)
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), user.ID, second.ID, 1, nil)
	require.NoError(t, err)

	quantity := 3
	_, err = svc.UpdateItem(context.Background(), user.ID, first.ID, &quantity, nil)
	require.NoError(t, err)

	items, err := env.repos.Cart.Items(context.Background(), cart.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, first.ID, items[0].ProductID)
	assert.Equal(t, 3, items[0].Quantity)
}

func TestUpdateItemMissingLine(t *testing.T) {
	env := newTestEnv()
	user := env.seedUser()
	env.seedCart(user.ID)
	product := env.seedProduct(50, 10)

	svc := NewCartService(env.repos, env.tx, zap.NewNop())

	quantity := 1
	_, err := svc.UpdateItem(context.Background(), user.ID, product.ID, &quantity, nil)
	var notFound *errors.ErrNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestRemoveItemRecomputesTotal(t *testing.T) {
	env := newTestEnv()
	user := env.seedUser()
	first := env.seedProduct(50, 10)
	second := env.seedProduct(30, 10)

	svc := NewCartService(env.repos, env.tx, zap.NewNop())
	_, err := svc.AddItem(context.Background(), user.ID, first.ID, 1, nil)
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), user.ID, second.ID, 2, nil)
	require.NoError(t, err)

	cart, err := svc.RemoveItem(context.Background(), user.ID, second.ID)
	require.NoError(t, err)
	assert.Equal(t, 50.0, cart.TotalPrice)
}

func TestClearCart(t *testing.T) {
	env := newTestEnv()
	user := env.seedUser()
	product := env.seedProduct(50, 10)

	svc := NewCartService(env.repos, env.tx, zap.NewNop())
	_, err := svc.AddItem(context.Background(), user.ID, product.ID, 3, nil)
	require.NoError(t, err)

	cart, err := svc.Clear(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Zero(t, cart.TotalPrice)

	items, err := env.repos.Cart.Items(context.Background(), cart.ID)
	require.NoError(t, err)
	assert.Empty(t, items)

	// Clearing an already empty cart is not an error
	cart, err = svc.Clear(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Zero(t, cart.TotalPrice)
}

// The persisted total must always equal the sum of line subtotals after
// every mutation.
func TestCartTotalMatchesItemsAfterEveryMutation(t *testing.T) {
	env := newTestEnv()
	user := env.seedUser()
	first := env.seedProduct(40, 10)
	second := env.seedProduct(25, 10)
	size := domain.SizeS

	svc := NewCartService(env.repos, env.tx, zap.NewNop())

	checkTotal := func(cart *domain.Cart) {
		t.Helper()
		items, err := env.repos.Cart.Items(context.Background(), cart.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.CartTotal(items), cart.TotalPrice)
	}

	cart, err := svc.AddItem(context.Background(), user.ID, first.ID, 2, nil)
	require.NoError(t, err)
	checkTotal(cart)

	cart, err = svc.AddItem(context.Background(), user.ID, second.ID, 1, &size)
	require.NoError(t, err)
	checkTotal(cart)

	quantity := 4
	cart, err = svc.UpdateItem(context.Background(), user.ID, first.ID, &quantity, nil)
	require.NoError(t, err)
	checkTotal(cart)

	cart, err = svc.RemoveItem(context.Background(), user.ID, second.ID)
	require.NoError(t, err)
	checkTotal(cart)

	cart, err = svc.Clear(context.Background(), user.ID)
	require.NoError(t, err)
	checkTotal(cart)
}

func TestGetBuildsCartView(t *testing.T) {
	env := newTestEnv()
	user := env.seedUser()
	product := env.seedProduct(50, 10)

	svc := NewCartService(env.repos, env.tx, zap.NewNop())
	_, err := svc.AddItem(context.Background(), user.ID, product.ID, 2, nil)
	require.NoError(t, err)

	view, err := svc.Get(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, view.ItemCount)
	assert.Equal(t, 100.0, view.TotalPrice)
	require.Len(t, view.Items, 1)
	assert.Equal(t, product.Name, view.Items[0].Product.Name)
}
