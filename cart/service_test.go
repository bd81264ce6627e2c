package cart

import (
	"context"
	"sync"
	"testing"
	"time"

	"soko/apperrors"
	"soko/models"
	"soko/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memCarts struct {
	mu    sync.Mutex
	carts map[string]*models.Cart
}

func newMemCarts() *memCarts { return &memCarts{carts: make(map[string]*models.Cart)} }

func (m *memCarts) FindByUser(_ context.Context, userID string) (*models.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.carts[userID]; ok {
		cp := *c
		cp.Items = append([]models.CartItem(nil), c.Items...)
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func (m *memCarts) GetOrCreate(ctx context.Context, userID string) (*models.Cart, error) {
	if c, err := m.FindByUser(ctx, userID); err == nil {
		return c, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	c := &models.Cart{ID: "cart-" + userID, UserID: userID, Items: []models.CartItem{}, CreatedAt: now, UpdatedAt: now}
	m.carts[userID] = c
	cp := *c
	return &cp, nil
}

func (m *memCarts) Save(_ context.Context, cart *models.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart.RecomputeTotal()
	cp := *cart
	cp.Items = append([]models.CartItem(nil), cart.Items...)
	m.carts[cart.UserID] = &cp
	return nil
}

func (m *memCarts) Clear(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.carts[userID]; ok {
		c.Items = []models.CartItem{}
		c.TotalAmount = 0
	}
	return nil
}

type memCatalog struct {
	products map[string]*models.Product
}

func (m *memCatalog) FindProduct(_ context.Context, productID string) (*models.Product, error) {
	if p, ok := m.products[productID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func newTestService() (*Service, *memCarts, *memCatalog) {
	carts := newMemCarts()
	catalog := &memCatalog{products: map[string]*models.Product{
		"p1": {ID: "p1", Name: "Teapot", Price: 25},
		"p2": {ID: "p2", Name: "Mug", Price: 10},
		"p3": {ID: "p3", Name: "Kettle", Price: 40, OutOfStock: true},
	}}
	return NewService(carts, catalog), carts, catalog
}

func TestGetCartLazilyCreates(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	cart, err := svc.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Zero(t, cart.TotalAmount)
}

func TestAddItem(t *testing.T) {
	ctx := context.Background()

	t.Run("snapshots the live price", func(t *testing.T) {
		svc, _, _ := newTestService()
		cart, err := svc.AddItem(ctx, "u1", "p1", 2)
		require.NoError(t, err)
		require.Len(t, cart.Items, 1)
		assert.Equal(t, float64(25), cart.Items[0].Price)
		assert.Equal(t, "Teapot", cart.Items[0].Name)
		assert.Equal(t, float64(50), cart.TotalAmount)
	})

	t.Run("merges quantities for the same product", func(t *testing.T) {
		svc, _, _ := newTestService()
		_, err := svc.AddItem(ctx, "u1", "p1", 1)
		require.NoError(t, err)
		cart, err := svc.AddItem(ctx, "u1", "p1", 2)
		require.NoError(t, err)
		require.Len(t, cart.Items, 1)
		assert.Equal(t, 3, cart.Items[0].Quantity)
	})

	t.Run("rejects unknown and out-of-stock products", func(t *testing.T) {
		svc, _, _ := newTestService()
		_, err := svc.AddItem(ctx, "u1", "ghost", 1)
		assert.True(t, apperrors.Is(err, apperrors.KindNotFound))

		_, err = svc.AddItem(ctx, "u1", "p3", 1)
		assert.True(t, apperrors.Is(err, apperrors.KindBadRequest))
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		svc, _, _ := newTestService()
		_, err := svc.AddItem(ctx, "u1", "p1", 0)
		assert.True(t, apperrors.Is(err, apperrors.KindBadRequest))
	})
}

func TestUpdateItem(t *testing.T) {
	ctx := context.Background()

	t.Run("sets quantity", func(t *testing.T) {
		svc, _, _ := newTestService()
		_, err := svc.AddItem(ctx, "u1", "p1", 1)
		require.NoError(t, err)

		cart, err := svc.UpdateItem(ctx, "u1", "p1", 5)
		require.NoError(t, err)
		assert.Equal(t, 5, cart.Items[0].Quantity)
		assert.Equal(t, float64(125), cart.TotalAmount)
	})

	t.Run("quantity zero removes the line", func(t *testing.T) {
		svc, _, _ := newTestService()
		_, err := svc.AddItem(ctx, "u1", "p1", 1)
		require.NoError(t, err)

		cart, err := svc.UpdateItem(ctx, "u1", "p1", 0)
		require.NoError(t, err)
		assert.Empty(t, cart.Items)
	})

	t.Run("missing line reports not found", func(t *testing.T) {
		svc, _, _ := newTestService()
		_, err := svc.AddItem(ctx, "u1", "p1", 1)
		require.NoError(t, err)

		_, err = svc.UpdateItem(ctx, "u1", "p2", 2)
		assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
	})
}

func TestRemoveItem(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()
	_, err := svc.AddItem(ctx, "u1", "p1", 1)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "u1", "p2", 1)
	require.NoError(t, err)

	cart, err := svc.RemoveItem(ctx, "u1", "p1")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "p2", cart.Items[0].ProductID)
	assert.Equal(t, float64(10), cart.TotalAmount)

	_, err = svc.RemoveItem(ctx, "u1", "p1")
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestClearAndCount(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	// empty cart counts zero without creating one
	count, err := svc.ItemCount(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = svc.AddItem(ctx, "u1", "p1", 2)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "u1", "p2", 3)
	require.NoError(t, err)

	count, err = svc.ItemCount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	require.NoError(t, svc.ClearCart(ctx, "u1"))
	count, err = svc.ItemCount(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestValidate(t *testing.T) {
	ctx := context.Background()

	t.Run("clean cart passes", func(t *testing.T) {
		svc, _, _ := newTestService()
		_, err := svc.AddItem(ctx, "u1", "p1", 1)
		require.NoError(t, err)

		report, err := svc.Validate(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, report.Valid)
		assert.Empty(t, report.Issues)
	})

	t.Run("reports vanished and out-of-stock lines", func(t *testing.T) {
		svc, _, catalog := newTestService()
		_, err := svc.AddItem(ctx, "u1", "p1", 1)
		require.NoError(t, err)
		_, err = svc.AddItem(ctx, "u1", "p2", 1)
		require.NoError(t, err)

		delete(catalog.products, "p1")
		catalog.products["p2"].OutOfStock = true

		report, err := svc.Validate(ctx, "u1")
		require.NoError(t, err)
		assert.False(t, report.Valid)
		assert.Len(t, report.Issues, 2)
	})

	t.Run("refreshes drifted prices but stays valid", func(t *testing.T) {
		svc, carts, catalog := newTestService()
		_, err := svc.AddItem(ctx, "u1", "p1", 2)
		require.NoError(t, err)

		catalog.products["p1"].Price = 30

		report, err := svc.Validate(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, report.Valid)
		require.Len(t, report.Issues, 1)
		assert.Equal(t, "price changed", report.Issues[0].Reason)
		assert.Equal(t, float64(25), report.Issues[0].OldPrice)
		assert.Equal(t, float64(30), report.Issues[0].NewPrice)

		// the refreshed price is persisted
		saved, err := carts.FindByUser(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, float64(30), saved.Items[0].Price)
		assert.Equal(t, float64(60), saved.TotalAmount)
	})
}
