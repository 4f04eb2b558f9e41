package inventory

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/inventory-service/pkg/db"
	"github.com/angelmondragon/inventory-service/pkg/db/models"
	"github.com/angelmondragon/inventory-service/pkg/enums"
	"github.com/angelmondragon/inventory-service/pkg/logger"
	"github.com/angelmondragon/inventory-service/pkg/notifier"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:inventory_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&models.InventoryItem{},
		&models.InventoryTransaction{},
		&models.StockReservation{},
	))
	return conn
}

// testClock advances one millisecond per call so ledger rows have a strict order.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeCache struct {
	mu     sync.Mutex
	items  map[uuid.UUID]CachedItem
	getErr error
	setErr error
	sets   int
}

func newFakeCache() *fakeCache {
	return &fakeCache{items: map[uuid.UUID]CachedItem{}}
}

func (c *fakeCache) Get(_ context.Context, productID uuid.UUID) (*CachedItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	item, ok := c.items[productID]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (c *fakeCache) Set(_ context.Context, item CachedItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	if c.setErr != nil {
		return c.setErr
	}
	c.items[item.ProductID] = item
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	alerts []notifier.LowStockAlert
	err    error
}

func (n *fakeNotifier) NotifyLowStock(_ context.Context, alert notifier.LowStockAlert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert)
	return n.err
}

type fakeProducts struct {
	err     error
	checked []uuid.UUID
}

func (p *fakeProducts) ProductExists(_ context.Context, productID uuid.UUID) error {
	p.checked = append(p.checked, productID)
	return p.err
}

type testEnv struct {
	db       *gorm.DB
	svc      *service
	clock    *testClock
	cache    *fakeCache
	notifier *fakeNotifier
	products *fakeProducts
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	conn := newTestDB(t)
	env := &testEnv{
		db:       conn,
		clock:    newTestClock(),
		cache:    newFakeCache(),
		notifier: &fakeNotifier{},
		products: &fakeProducts{},
	}
	svc, err := NewService(ServiceParams{
		Logger:            logger.New(logger.Options{ServiceName: "inventory-test", Output: io.Discard}),
		DB:                db.FromConn(conn),
		Repo:              NewRepository(conn),
		Cache:             env.cache,
		Products:          env.products,
		Notifier:          env.notifier,
		ReservationTTL:    30 * time.Minute,
		LowStockThreshold: 10,
		SweepBatchSize:    100,
		Now:               env.clock.Now,
	})
	require.NoError(t, err)
	env.svc = svc.(*service)
	env.svc.async = func(fn func()) { fn() }
	return env
}

func (e *testEnv) createItem(t *testing.T, sku string, quantity int) *models.InventoryItem {
	t.Helper()
	cost := decimal.RequireFromString("2.50")
	item, err := e.svc.CreateItem(context.Background(), CreateItemInput{
		ProductID:   uuid.New(),
		SKU:         sku,
		ProductName: "Product " + sku,
		Quantity:    quantity,
		CostPrice:   &cost,
	})
	require.NoError(t, err)
	return item
}

func (e *testEnv) loadItem(t *testing.T, id uuid.UUID) models.InventoryItem {
	t.Helper()
	var item models.InventoryItem
	require.NoError(t, e.db.First(&item, "id = ?", id).Error)
	return item
}

func (e *testEnv) ledger(t *testing.T, itemID uuid.UUID) []models.InventoryTransaction {
	t.Helper()
	var rows []models.InventoryTransaction
	require.NoError(t, e.db.Where("inventory_item_id = ?", itemID).Order("created_at ASC").Find(&rows).Error)
	return rows
}

// requireConsistent checks the stock invariants of an item: reserved matches
// active reservations, reserved never exceeds on-hand, and replaying the
// ledger reproduces on-hand.
func (e *testEnv) requireConsistent(t *testing.T, itemID uuid.UUID) {
	t.Helper()
	item := e.loadItem(t, itemID)

	var active []models.StockReservation
	require.NoError(t, e.db.Where("inventory_item_id = ? AND status = ?", itemID, enums.ReservationStatusActive).Find(&active).Error)
	sum := 0
	for _, r := range active {
		sum += r.Quantity
	}
	require.Equal(t, sum, item.ReservedQuantity, "reserved quantity must equal active reservations")
	require.LessOrEqual(t, item.ReservedQuantity, item.Quantity, "reserved must not exceed on-hand")

	replayed := 0
	for _, row := range e.ledger(t, itemID) {
		require.Equal(t, row.PreviousQuantity, replayed, "ledger row %s starts from the replayed quantity", row.ID)
		replayed += row.SignedDelta()
		require.Equal(t, row.NewQuantity, replayed, "ledger row %s ends at its new quantity", row.ID)
	}
	require.Equal(t, item.Quantity, replayed, "ledger replay must reproduce on-hand")
}
