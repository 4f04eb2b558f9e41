package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/inventory-service/pkg/catalog"
	"github.com/angelmondragon/inventory-service/pkg/db/models"
	"github.com/angelmondragon/inventory-service/pkg/enums"
	pkgerrors "github.com/angelmondragon/inventory-service/pkg/errors"
)

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}

func TestCreateItemWritesInitialLedgerRow(t *testing.T) {
	env := newTestEnv(t)

	item := env.createItem(t, "SKU-1", 50)

	assert.Equal(t, 50, item.Quantity)
	assert.Equal(t, 0, item.ReservedQuantity)
	assert.Equal(t, 10, item.MinStockLevel)
	assert.Equal(t, 5, item.ReorderPoint)
	assert.Equal(t, "main", item.Warehouse)
	assert.True(t, item.IsActive)
	assert.True(t, item.TrackingEnabled)
	require.NotNil(t, item.LastRestockedAt)

	rows := env.ledger(t, item.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.TransactionTypeStockIn, rows[0].Type)
	assert.Equal(t, 0, rows[0].PreviousQuantity)
	assert.Equal(t, 50, rows[0].NewQuantity)
	assert.Equal(t, initialStockReason, rows[0].Reason)
	require.True(t, rows[0].Cost.Valid)
	assert.Equal(t, "125", rows[0].Cost.Decimal.String())

	cached, err := env.cache.Get(context.Background(), item.ProductID)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, 50, cached.AvailableQuantity)
	assert.Equal(t, []uuid.UUID{item.ProductID}, env.products.checked)
	env.requireConsistent(t, item.ID)
}

func TestCreateItemWithoutStockHasNoLedger(t *testing.T) {
	env := newTestEnv(t)

	item := env.createItem(t, "SKU-EMPTY", 0)

	assert.Nil(t, item.LastRestockedAt)
	assert.Empty(t, env.ledger(t, item.ID))
}

func TestCreateItemKeepsExplicitZeroPolicy(t *testing.T) {
	env := newTestEnv(t)
	zero := 0
	off := false

	item, err := env.svc.CreateItem(context.Background(), CreateItemInput{
		ProductID:       uuid.New(),
		SKU:             "SKU-ZERO",
		ProductName:     "Zero policy",
		MinStockLevel:   &zero,
		ReorderPoint:    &zero,
		TrackingEnabled: &off,
		Warehouse:       "east",
	})
	require.NoError(t, err)

	stored := env.loadItem(t, item.ID)
	assert.Equal(t, 0, stored.MinStockLevel)
	assert.Equal(t, 0, stored.ReorderPoint)
	assert.False(t, stored.TrackingEnabled)
	assert.Equal(t, "east", stored.Warehouse)
}

func TestCreateItemRejectsDuplicates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.createItem(t, "SKU-DUP", 5)

	_, err := env.svc.CreateItem(ctx, CreateItemInput{ProductID: item.ProductID, SKU: "SKU-OTHER", ProductName: "Other"})
	require.ErrorIs(t, err, ErrDuplicateProduct)

	_, err = env.svc.CreateItem(ctx, CreateItemInput{ProductID: uuid.New(), SKU: "SKU-DUP", ProductName: "Other"})
	require.ErrorIs(t, err, ErrDuplicateSKU)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestCreateItemProductCheck(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.products.err = catalog.ErrProductNotFound
	_, err := env.svc.CreateItem(ctx, CreateItemInput{ProductID: uuid.New(), SKU: "SKU-X", ProductName: "X"})
	require.ErrorIs(t, err, ErrUpstreamValidation)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	env.products.err = pkgerrors.New(pkgerrors.CodeDependency, "product service unavailable")
	_, err = env.svc.CreateItem(ctx, CreateItemInput{ProductID: uuid.New(), SKU: "SKU-X", ProductName: "X"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())

	var count int64
	require.NoError(t, env.db.Table("inventory_items").Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateItemValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := map[string]CreateItemInput{
		"missing product": {SKU: "A", ProductName: "A"},
		"missing sku":     {ProductID: uuid.New(), ProductName: "A"},
		"missing name":    {ProductID: uuid.New(), SKU: "A"},
		"negative qty":    {ProductID: uuid.New(), SKU: "A", ProductName: "A", Quantity: -1},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := env.svc.CreateItem(ctx, input)
			require.Error(t, err)
			assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
		})
	}
}

func TestGetItem(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.createItem(t, "SKU-GET", 10)
	_, err := env.svc.Reserve(ctx, ReserveInput{ProductID: item.ProductID, Quantity: 2})
	require.NoError(t, err)

	byProduct, err := env.svc.GetByProductID(ctx, item.ProductID)
	require.NoError(t, err)
	assert.Equal(t, item.ID, byProduct.ID)
	assert.Len(t, byProduct.Reservations, 1)

	bySKU, err := env.svc.GetBySKU(ctx, "SKU-GET")
	require.NoError(t, err)
	assert.Equal(t, item.ID, bySKU.ID)

	_, err = env.svc.GetByProductID(ctx, uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
	_, err = env.svc.GetBySKU(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateStockTransitions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.createItem(t, "SKU-STOCK", 50)

	res, err := env.svc.UpdateStock(ctx, item.ProductID, UpdateStockInput{Quantity: 10, Type: enums.StockUpdateStockIn, Reason: "restock"})
	require.NoError(t, err)
	assert.Equal(t, 60, res.Item.Quantity)
	assert.Equal(t, 10, res.Transaction.Quantity)
	assert.Equal(t, "restock", res.Transaction.Reason)

	res, err = env.svc.UpdateStock(ctx, item.ProductID, UpdateStockInput{Quantity: -5, Type: enums.StockUpdateStockOut})
	require.NoError(t, err)
	assert.Equal(t, 55, res.Item.Quantity)
	assert.Equal(t, "stock_out operation", res.Transaction.Reason)
	require.NotNil(t, res.Item.LastSoldAt)

	res, err = env.svc.UpdateStock(ctx, item.ProductID, UpdateStockInput{Quantity: 40, Type: enums.StockUpdateAdjustment, Reason: "count"})
	require.NoError(t, err)
	assert.Equal(t, 40, res.Item.Quantity)
	assert.Equal(t, 15, res.Transaction.Quantity)
	assert.Equal(t, 55, res.Transaction.PreviousQuantity)
	assert.Equal(t, 40, res.Transaction.NewQuantity)

	assert.Len(t, env.ledger(t, item.ID), 4)
	env.requireConsistent(t, item.ID)
}

func TestUpdateStockInsufficient(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.createItem(t, "SKU-D", 10)

	_, err := env.svc.UpdateStock(ctx, item.ProductID, UpdateStockInput{Quantity: 20, Type: enums.StockUpdateStockOut, Reason: "sale"})
	require.ErrorIs(t, err, ErrInsufficientStock)

	stored := env.loadItem(t, item.ID)
	assert.Equal(t, 10, stored.Quantity)
	assert.Len(t, env.ledger(t, item.ID), 1)
}

func TestUpdateStockCannotDropBelowReserved(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.createItem(t, "SKU-RES", 50)
	_, err := env.svc.Reserve(ctx, ReserveInput{ProductID: item.ProductID, Quantity: 30})
	require.NoError(t, err)

	_, err = env.svc.UpdateStock(ctx, item.ProductID, UpdateStockInput{Quantity: 25, Type: enums.StockUpdateStockOut, Reason: "sale"})
	require.ErrorIs(t, err, ErrInsufficientStock)

	_, err = env.svc.UpdateStock(ctx, item.ProductID, UpdateStockInput{Quantity: 20, Type: enums.StockUpdateAdjustment, Reason: "count"})
	require.ErrorIs(t, err, ErrInsufficientStock)

	_, err = env.svc.UpdateStock(ctx, item.ProductID, UpdateStockInput{Quantity: 30, Type: enums.StockUpdateAdjustment, Reason: "count"})
	require.NoError(t, err)
	env.requireConsistent(t, item.ID)
}

func TestUpdateStockValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.createItem(t, "SKU-V", 10)

	_, err := env.svc.UpdateStock(ctx, item.ProductID, UpdateStockInput{Quantity: 1, Type: "transfer"})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = env.svc.UpdateStock(ctx, item.ProductID, UpdateStockInput{Quantity: -1, Type: enums.StockUpdateAdjustment})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = env.svc.UpdateStock(ctx, uuid.New(), UpdateStockInput{Quantity: 1, Type: enums.StockUpdateStockIn})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateStockRejectsQuantityOverflow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.createItem(t, "SKU-BIG", 10)

	_, err := env.svc.UpdateStock(ctx, item.ProductID, UpdateStockInput{Quantity: models.MaxQuantity, Type: enums.StockUpdateStockIn, Reason: "restock"})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = env.svc.UpdateStock(ctx, item.ProductID, UpdateStockInput{Quantity: models.MaxQuantity + 1, Type: enums.StockUpdateAdjustment, Reason: "count"})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = env.svc.CreateItem(ctx, CreateItemInput{ProductID: uuid.New(), SKU: "SKU-HUGE", ProductName: "Huge", Quantity: models.MaxQuantity + 1})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	assert.Equal(t, 10, env.loadItem(t, item.ID).Quantity)
	require.Len(t, env.ledger(t, item.ID), 1)
}

func TestUpdateStockSignalsLowStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.createItem(t, "SKU-LOW", 10)

	_, err := env.svc.UpdateStock(ctx, item.ProductID, UpdateStockInput{Quantity: 6, Type: enums.StockUpdateStockOut, Reason: "sale"})
	require.NoError(t, err)

	require.Len(t, env.notifier.alerts, 1)
	alert := env.notifier.alerts[0]
	assert.Equal(t, item.ProductID, alert.ProductID)
	assert.Equal(t, 4, alert.AvailableQuantity)
	assert.Equal(t, 5, alert.ReorderPoint)
}

func TestUpdateStockSignalsLowStockForUntrackedItems(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.createItem(t, "SKU-LOW-OFF", 10)
	off := false
	_, err := env.svc.UpdateSettings(ctx, item.ProductID, UpdateSettingsInput{IsActive: &off, TrackingEnabled: &off})
	require.NoError(t, err)

	_, err = env.svc.UpdateStock(ctx, item.ProductID, UpdateStockInput{Quantity: 6, Type: enums.StockUpdateStockOut, Reason: "sale"})
	require.NoError(t, err)
	require.Len(t, env.notifier.alerts, 1)
	assert.Equal(t, 4, env.notifier.alerts[0].AvailableQuantity)
}

func TestUpdateStockSwallowsSideEffectFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.createItem(t, "SKU-FAIL", 10)
	env.notifier.err = errors.New("notification service down")
	env.cache.setErr = errors.New("redis down")

	res, err := env.svc.UpdateStock(ctx, item.ProductID, UpdateStockInput{Quantity: 8, Type: enums.StockUpdateStockOut, Reason: "sale"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Item.Quantity)
	assert.Len(t, env.notifier.alerts, 1)
}

func TestUpdateSettingsLeavesQuantities(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.createItem(t, "SKU-SET", 20)
	reorder := 8
	inactive := false
	supplier := "Acme"

	updated, err := env.svc.UpdateSettings(ctx, item.ProductID, UpdateSettingsInput{
		ReorderPoint: &reorder,
		IsActive:     &inactive,
		Supplier:     &supplier,
	})
	require.NoError(t, err)
	assert.Equal(t, 8, updated.ReorderPoint)
	assert.False(t, updated.IsActive)
	assert.Equal(t, 20, updated.Quantity)

	stored := env.loadItem(t, item.ID)
	assert.False(t, stored.IsActive)
	require.NotNil(t, stored.Supplier)
	assert.Equal(t, "Acme", *stored.Supplier)
	assert.Len(t, env.ledger(t, item.ID), 1)

	negative := -1
	_, err = env.svc.UpdateSettings(ctx, item.ProductID, UpdateSettingsInput{MinStockLevel: &negative})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}
