package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/inventory-service/pkg/catalog"
	"github.com/angelmondragon/inventory-service/pkg/db"
	"github.com/angelmondragon/inventory-service/pkg/db/models"
	"github.com/angelmondragon/inventory-service/pkg/enums"
	pkgerrors "github.com/angelmondragon/inventory-service/pkg/errors"
	"github.com/angelmondragon/inventory-service/pkg/logger"
	"github.com/angelmondragon/inventory-service/pkg/metrics"
	"github.com/angelmondragon/inventory-service/pkg/notifier"
)

const (
	defaultWarehouse     = "main"
	defaultMinStockLevel = 10
	defaultReorderPoint  = 5
	maxNotesLength       = 500

	initialStockReason = "Initial stock"
	initialStockNotes  = "Initial inventory setup"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ProductChecker confirms a product exists in the catalog.
type ProductChecker interface {
	ProductExists(ctx context.Context, productID uuid.UUID) error
}

// Service exposes inventory operations.
type Service interface {
	CreateItem(ctx context.Context, input CreateItemInput) (*models.InventoryItem, error)
	GetByProductID(ctx context.Context, productID uuid.UUID) (*models.InventoryItem, error)
	GetBySKU(ctx context.Context, sku string) (*models.InventoryItem, error)
	UpdateStock(ctx context.Context, productID uuid.UUID, input UpdateStockInput) (*StockUpdate, error)
	UpdateSettings(ctx context.Context, productID uuid.UUID, input UpdateSettingsInput) (*models.InventoryItem, error)

	Reserve(ctx context.Context, input ReserveInput) (*models.StockReservation, error)
	Release(ctx context.Context, reservationID uuid.UUID, fulfill bool) (*models.StockReservation, error)
	ExpireReservations(ctx context.Context) (int, error)

	CheckAvailability(ctx context.Context, productID uuid.UUID, quantity int) (*Availability, error)
	GetLowStockItems(ctx context.Context, threshold *int) ([]models.InventoryItem, error)
	GetHistory(ctx context.Context, productID uuid.UUID, filter HistoryFilter) (*History, error)
	GetStatistics(ctx context.Context, warehouse string) (*Statistics, error)
	SendLowStockAlerts(ctx context.Context, items []models.InventoryItem) (int, error)
}

// StockUpdate is the result of UpdateStock.
type StockUpdate struct {
	Item        *models.InventoryItem
	Transaction *models.InventoryTransaction
}

// ServiceParams wires the inventory service. Cache, Products, Notifier and
// Metrics are optional.
type ServiceParams struct {
	Logger            *logger.Logger
	DB                txRunner
	Repo              Repository
	Cache             Cache
	Products          ProductChecker
	Notifier          notifier.Notifier
	Metrics           *metrics.InventoryMetrics
	ReservationTTL    time.Duration
	LowStockThreshold int
	SweepBatchSize    int
	Now               func() time.Time
}

type service struct {
	logg              *logger.Logger
	tx                txRunner
	repo              Repository
	cache             Cache
	products          ProductChecker
	notifier          notifier.Notifier
	metrics           *metrics.InventoryMetrics
	reservationTTL    time.Duration
	lowStockThreshold int
	sweepBatchSize    int
	now               func() time.Time
	async             func(func())
}

// NewService builds the inventory service.
func NewService(params ServiceParams) (Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if params.ReservationTTL <= 0 {
		return nil, fmt.Errorf("reservation ttl must be positive")
	}
	if params.LowStockThreshold < 0 {
		return nil, fmt.Errorf("low stock threshold must be non-negative")
	}
	if params.SweepBatchSize <= 0 {
		params.SweepBatchSize = 500
	}
	if params.Notifier == nil {
		params.Notifier = notifier.Noop{}
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		logg:              params.Logger,
		tx:                params.DB,
		repo:              params.Repo,
		cache:             params.Cache,
		products:          params.Products,
		notifier:          params.Notifier,
		metrics:           params.Metrics,
		reservationTTL:    params.ReservationTTL,
		lowStockThreshold: params.LowStockThreshold,
		sweepBatchSize:    params.SweepBatchSize,
		now:               func() time.Time { return now().UTC() },
		async:             func(fn func()) { go fn() },
	}, nil
}

func (s *service) CreateItem(ctx context.Context, input CreateItemInput) (*models.InventoryItem, error) {
	item, err := newItemFromInput(input)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithProductID(ctx, item.ProductID.String())

	if s.products != nil {
		if err := s.products.ProductExists(ctx, item.ProductID); err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				return nil, withDetails(ErrUpstreamValidation, map[string]any{"productId": item.ProductID.String()})
			}
			return nil, err
		}
	}

	var ledger *models.InventoryTransaction
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.FindDuplicate(ctx, item.ProductID, item.SKU)
		if err == nil {
			if existing.ProductID == item.ProductID {
				return ErrDuplicateProduct
			}
			return ErrDuplicateSKU
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		now := s.now()
		item.CreatedAt = now
		item.UpdatedAt = now
		if item.Quantity > 0 {
			item.LastRestockedAt = &now
		}
		if err := repo.CreateItem(ctx, item); err != nil {
			return mapItemUniqueViolation(err)
		}

		if item.Quantity > 0 {
			notes := initialStockNotes
			ledger = &models.InventoryTransaction{
				InventoryItemID:  item.ID,
				ProductID:        item.ProductID,
				Type:             enums.TransactionTypeStockIn,
				Quantity:         item.Quantity,
				PreviousQuantity: 0,
				NewQuantity:      item.Quantity,
				Reason:           initialStockReason,
				Location:         item.Location,
				Warehouse:        item.Warehouse,
				Notes:            &notes,
				CreatedAt:        now,
			}
			if item.CostPrice.Valid {
				ledger.Cost = decimal.NullDecimal{
					Decimal: item.CostPrice.Decimal.Mul(decimal.NewFromInt(int64(item.Quantity))),
					Valid:   true,
				}
			}
			if err := repo.CreateTransaction(ctx, ledger); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if ledger != nil {
		s.metrics.IncMutation(ledger.Type.String())
	}
	s.refreshCache(ctx, *item)
	s.logg.Info(ctx, "inventory item created")
	return item, nil
}

func newItemFromInput(input CreateItemInput) (*models.InventoryItem, error) {
	if input.ProductID == uuid.Nil {
		return nil, validationError("product id is required")
	}
	sku := strings.TrimSpace(input.SKU)
	if sku == "" {
		return nil, validationError("sku is required")
	}
	name := strings.TrimSpace(input.ProductName)
	if name == "" {
		return nil, validationError("product name is required")
	}
	if input.Quantity < 0 {
		return nil, validationError("quantity must be non-negative")
	}
	if input.Quantity > models.MaxQuantity {
		return nil, validationError(fmt.Sprintf("quantity must be at most %d", models.MaxQuantity))
	}

	item := &models.InventoryItem{
		ProductID:       input.ProductID,
		SKU:             sku,
		ProductName:     name,
		Quantity:        input.Quantity,
		MinStockLevel:   defaultMinStockLevel,
		MaxStockLevel:   input.MaxStockLevel,
		ReorderPoint:    defaultReorderPoint,
		Location:        input.Location,
		Warehouse:       defaultWarehouse,
		Supplier:        input.Supplier,
		CostPrice:       toNullDecimal(input.CostPrice),
		IsActive:        true,
		TrackingEnabled: true,
		Metadata:        input.Metadata,
	}
	if input.MinStockLevel != nil {
		item.MinStockLevel = *input.MinStockLevel
	}
	if input.ReorderPoint != nil {
		item.ReorderPoint = *input.ReorderPoint
	}
	if input.TrackingEnabled != nil {
		item.TrackingEnabled = *input.TrackingEnabled
	}
	if w := strings.TrimSpace(input.Warehouse); w != "" {
		item.Warehouse = w
	}
	if err := validatePolicy(item); err != nil {
		return nil, err
	}
	return item, nil
}

func validatePolicy(item *models.InventoryItem) error {
	if item.MinStockLevel < 0 {
		return validationError("min stock level must be non-negative")
	}
	if item.ReorderPoint < 0 {
		return validationError("reorder point must be non-negative")
	}
	if item.MaxStockLevel != nil && *item.MaxStockLevel < 0 {
		return validationError("max stock level must be non-negative")
	}
	if item.CostPrice.Valid && item.CostPrice.Decimal.IsNegative() {
		return validationError("cost price must be non-negative")
	}
	return nil
}

func mapItemUniqueViolation(err error) error {
	if !db.IsUniqueViolation(err, "") {
		return err
	}
	if strings.Contains(err.Error(), "sku") {
		return ErrDuplicateSKU
	}
	return ErrDuplicateProduct
}

func (s *service) GetByProductID(ctx context.Context, productID uuid.UUID) (*models.InventoryItem, error) {
	if productID == uuid.Nil {
		return nil, validationError("product id is required")
	}
	item, err := s.repo.FindItemByProductID(ctx, productID)
	if err != nil {
		return nil, translateNotFound(err, ErrNotFound)
	}
	return item, nil
}

func (s *service) GetBySKU(ctx context.Context, sku string) (*models.InventoryItem, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, validationError("sku is required")
	}
	item, err := s.repo.FindItemBySKU(ctx, sku)
	if err != nil {
		return nil, translateNotFound(err, ErrNotFound)
	}
	return item, nil
}

func (s *service) UpdateStock(ctx context.Context, productID uuid.UUID, input UpdateStockInput) (*StockUpdate, error) {
	if productID == uuid.Nil {
		return nil, validationError("product id is required")
	}
	if !input.Type.IsValid() {
		return nil, validationError(fmt.Sprintf("invalid stock update type %q", input.Type))
	}
	if input.Notes != nil && len(*input.Notes) > maxNotesLength {
		return nil, validationError("notes must be at most 500 characters")
	}
	if input.Cost != nil && input.Cost.IsNegative() {
		return nil, validationError("cost must be non-negative")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		reason = fmt.Sprintf("%s operation", input.Type)
	}
	ctx = s.logg.WithProductID(ctx, productID.String())

	var result StockUpdate
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		item, err := repo.LockItemByProductID(ctx, productID)
		if err != nil {
			return translateNotFound(err, ErrNotFound)
		}

		now := s.now()
		previous := item.Quantity
		next, moved, err := applyStockUpdate(item, input.Type, input.Quantity)
		if err != nil {
			return err
		}

		item.Quantity = next
		switch input.Type {
		case enums.StockUpdateStockIn:
			item.LastRestockedAt = &now
		case enums.StockUpdateStockOut:
			item.LastSoldAt = &now
		}
		item.UpdatedAt = now
		if err := repo.SaveItem(ctx, item); err != nil {
			return err
		}

		ledger := &models.InventoryTransaction{
			InventoryItemID:  item.ID,
			ProductID:        item.ProductID,
			Type:             input.Type.TransactionType(),
			Quantity:         moved,
			PreviousQuantity: previous,
			NewQuantity:      next,
			Reason:           reason,
			Reference:        input.Reference,
			ReferenceID:      input.ReferenceID,
			PerformedBy:      input.PerformedBy,
			Cost:             toNullDecimal(input.Cost),
			Location:         item.Location,
			Warehouse:        item.Warehouse,
			BatchNumber:      input.BatchNumber,
			ExpiryDate:       input.ExpiryDate,
			Notes:            input.Notes,
			Metadata:         input.Metadata,
			CreatedAt:        now,
		}
		if input.Location != nil {
			ledger.Location = input.Location
		}
		if input.Warehouse != nil && strings.TrimSpace(*input.Warehouse) != "" {
			ledger.Warehouse = strings.TrimSpace(*input.Warehouse)
		}
		if err := repo.CreateTransaction(ctx, ledger); err != nil {
			return err
		}

		result = StockUpdate{Item: item, Transaction: ledger}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncMutation(result.Transaction.Type.String())
	s.refreshCache(ctx, *result.Item)
	if result.Item.NeedsReorder() {
		s.signalLowStock(ctx, *result.Item)
	}
	return &result, nil
}

// applyStockUpdate returns the new on-hand quantity and the units moved.
// On-hand never drops below zero or below the reserved quantity.
func applyStockUpdate(item *models.InventoryItem, kind enums.StockUpdateType, quantity int) (int, int, error) {
	abs := quantity
	if abs < 0 {
		abs = -abs
	}
	if abs > models.MaxQuantity {
		return 0, 0, validationError(fmt.Sprintf("quantity must be at most %d", models.MaxQuantity))
	}

	var next int
	switch kind {
	case enums.StockUpdateStockIn:
		next = item.Quantity + abs
	case enums.StockUpdateStockOut:
		next = item.Quantity - abs
	case enums.StockUpdateAdjustment:
		if quantity < 0 {
			return 0, 0, validationError("adjustment quantity must be non-negative")
		}
		next = quantity
	default:
		return 0, 0, validationError(fmt.Sprintf("invalid stock update type %q", kind))
	}

	if next > models.MaxQuantity {
		return 0, 0, withDetails(validationError("resulting quantity is out of range"), map[string]any{
			"quantity":  item.Quantity,
			"requested": quantity,
			"max":       models.MaxQuantity,
		})
	}
	if next < 0 || next < item.ReservedQuantity {
		return 0, 0, withDetails(ErrInsufficientStock, map[string]any{
			"quantity":         item.Quantity,
			"reservedQuantity": item.ReservedQuantity,
			"requested":        quantity,
		})
	}

	moved := next - item.Quantity
	if moved < 0 {
		moved = -moved
	}
	return next, moved, nil
}

func (s *service) UpdateSettings(ctx context.Context, productID uuid.UUID, input UpdateSettingsInput) (*models.InventoryItem, error) {
	if productID == uuid.Nil {
		return nil, validationError("product id is required")
	}
	ctx = s.logg.WithProductID(ctx, productID.String())

	var updated *models.InventoryItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		item, err := repo.LockItemByProductID(ctx, productID)
		if err != nil {
			return translateNotFound(err, ErrNotFound)
		}
		if err := applySettings(item, input); err != nil {
			return err
		}
		item.UpdatedAt = s.now()
		if err := repo.SaveItem(ctx, item); err != nil {
			return err
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.refreshCache(ctx, *updated)
	return updated, nil
}

func applySettings(item *models.InventoryItem, input UpdateSettingsInput) error {
	if input.ProductName != nil {
		name := strings.TrimSpace(*input.ProductName)
		if name == "" {
			return validationError("product name cannot be empty")
		}
		item.ProductName = name
	}
	if input.MinStockLevel != nil {
		item.MinStockLevel = *input.MinStockLevel
	}
	if input.MaxStockLevel != nil {
		item.MaxStockLevel = input.MaxStockLevel
	}
	if input.ReorderPoint != nil {
		item.ReorderPoint = *input.ReorderPoint
	}
	if input.Location != nil {
		item.Location = input.Location
	}
	if input.Warehouse != nil {
		w := strings.TrimSpace(*input.Warehouse)
		if w == "" {
			return validationError("warehouse cannot be empty")
		}
		item.Warehouse = w
	}
	if input.Supplier != nil {
		item.Supplier = input.Supplier
	}
	if input.CostPrice != nil {
		item.CostPrice = toNullDecimal(input.CostPrice)
	}
	if input.IsActive != nil {
		item.IsActive = *input.IsActive
	}
	if input.TrackingEnabled != nil {
		item.TrackingEnabled = *input.TrackingEnabled
	}
	if !input.Metadata.IsEmpty() {
		item.Metadata = input.Metadata
	}
	return validatePolicy(item)
}

func translateNotFound(err error, sentinel *pkgerrors.Error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}
