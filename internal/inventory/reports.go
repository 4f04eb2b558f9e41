package inventory

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/inventory-service/pkg/db/models"
	"github.com/angelmondragon/inventory-service/pkg/pagination"
)

const productNotInInventory = "Product not found in inventory"

func (s *service) CheckAvailability(ctx context.Context, productID uuid.UUID, quantity int) (*Availability, error) {
	if productID == uuid.Nil {
		return nil, validationError("product id is required")
	}
	if quantity < 1 {
		return nil, validationError("quantity must be at least 1")
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, productID)
		switch {
		case err != nil:
			s.metrics.CacheError()
			s.logg.Error(s.logg.WithProductID(ctx, productID.String()), "inventory cache read failed", err)
		case cached != nil:
			s.metrics.CacheHit()
			return availability(cached.Quantity-cached.ReservedQuantity, quantity), nil
		default:
			s.metrics.CacheMiss()
		}
	}

	item, err := s.repo.FindItemByProductID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &Availability{
				Available:         false,
				AvailableQuantity: 0,
				RequestedQuantity: quantity,
				Error:             productNotInInventory,
			}, nil
		}
		return nil, err
	}
	// Only committed mutations write the cache, so an unlocked read never
	// overwrites a newer snapshot.
	return availability(item.AvailableQuantity(), quantity), nil
}

func availability(available, requested int) *Availability {
	return &Availability{
		Available:         available >= requested,
		AvailableQuantity: available,
		RequestedQuantity: requested,
	}
}

func (s *service) GetLowStockItems(ctx context.Context, threshold *int) ([]models.InventoryItem, error) {
	limit := s.lowStockThreshold
	if threshold != nil {
		if *threshold < 0 {
			return nil, validationError("threshold must be non-negative")
		}
		limit = *threshold
	}
	return s.repo.ListLowStock(ctx, limit, "")
}

func (s *service) GetHistory(ctx context.Context, productID uuid.UUID, filter HistoryFilter) (*History, error) {
	if productID == uuid.Nil {
		return nil, validationError("product id is required")
	}
	if filter.Type != nil && !filter.Type.IsValid() {
		return nil, validationError("invalid transaction type")
	}

	params := pagination.Params{Page: filter.Page, Limit: filter.Limit}.Normalize()
	rows, total, err := s.repo.ListTransactions(ctx, productID, filter.Type, params)
	if err != nil {
		return nil, err
	}

	out := make([]TransactionDTO, 0, len(rows))
	for i := range rows {
		out = append(out, NewTransactionDTO(&rows[i]))
	}
	return &History{
		Transactions: out,
		Pagination:   pagination.NewMeta(params, total),
	}, nil
}

func (s *service) GetStatistics(ctx context.Context, warehouse string) (*Statistics, error) {
	warehouse = strings.TrimSpace(warehouse)

	totals, err := s.repo.Statistics(ctx, warehouse)
	if err != nil {
		return nil, err
	}
	low, err := s.repo.ListLowStock(ctx, s.lowStockThreshold, warehouse)
	if err != nil {
		return nil, err
	}

	stats := &Statistics{
		TotalProducts:     totals.TotalProducts,
		TotalQuantity:     totals.TotalQuantity,
		TotalReserved:     totals.TotalReserved,
		AvailableQuantity: totals.TotalQuantity - totals.TotalReserved,
		LowStockItems:     len(low),
	}
	if warehouse != "" {
		stats.Warehouse = &warehouse
	}
	return stats, nil
}
