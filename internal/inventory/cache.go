package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/inventory-service/pkg/db/models"
)

// CachedItem is the snapshot mirrored into the cache after each commit.
type CachedItem struct {
	ID                uuid.UUID `json:"id"`
	ProductID         uuid.UUID `json:"productId"`
	SKU               string    `json:"sku"`
	Quantity          int       `json:"quantity"`
	ReservedQuantity  int       `json:"reservedQuantity"`
	AvailableQuantity int       `json:"availableQuantity"`
	MinStockLevel     int       `json:"minStockLevel"`
	ReorderPoint      int       `json:"reorderPoint"`
	Warehouse         string    `json:"warehouse"`
	IsActive          bool      `json:"isActive"`
	LastUpdated       time.Time `json:"lastUpdated"`
}

// NewCachedItem snapshots the quantities of an item.
func NewCachedItem(item models.InventoryItem, at time.Time) CachedItem {
	return CachedItem{
		ID:                item.ID,
		ProductID:         item.ProductID,
		SKU:               item.SKU,
		Quantity:          item.Quantity,
		ReservedQuantity:  item.ReservedQuantity,
		AvailableQuantity: item.AvailableQuantity(),
		MinStockLevel:     item.MinStockLevel,
		ReorderPoint:      item.ReorderPoint,
		Warehouse:         item.Warehouse,
		IsActive:          item.IsActive,
		LastUpdated:       at,
	}
}

// Cache mirrors per-product quantities. Get returns nil, nil on a miss.
type Cache interface {
	Get(ctx context.Context, productID uuid.UUID) (*CachedItem, error)
	Set(ctx context.Context, item CachedItem) error
}

type cacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	InventoryKey(productID string) string
}

// RedisCache stores snapshots as JSON under the inventory key namespace.
type RedisCache struct {
	store cacheStore
	ttl   time.Duration
}

func NewRedisCache(store cacheStore, ttl time.Duration) (*RedisCache, error) {
	if store == nil {
		return nil, fmt.Errorf("redis store required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisCache{store: store, ttl: ttl}, nil
}

func (c *RedisCache) Get(ctx context.Context, productID uuid.UUID) (*CachedItem, error) {
	raw, err := c.store.Get(ctx, c.store.InventoryKey(productID.String()))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var item CachedItem
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		return nil, fmt.Errorf("decode cached inventory: %w", err)
	}
	return &item, nil
}

func (c *RedisCache) Set(ctx context.Context, item CachedItem) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, c.store.InventoryKey(item.ProductID.String()), payload, c.ttl)
}
