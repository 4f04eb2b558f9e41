package models

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbtypes "github.com/angelmondragon/inventory-service/pkg/db/types"
)

// MaxQuantity is the largest count the INTEGER quantity columns hold.
const MaxQuantity = math.MaxInt32

// InventoryItem tracks on-hand and reserved counts per product.
type InventoryItem struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	ProductID        uuid.UUID           `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_inventory_items_product_id"`
	SKU              string              `gorm:"column:sku;not null;uniqueIndex:idx_inventory_items_sku"`
	ProductName      string              `gorm:"column:product_name;not null"`
	Quantity         int                 `gorm:"column:quantity;not null"`
	ReservedQuantity int                 `gorm:"column:reserved_quantity;not null"`
	MinStockLevel    int                 `gorm:"column:min_stock_level;not null"`
	MaxStockLevel    *int                `gorm:"column:max_stock_level"`
	ReorderPoint     int                 `gorm:"column:reorder_point;not null"`
	Location         *string             `gorm:"column:location"`
	Warehouse        string              `gorm:"column:warehouse;not null;index"`
	Supplier         *string             `gorm:"column:supplier"`
	CostPrice        decimal.NullDecimal `gorm:"column:cost_price;type:numeric(10,2)"`
	IsActive         bool                `gorm:"column:is_active;not null;index"`
	TrackingEnabled  bool                `gorm:"column:tracking_enabled;not null"`
	LastRestockedAt  *time.Time          `gorm:"column:last_restocked_at"`
	LastSoldAt       *time.Time          `gorm:"column:last_sold_at"`
	Metadata         dbtypes.JSON        `gorm:"column:metadata"`
	CreatedAt        time.Time           `gorm:"column:created_at"`
	UpdatedAt        time.Time           `gorm:"column:updated_at"`

	Reservations []StockReservation `gorm:"foreignKey:InventoryItemID"`
}

func (InventoryItem) TableName() string {
	return "inventory_items"
}

func (i *InventoryItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// AvailableQuantity is on-hand minus reserved; it is never stored.
func (i InventoryItem) AvailableQuantity() int {
	return i.Quantity - i.ReservedQuantity
}

// NeedsReorder reports whether available stock has reached the reorder point.
func (i InventoryItem) NeedsReorder() bool {
	return i.AvailableQuantity() <= i.ReorderPoint
}
