package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbtypes "github.com/angelmondragon/inventory-service/pkg/db/types"
	"github.com/angelmondragon/inventory-service/pkg/enums"
)

// InventoryTransaction records an immutable quantity-affecting event for an item.
type InventoryTransaction struct {
	ID               uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	InventoryItemID  uuid.UUID             `gorm:"column:inventory_item_id;type:uuid;not null;index"`
	ProductID        uuid.UUID             `gorm:"column:product_id;type:uuid;not null;index"`
	Type             enums.TransactionType `gorm:"column:type;type:varchar(32);not null;index"`
	Quantity         int                   `gorm:"column:quantity;not null"`
	PreviousQuantity int                   `gorm:"column:previous_quantity;not null"`
	NewQuantity      int                   `gorm:"column:new_quantity;not null"`
	Reason           string                `gorm:"column:reason;not null"`
	Reference        *string               `gorm:"column:reference"`
	ReferenceID      *uuid.UUID            `gorm:"column:reference_id;type:uuid;index"`
	PerformedBy      *uuid.UUID            `gorm:"column:performed_by;type:uuid"`
	Cost             decimal.NullDecimal   `gorm:"column:cost;type:numeric(10,2)"`
	Location         *string               `gorm:"column:location"`
	Warehouse        string                `gorm:"column:warehouse;not null;default:main"`
	BatchNumber      *string               `gorm:"column:batch_number"`
	ExpiryDate       *time.Time            `gorm:"column:expiry_date"`
	Notes            *string               `gorm:"column:notes"`
	Metadata         dbtypes.JSON          `gorm:"column:metadata"`
	CreatedAt        time.Time             `gorm:"column:created_at;index"`
}

func (InventoryTransaction) TableName() string {
	return "inventory_transactions"
}

func (t *InventoryTransaction) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// SignedDelta returns the change the row applied to on-hand quantity.
func (t InventoryTransaction) SignedDelta() int {
	switch t.Type {
	case enums.TransactionTypeStockIn, enums.TransactionTypeReturn:
		return t.Quantity
	case enums.TransactionTypeStockOut, enums.TransactionTypeDamaged, enums.TransactionTypeExpired:
		return -t.Quantity
	case enums.TransactionTypeAdjustment, enums.TransactionTypeTransfer:
		return t.NewQuantity - t.PreviousQuantity
	default:
		return 0
	}
}
