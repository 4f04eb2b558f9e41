package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbtypes "github.com/angelmondragon/inventory-service/pkg/db/types"
	"github.com/angelmondragon/inventory-service/pkg/enums"
)

// DefaultReservationReason is recorded when the caller gives none.
const DefaultReservationReason = "order_processing"

// StockReservation holds units of an item for a bounded period.
type StockReservation struct {
	ID              uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	InventoryItemID uuid.UUID               `gorm:"column:inventory_item_id;type:uuid;not null;index"`
	ProductID       uuid.UUID               `gorm:"column:product_id;type:uuid;not null"`
	OrderID         *uuid.UUID              `gorm:"column:order_id;type:uuid;index"`
	UserID          *uuid.UUID              `gorm:"column:user_id;type:uuid"`
	Quantity        int                     `gorm:"column:quantity;not null"`
	Status          enums.ReservationStatus `gorm:"column:status;type:varchar(16);not null;default:active;index"`
	Reason          string                  `gorm:"column:reason;not null;default:order_processing"`
	ExpiresAt       time.Time               `gorm:"column:expires_at;not null;index"`
	FulfilledAt     *time.Time              `gorm:"column:fulfilled_at"`
	Metadata        dbtypes.JSON            `gorm:"column:metadata"`
	CreatedAt       time.Time               `gorm:"column:created_at"`
	UpdatedAt       time.Time               `gorm:"column:updated_at"`
}

func (StockReservation) TableName() string {
	return "stock_reservations"
}

func (r *StockReservation) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// IsExpiredAt reports whether an active reservation has passed its expiry.
func (r StockReservation) IsExpiredAt(now time.Time) bool {
	return r.Status == enums.ReservationStatusActive && r.ExpiresAt.Before(now)
}
