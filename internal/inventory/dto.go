package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/inventory-service/pkg/db/models"
	dbtypes "github.com/angelmondragon/inventory-service/pkg/db/types"
	"github.com/angelmondragon/inventory-service/pkg/enums"
	"github.com/angelmondragon/inventory-service/pkg/pagination"
)

// CreateItemInput describes a new inventory item.
type CreateItemInput struct {
	ProductID       uuid.UUID
	SKU             string
	ProductName     string
	Quantity        int
	MinStockLevel   *int
	MaxStockLevel   *int
	ReorderPoint    *int
	Location        *string
	Warehouse       string
	Supplier        *string
	CostPrice       *decimal.Decimal
	TrackingEnabled *bool
	Metadata        dbtypes.JSON
}

// UpdateStockInput describes a manual stock mutation.
type UpdateStockInput struct {
	Quantity    int
	Type        enums.StockUpdateType
	Reason      string
	Reference   *string
	ReferenceID *uuid.UUID
	PerformedBy *uuid.UUID
	Cost        *decimal.Decimal
	Location    *string
	Warehouse   *string
	BatchNumber *string
	ExpiryDate  *time.Time
	Notes       *string
	Metadata    dbtypes.JSON
}

// UpdateSettingsInput patches policy fields. Nil fields are left untouched.
type UpdateSettingsInput struct {
	ProductName     *string
	MinStockLevel   *int
	MaxStockLevel   *int
	ReorderPoint    *int
	Location        *string
	Warehouse       *string
	Supplier        *string
	CostPrice       *decimal.Decimal
	IsActive        *bool
	TrackingEnabled *bool
	Metadata        dbtypes.JSON
}

// ReserveInput describes a reservation request.
type ReserveInput struct {
	ProductID uuid.UUID
	Quantity  int
	OrderID   *uuid.UUID
	UserID    *uuid.UUID
	Reason    string
	ExpiresAt *time.Time
	Metadata  dbtypes.JSON
}

// HistoryFilter selects a page of ledger rows.
type HistoryFilter struct {
	Page  int
	Limit int
	Type  *enums.TransactionType
}

// Availability is the answer to an availability pre-check.
type Availability struct {
	Available         bool   `json:"available"`
	AvailableQuantity int    `json:"availableQuantity"`
	RequestedQuantity int    `json:"requestedQuantity"`
	Error             string `json:"error,omitempty"`
}

// Statistics aggregates stock across active items.
type Statistics struct {
	TotalProducts     int64   `json:"totalProducts"`
	TotalQuantity     int64   `json:"totalQuantity"`
	TotalReserved     int64   `json:"totalReserved"`
	AvailableQuantity int64   `json:"availableQuantity"`
	LowStockItems     int     `json:"lowStockItems"`
	Warehouse         *string `json:"warehouse"`
}

// History is one page of ledger rows.
type History struct {
	Transactions []TransactionDTO `json:"transactions"`
	Pagination   pagination.Meta  `json:"pagination"`
}

type ItemDTO struct {
	ID                uuid.UUID        `json:"id"`
	ProductID         uuid.UUID        `json:"productId"`
	SKU               string           `json:"sku"`
	ProductName       string           `json:"productName"`
	Quantity          int              `json:"quantity"`
	ReservedQuantity  int              `json:"reservedQuantity"`
	AvailableQuantity int              `json:"availableQuantity"`
	MinStockLevel     int              `json:"minStockLevel"`
	MaxStockLevel     *int             `json:"maxStockLevel"`
	ReorderPoint      int              `json:"reorderPoint"`
	Location          *string          `json:"location"`
	Warehouse         string           `json:"warehouse"`
	Supplier          *string          `json:"supplier"`
	CostPrice         *decimal.Decimal `json:"costPrice"`
	IsActive          bool             `json:"isActive"`
	TrackingEnabled   bool             `json:"trackingEnabled"`
	LastRestockedAt   *time.Time       `json:"lastRestockedAt"`
	LastSoldAt        *time.Time       `json:"lastSoldAt"`
	Metadata          dbtypes.JSON     `json:"metadata"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
	Reservations      []ReservationDTO `json:"reservations,omitempty"`
}

type TransactionDTO struct {
	ID               uuid.UUID             `json:"id"`
	InventoryItemID  uuid.UUID             `json:"inventoryItemId"`
	ProductID        uuid.UUID             `json:"productId"`
	Type             enums.TransactionType `json:"type"`
	Quantity         int                   `json:"quantity"`
	PreviousQuantity int                   `json:"previousQuantity"`
	NewQuantity      int                   `json:"newQuantity"`
	Reason           string                `json:"reason"`
	Reference        *string               `json:"reference"`
	ReferenceID      *uuid.UUID            `json:"referenceId"`
	PerformedBy      *uuid.UUID            `json:"performedBy"`
	Cost             *decimal.Decimal      `json:"cost"`
	Location         *string               `json:"location"`
	Warehouse        string                `json:"warehouse"`
	BatchNumber      *string               `json:"batchNumber"`
	ExpiryDate       *time.Time            `json:"expiryDate"`
	Notes            *string               `json:"notes"`
	Metadata         dbtypes.JSON          `json:"metadata"`
	CreatedAt        time.Time             `json:"createdAt"`
}

type ReservationDTO struct {
	ID              uuid.UUID               `json:"id"`
	InventoryItemID uuid.UUID               `json:"inventoryItemId"`
	ProductID       uuid.UUID               `json:"productId"`
	OrderID         *uuid.UUID              `json:"orderId"`
	UserID          *uuid.UUID              `json:"userId"`
	Quantity        int                     `json:"quantity"`
	Status          enums.ReservationStatus `json:"status"`
	Reason          string                  `json:"reason"`
	ExpiresAt       time.Time               `json:"expiresAt"`
	FulfilledAt     *time.Time              `json:"fulfilledAt"`
	Metadata        dbtypes.JSON            `json:"metadata"`
	CreatedAt       time.Time               `json:"createdAt"`
	UpdatedAt       time.Time               `json:"updatedAt"`
}

func nullDecimalPtr(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

func toNullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func NewItemDTO(item *models.InventoryItem) *ItemDTO {
	if item == nil {
		return nil
	}
	dto := &ItemDTO{
		ID:                item.ID,
		ProductID:         item.ProductID,
		SKU:               item.SKU,
		ProductName:       item.ProductName,
		Quantity:          item.Quantity,
		ReservedQuantity:  item.ReservedQuantity,
		AvailableQuantity: item.AvailableQuantity(),
		MinStockLevel:     item.MinStockLevel,
		MaxStockLevel:     item.MaxStockLevel,
		ReorderPoint:      item.ReorderPoint,
		Location:          item.Location,
		Warehouse:         item.Warehouse,
		Supplier:          item.Supplier,
		CostPrice:         nullDecimalPtr(item.CostPrice),
		IsActive:          item.IsActive,
		TrackingEnabled:   item.TrackingEnabled,
		LastRestockedAt:   item.LastRestockedAt,
		LastSoldAt:        item.LastSoldAt,
		Metadata:          item.Metadata,
		CreatedAt:         item.CreatedAt,
		UpdatedAt:         item.UpdatedAt,
	}
	for i := range item.Reservations {
		dto.Reservations = append(dto.Reservations, *NewReservationDTO(&item.Reservations[i]))
	}
	return dto
}

func NewItemDTOs(items []models.InventoryItem) []ItemDTO {
	out := make([]ItemDTO, 0, len(items))
	for i := range items {
		out = append(out, *NewItemDTO(&items[i]))
	}
	return out
}

func NewTransactionDTO(tx *models.InventoryTransaction) TransactionDTO {
	return TransactionDTO{
		ID:               tx.ID,
		InventoryItemID:  tx.InventoryItemID,
		ProductID:        tx.ProductID,
		Type:             tx.Type,
		Quantity:         tx.Quantity,
		PreviousQuantity: tx.PreviousQuantity,
		NewQuantity:      tx.NewQuantity,
		Reason:           tx.Reason,
		Reference:        tx.Reference,
		ReferenceID:      tx.ReferenceID,
		PerformedBy:      tx.PerformedBy,
		Cost:             nullDecimalPtr(tx.Cost),
		Location:         tx.Location,
		Warehouse:        tx.Warehouse,
		BatchNumber:      tx.BatchNumber,
		ExpiryDate:       tx.ExpiryDate,
		Notes:            tx.Notes,
		Metadata:         tx.Metadata,
		CreatedAt:        tx.CreatedAt,
	}
}

func NewReservationDTO(r *models.StockReservation) *ReservationDTO {
	if r == nil {
		return nil
	}
	return &ReservationDTO{
		ID:              r.ID,
		InventoryItemID: r.InventoryItemID,
		ProductID:       r.ProductID,
		OrderID:         r.OrderID,
		UserID:          r.UserID,
		Quantity:        r.Quantity,
		Status:          r.Status,
		Reason:          r.Reason,
		ExpiresAt:       r.ExpiresAt,
		FulfilledAt:     r.FulfilledAt,
		Metadata:        r.Metadata,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}
