package controllers

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/inventory-service/api/responses"
	"github.com/angelmondragon/inventory-service/api/validators"
	"github.com/angelmondragon/inventory-service/internal/inventory"
	dbtypes "github.com/angelmondragon/inventory-service/pkg/db/types"
	"github.com/angelmondragon/inventory-service/pkg/enums"
	pkgerrors "github.com/angelmondragon/inventory-service/pkg/errors"
	"github.com/angelmondragon/inventory-service/pkg/logger"
	"github.com/angelmondragon/inventory-service/pkg/pagination"
)

const maxLowStockThreshold = 1_000_000

// CreateInventoryItem registers a product in inventory.
func CreateInventoryItem(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !serviceReady(w, r, svc, logg) {
			return
		}

		var payload createInventoryItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.CreateItem(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessMessage(w, http.StatusCreated, "Inventory item created successfully", inventory.NewItemDTO(item))
	}
}

// GetInventoryByProduct returns an item and its active reservations.
func GetInventoryByProduct(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !serviceReady(w, r, svc, logg) {
			return
		}

		productID, err := uuidParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.GetByProductID(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, inventory.NewItemDTO(item))
	}
}

// GetInventoryBySKU returns an item looked up by SKU.
func GetInventoryBySKU(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !serviceReady(w, r, svc, logg) {
			return
		}

		sku := strings.TrimSpace(chi.URLParam(r, "sku"))
		if sku == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "sku is required"))
			return
		}

		item, err := svc.GetBySKU(r.Context(), sku)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, inventory.NewItemDTO(item))
	}
}

// UpdateStock applies a stock_in, stock_out or adjustment to a product.
func UpdateStock(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !serviceReady(w, r, svc, logg) {
			return
		}

		productID, err := uuidParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateStockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.UpdateStock(r.Context(), productID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessMessage(w, http.StatusOK, "Stock updated successfully", stockUpdateResponse{
			Inventory:   inventory.NewItemDTO(result.Item),
			Transaction: inventory.NewTransactionDTO(result.Transaction),
		})
	}
}

// UpdateInventorySettings patches the policy fields of an item.
func UpdateInventorySettings(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !serviceReady(w, r, svc, logg) {
			return
		}

		productID, err := uuidParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateSettingsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.UpdateSettings(r.Context(), productID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessMessage(w, http.StatusOK, "Inventory settings updated successfully", inventory.NewItemDTO(item))
	}
}

// CheckAvailability answers whether quantity units can be reserved.
func CheckAvailability(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !serviceReady(w, r, svc, logg) {
			return
		}

		productID, err := uuidParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quantity, err := validators.ParseQueryInt(r, "quantity", 1, 1, maxLowStockThreshold)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		availability, err := svc.CheckAvailability(r.Context(), productID, quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, availability)
	}
}

// ReserveStock holds units of a product for an order.
func ReserveStock(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !serviceReady(w, r, svc, logg) {
			return
		}

		var payload reserveStockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reservation, err := svc.Reserve(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessMessage(w, http.StatusCreated, "Stock reserved successfully", inventory.NewReservationDTO(reservation))
	}
}

// ReleaseReservation fulfills or cancels an active reservation.
func ReleaseReservation(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !serviceReady(w, r, svc, logg) {
			return
		}

		reservationID, err := uuidParam(r, "reservationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload releaseReservationRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		reservation, err := svc.Release(r.Context(), reservationID, payload.Fulfill)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		outcome := "cancelled"
		if payload.Fulfill {
			outcome = "fulfilled"
		}
		responses.WriteSuccessMessage(w, http.StatusOK, fmt.Sprintf("Reservation %s successfully", outcome), inventory.NewReservationDTO(reservation))
	}
}

// GetInventoryHistory pages through the ledger of a product.
func GetInventoryHistory(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !serviceReady(w, r, svc, logg) {
			return
		}

		productID, err := uuidParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := validators.ParseQueryInt(r, "page", 1, 1, 1_000_000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := inventory.HistoryFilter{Page: page, Limit: limit}
		if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
			txType, err := enums.ParseTransactionType(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid transaction type"))
				return
			}
			filter.Type = &txType
		}

		history, err := svc.GetHistory(r.Context(), productID, filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WritePage(w, history.Transactions, history.Pagination)
	}
}

// GetLowStockItems lists items at or below the low-stock threshold.
func GetLowStockItems(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !serviceReady(w, r, svc, logg) {
			return
		}

		var threshold *int
		if strings.TrimSpace(r.URL.Query().Get("threshold")) != "" {
			value, err := validators.ParseQueryInt(r, "threshold", 0, 0, maxLowStockThreshold)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			threshold = &value
		}

		items, err := svc.GetLowStockItems(r.Context(), threshold)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, inventory.NewItemDTOs(items))
	}
}

// GetInventoryStatistics aggregates stock, optionally for one warehouse.
func GetInventoryStatistics(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !serviceReady(w, r, svc, logg) {
			return
		}

		stats, err := svc.GetStatistics(r.Context(), strings.TrimSpace(r.URL.Query().Get("warehouse")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, stats)
	}
}

// ExpireReservations runs one expiry sweep on demand.
func ExpireReservations(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !serviceReady(w, r, svc, logg) {
			return
		}

		count, err := svc.ExpireReservations(r.Context())
		if err != nil && count == 0 {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err != nil && logg != nil {
			logg.Error(r.Context(), "inventory.expire_reservations.partial", err)
		}

		responses.WriteSuccessMessage(w, http.StatusOK, fmt.Sprintf("Expired %d reservations", count), map[string]int{"expiredCount": count})
	}
}

func serviceReady(w http.ResponseWriter, r *http.Request, svc inventory.Service, logg *logger.Logger) bool {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
		return false
	}
	return true
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name).WithDetails(map[string]any{"field": name})
	}
	return id, nil
}

type stockUpdateResponse struct {
	Inventory   *inventory.ItemDTO       `json:"inventory"`
	Transaction inventory.TransactionDTO `json:"transaction"`
}

type createInventoryItemRequest struct {
	ProductID       string           `json:"productId" validate:"required,uuid"`
	SKU             string           `json:"sku" validate:"required,max=100"`
	ProductName     string           `json:"productName" validate:"required,max=255"`
	Quantity        *int             `json:"quantity" validate:"omitempty,min=0,max=2147483647"`
	MinStockLevel   *int             `json:"minStockLevel" validate:"omitempty,min=0,max=2147483647"`
	MaxStockLevel   *int             `json:"maxStockLevel" validate:"omitempty,min=0,max=2147483647"`
	ReorderPoint    *int             `json:"reorderPoint" validate:"omitempty,min=0,max=2147483647"`
	Location        *string          `json:"location"`
	Warehouse       *string          `json:"warehouse"`
	Supplier        *string          `json:"supplier"`
	CostPrice       *decimal.Decimal `json:"costPrice"`
	TrackingEnabled *bool            `json:"trackingEnabled"`
	Metadata        dbtypes.JSON     `json:"metadata"`
}

func (r createInventoryItemRequest) toInput() (inventory.CreateItemInput, error) {
	productID, err := uuid.Parse(r.ProductID)
	if err != nil {
		return inventory.CreateItemInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid productId")
	}
	if err := requirePositive("costPrice", r.CostPrice); err != nil {
		return inventory.CreateItemInput{}, err
	}
	if err := requireObject(r.Metadata); err != nil {
		return inventory.CreateItemInput{}, err
	}

	input := inventory.CreateItemInput{
		ProductID:       productID,
		SKU:             strings.TrimSpace(r.SKU),
		ProductName:     validators.SanitizeString(r.ProductName, maxProductNameLength),
		MinStockLevel:   r.MinStockLevel,
		MaxStockLevel:   r.MaxStockLevel,
		ReorderPoint:    r.ReorderPoint,
		Location:        r.Location,
		Supplier:        r.Supplier,
		CostPrice:       r.CostPrice,
		TrackingEnabled: r.TrackingEnabled,
		Metadata:        r.Metadata,
	}
	if r.Quantity != nil {
		input.Quantity = *r.Quantity
	}
	if r.Warehouse != nil {
		input.Warehouse = strings.TrimSpace(*r.Warehouse)
	}
	return input, nil
}

const (
	maxReasonLength      = 255
	maxProductNameLength = 255
)

type updateStockRequest struct {
	Quantity    *int             `json:"quantity" validate:"required,min=-2147483647,max=2147483647"`
	Type        string           `json:"type" validate:"required,oneof=stock_in stock_out adjustment"`
	Reason      string           `json:"reason" validate:"required"`
	Reference   *string          `json:"reference"`
	ReferenceID *string          `json:"referenceId" validate:"omitempty,uuid"`
	PerformedBy *string          `json:"performedBy" validate:"omitempty,uuid"`
	Cost        *decimal.Decimal `json:"cost"`
	Location    *string          `json:"location"`
	Warehouse   *string          `json:"warehouse"`
	BatchNumber *string          `json:"batchNumber"`
	ExpiryDate  *time.Time       `json:"expiryDate"`
	Notes       *string          `json:"notes" validate:"omitempty,max=500"`
	Metadata    dbtypes.JSON     `json:"metadata"`
}

func (r updateStockRequest) toInput() (inventory.UpdateStockInput, error) {
	updateType, err := enums.ParseStockUpdateType(strings.TrimSpace(r.Type))
	if err != nil {
		return inventory.UpdateStockInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid type")
	}
	referenceID, err := optionalUUID("referenceId", r.ReferenceID)
	if err != nil {
		return inventory.UpdateStockInput{}, err
	}
	performedBy, err := optionalUUID("performedBy", r.PerformedBy)
	if err != nil {
		return inventory.UpdateStockInput{}, err
	}
	if err := requirePositive("cost", r.Cost); err != nil {
		return inventory.UpdateStockInput{}, err
	}
	if err := requireObject(r.Metadata); err != nil {
		return inventory.UpdateStockInput{}, err
	}

	return inventory.UpdateStockInput{
		Quantity:    *r.Quantity,
		Type:        updateType,
		Reason:      validators.SanitizeString(r.Reason, maxReasonLength),
		Reference:   r.Reference,
		ReferenceID: referenceID,
		PerformedBy: performedBy,
		Cost:        r.Cost,
		Location:    r.Location,
		Warehouse:   r.Warehouse,
		BatchNumber: r.BatchNumber,
		ExpiryDate:  r.ExpiryDate,
		Notes:       r.Notes,
		Metadata:    r.Metadata,
	}, nil
}

type updateSettingsRequest struct {
	ProductName     *string          `json:"productName" validate:"omitempty,min=1,max=255"`
	MinStockLevel   *int             `json:"minStockLevel" validate:"omitempty,min=0,max=2147483647"`
	MaxStockLevel   *int             `json:"maxStockLevel" validate:"omitempty,min=0,max=2147483647"`
	ReorderPoint    *int             `json:"reorderPoint" validate:"omitempty,min=0,max=2147483647"`
	Location        *string          `json:"location"`
	Warehouse       *string          `json:"warehouse" validate:"omitempty,min=1"`
	Supplier        *string          `json:"supplier"`
	CostPrice       *decimal.Decimal `json:"costPrice"`
	IsActive        *bool            `json:"isActive"`
	TrackingEnabled *bool            `json:"trackingEnabled"`
	Metadata        dbtypes.JSON     `json:"metadata"`
}

func (r updateSettingsRequest) toInput() (inventory.UpdateSettingsInput, error) {
	if err := requirePositive("costPrice", r.CostPrice); err != nil {
		return inventory.UpdateSettingsInput{}, err
	}
	if err := requireObject(r.Metadata); err != nil {
		return inventory.UpdateSettingsInput{}, err
	}
	return inventory.UpdateSettingsInput{
		ProductName:     r.ProductName,
		MinStockLevel:   r.MinStockLevel,
		MaxStockLevel:   r.MaxStockLevel,
		ReorderPoint:    r.ReorderPoint,
		Location:        r.Location,
		Warehouse:       r.Warehouse,
		Supplier:        r.Supplier,
		CostPrice:       r.CostPrice,
		IsActive:        r.IsActive,
		TrackingEnabled: r.TrackingEnabled,
		Metadata:        r.Metadata,
	}, nil
}

type reserveStockRequest struct {
	ProductID string       `json:"productId" validate:"required,uuid"`
	Quantity  int          `json:"quantity" validate:"required,min=1,max=2147483647"`
	OrderID   *string      `json:"orderId" validate:"omitempty,uuid"`
	UserID    *string      `json:"userId" validate:"omitempty,uuid"`
	Reason    string       `json:"reason"`
	ExpiresAt *time.Time   `json:"expiresAt"`
	Metadata  dbtypes.JSON `json:"metadata"`
}

func (r reserveStockRequest) toInput() (inventory.ReserveInput, error) {
	productID, err := uuid.Parse(r.ProductID)
	if err != nil {
		return inventory.ReserveInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid productId")
	}
	orderID, err := optionalUUID("orderId", r.OrderID)
	if err != nil {
		return inventory.ReserveInput{}, err
	}
	userID, err := optionalUUID("userId", r.UserID)
	if err != nil {
		return inventory.ReserveInput{}, err
	}
	if err := requireObject(r.Metadata); err != nil {
		return inventory.ReserveInput{}, err
	}
	return inventory.ReserveInput{
		ProductID: productID,
		Quantity:  r.Quantity,
		OrderID:   orderID,
		UserID:    userID,
		Reason:    validators.SanitizeString(r.Reason, maxReasonLength),
		ExpiresAt: r.ExpiresAt,
		Metadata:  r.Metadata,
	}, nil
}

type releaseReservationRequest struct {
	Fulfill bool `json:"fulfill"`
}

func optionalUUID(field string, raw *string) (*uuid.UUID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(*raw))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+field).WithDetails(map[string]any{"field": field})
	}
	return &id, nil
}

func requirePositive(field string, value *decimal.Decimal) error {
	if value == nil || value.IsPositive() {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(map[string]string{field: "must be positive"})
}

func requireObject(doc dbtypes.JSON) error {
	if doc.IsEmpty() || bytes.HasPrefix(bytes.TrimSpace(doc), []byte("{")) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(map[string]string{"metadata": "must be an object"})
}
