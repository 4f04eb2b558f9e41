package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/inventory-service/internal/repo"
	"github.com/angelmondragon/inventory-service/pkg/db/models"
	"github.com/angelmondragon/inventory-service/pkg/enums"
	"github.com/angelmondragon/inventory-service/pkg/pagination"
)

// StockTotals are the raw aggregates behind Statistics.
type StockTotals struct {
	TotalProducts int64
	TotalQuantity int64
	TotalReserved int64
}

// Repository manages persistence for items, ledger rows and reservations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateItem(ctx context.Context, item *models.InventoryItem) error
	SaveItem(ctx context.Context, item *models.InventoryItem) error
	FindItemByProductID(ctx context.Context, productID uuid.UUID) (*models.InventoryItem, error)
	FindItemBySKU(ctx context.Context, sku string) (*models.InventoryItem, error)
	FindDuplicate(ctx context.Context, productID uuid.UUID, sku string) (*models.InventoryItem, error)
	LockItemByProductID(ctx context.Context, productID uuid.UUID) (*models.InventoryItem, error)
	LockItemByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
	ListLowStock(ctx context.Context, threshold int, warehouse string) ([]models.InventoryItem, error)
	Statistics(ctx context.Context, warehouse string) (*StockTotals, error)

	CreateTransaction(ctx context.Context, tx *models.InventoryTransaction) error
	ListTransactions(ctx context.Context, productID uuid.UUID, txType *enums.TransactionType, params pagination.Params) ([]models.InventoryTransaction, int64, error)

	CreateReservation(ctx context.Context, reservation *models.StockReservation) error
	SaveReservation(ctx context.Context, reservation *models.StockReservation) error
	LockReservation(ctx context.Context, id uuid.UUID) (*models.StockReservation, error)
	LockExpirableReservation(ctx context.Context, id uuid.UUID, now time.Time) (*models.StockReservation, error)
	ListExpiredReservationIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Bind(tx)}
}

func activeReservations(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", enums.ReservationStatusActive).Order("created_at ASC")
}

func (r *repository) CreateItem(ctx context.Context, item *models.InventoryItem) error {
	return r.DB(ctx).Omit(clause.Associations).Create(item).Error
}

func (r *repository) SaveItem(ctx context.Context, item *models.InventoryItem) error {
	return r.DB(ctx).Omit(clause.Associations).Save(item).Error
}

func (r *repository) FindItemByProductID(ctx context.Context, productID uuid.UUID) (*models.InventoryItem, error) {
	return repo.First[models.InventoryItem](r.DB(ctx).
		Preload("Reservations", activeReservations).
		Where("product_id = ?", productID))
}

func (r *repository) FindItemBySKU(ctx context.Context, sku string) (*models.InventoryItem, error) {
	return repo.First[models.InventoryItem](r.DB(ctx).
		Preload("Reservations", activeReservations).
		Where("sku = ?", sku))
}

func (r *repository) FindDuplicate(ctx context.Context, productID uuid.UUID, sku string) (*models.InventoryItem, error) {
	return repo.First[models.InventoryItem](r.DB(ctx).Where("product_id = ? OR sku = ?", productID, sku))
}

func (r *repository) LockItemByProductID(ctx context.Context, productID uuid.UUID) (*models.InventoryItem, error) {
	return repo.First[models.InventoryItem](r.DB(ctx).Scopes(repo.ForUpdate).Where("product_id = ?", productID))
}

func (r *repository) LockItemByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	return repo.First[models.InventoryItem](r.DB(ctx).Scopes(repo.ForUpdate).Where("id = ?", id))
}

func (r *repository) ListLowStock(ctx context.Context, threshold int, warehouse string) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	q := r.DB(ctx).
		Where("(quantity - reserved_quantity) <= ?", threshold).
		Where("is_active = ? AND tracking_enabled = ?", true, true)
	if warehouse != "" {
		q = q.Where("warehouse = ?", warehouse)
	}
	if err := q.Order("(quantity - reserved_quantity) ASC").Order("sku ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) Statistics(ctx context.Context, warehouse string) (*StockTotals, error) {
	var totals StockTotals
	q := r.DB(ctx).
		Model(&models.InventoryItem{}).
		Select("COUNT(*) AS total_products, COALESCE(SUM(quantity), 0) AS total_quantity, COALESCE(SUM(reserved_quantity), 0) AS total_reserved").
		Where("is_active = ?", true)
	if warehouse != "" {
		q = q.Where("warehouse = ?", warehouse)
	}
	if err := q.Scan(&totals).Error; err != nil {
		return nil, err
	}
	return &totals, nil
}

func (r *repository) CreateTransaction(ctx context.Context, tx *models.InventoryTransaction) error {
	return r.DB(ctx).Create(tx).Error
}

func (r *repository) ListTransactions(ctx context.Context, productID uuid.UUID, txType *enums.TransactionType, params pagination.Params) ([]models.InventoryTransaction, int64, error) {
	scoped := func() *gorm.DB {
		q := r.DB(ctx).Model(&models.InventoryTransaction{}).Where("product_id = ?", productID)
		if txType != nil {
			q = q.Where("type = ?", *txType)
		}
		return q
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.InventoryTransaction
	if err := scoped().
		Scopes(repo.Page(params)).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repository) CreateReservation(ctx context.Context, reservation *models.StockReservation) error {
	return r.DB(ctx).Create(reservation).Error
}

func (r *repository) SaveReservation(ctx context.Context, reservation *models.StockReservation) error {
	return r.DB(ctx).Save(reservation).Error
}

func (r *repository) LockReservation(ctx context.Context, id uuid.UUID) (*models.StockReservation, error) {
	return repo.First[models.StockReservation](r.DB(ctx).Scopes(repo.ForUpdate).Where("id = ?", id))
}

// LockExpirableReservation locks the reservation only if it is still active and
// past its expiry. Rows held by another sweeper are skipped on Postgres, which
// surfaces as gorm.ErrRecordNotFound.
func (r *repository) LockExpirableReservation(ctx context.Context, id uuid.UUID, now time.Time) (*models.StockReservation, error) {
	return repo.First[models.StockReservation](r.DB(ctx).
		Scopes(repo.ForUpdateSkipLocked).
		Where("id = ? AND status = ? AND expires_at < ?", id, enums.ReservationStatusActive, now))
}

func (r *repository) ListExpiredReservationIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	q := r.DB(ctx).
		Model(&models.StockReservation{}).
		Where("status = ? AND expires_at < ?", enums.ReservationStatusActive, now).
		Order("expires_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
