package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/inventory-service/pkg/db/models"
	"github.com/angelmondragon/inventory-service/pkg/enums"
)

const (
	reasonStockReserved        = "Stock reserved"
	reasonReservationFulfilled = "Reservation fulfilled"
	reasonReservationCancelled = "Reservation cancelled"
	reasonReservationExpired   = "Reservation expired"
)

func (s *service) Reserve(ctx context.Context, input ReserveInput) (*models.StockReservation, error) {
	if input.ProductID == uuid.Nil {
		return nil, validationError("product id is required")
	}
	if input.Quantity < 1 {
		return nil, validationError("quantity must be at least 1")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		reason = models.DefaultReservationReason
	}
	ctx = s.logg.WithProductID(ctx, input.ProductID.String())

	var (
		reservation *models.StockReservation
		snapshot    models.InventoryItem
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		item, err := repo.LockItemByProductID(ctx, input.ProductID)
		if err != nil {
			return translateNotFound(err, ErrNotFound)
		}

		available := item.AvailableQuantity()
		if available < input.Quantity {
			return withDetails(ErrInsufficientAvailableStock, map[string]any{
				"availableQuantity": available,
				"requestedQuantity": input.Quantity,
			})
		}

		now := s.now()
		expiresAt := now.Add(s.reservationTTL)
		if input.ExpiresAt != nil {
			expiresAt = input.ExpiresAt.UTC()
		}

		reservation = &models.StockReservation{
			InventoryItemID: item.ID,
			ProductID:       item.ProductID,
			OrderID:         input.OrderID,
			UserID:          input.UserID,
			Quantity:        input.Quantity,
			Status:          enums.ReservationStatusActive,
			Reason:          reason,
			ExpiresAt:       expiresAt,
			Metadata:        input.Metadata,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := repo.CreateReservation(ctx, reservation); err != nil {
			return err
		}

		item.ReservedQuantity += input.Quantity
		item.UpdatedAt = now
		if err := repo.SaveItem(ctx, item); err != nil {
			return err
		}

		notes := fmt.Sprintf("Reserved %d units for %s", input.Quantity, reason)
		ledger := &models.InventoryTransaction{
			InventoryItemID:  item.ID,
			ProductID:        item.ProductID,
			Type:             enums.TransactionTypeReservation,
			Quantity:         input.Quantity,
			PreviousQuantity: item.Quantity,
			NewQuantity:      item.Quantity,
			Reason:           reasonStockReserved,
			Reference:        orderReference(input.OrderID),
			ReferenceID:      &reservation.ID,
			PerformedBy:      input.UserID,
			Location:         item.Location,
			Warehouse:        item.Warehouse,
			Notes:            &notes,
			CreatedAt:        now,
		}
		if err := repo.CreateTransaction(ctx, ledger); err != nil {
			return err
		}

		snapshot = *item
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientAvailableStock) {
			s.metrics.IncReservation("rejected")
		}
		return nil, err
	}

	s.metrics.IncMutation(enums.TransactionTypeReservation.String())
	s.metrics.IncReservation("created")
	s.refreshCache(ctx, snapshot)
	return reservation, nil
}

func (s *service) Release(ctx context.Context, reservationID uuid.UUID, fulfill bool) (*models.StockReservation, error) {
	if reservationID == uuid.Nil {
		return nil, validationError("reservation id is required")
	}
	ctx = s.logg.WithReservationID(ctx, reservationID.String())

	var (
		reservation *models.StockReservation
		ledgerType  enums.TransactionType
		snapshot    models.InventoryItem
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		res, err := repo.LockReservation(ctx, reservationID)
		if err != nil {
			return translateNotFound(err, ErrReservationNotFound)
		}
		if res.Status != enums.ReservationStatusActive {
			return withDetails(ErrReservationNotActive, map[string]any{"status": res.Status.String()})
		}

		item, err := repo.LockItemByID(ctx, res.InventoryItemID)
		if err != nil {
			return translateNotFound(err, ErrNotFound)
		}

		now := s.now()
		previous := item.Quantity
		ledger := &models.InventoryTransaction{
			InventoryItemID:  item.ID,
			ProductID:        item.ProductID,
			Quantity:         res.Quantity,
			PreviousQuantity: previous,
			Reference:        orderReference(res.OrderID),
			ReferenceID:      &res.ID,
			Location:         item.Location,
			Warehouse:        item.Warehouse,
			CreatedAt:        now,
		}

		item.ReservedQuantity -= res.Quantity
		if fulfill {
			if item.Quantity < res.Quantity {
				return withDetails(ErrInsufficientStock, map[string]any{
					"quantity":  item.Quantity,
					"requested": res.Quantity,
				})
			}
			item.Quantity -= res.Quantity
			item.LastSoldAt = &now

			notes := fmt.Sprintf("Reservation fulfilled for %d units", res.Quantity)
			ledger.Type = enums.TransactionTypeStockOut
			ledger.Reason = reasonReservationFulfilled
			ledger.Notes = &notes

			res.Status = enums.ReservationStatusFulfilled
			res.FulfilledAt = &now
		} else {
			notes := fmt.Sprintf("Reservation cancelled for %d units", res.Quantity)
			ledger.Type = enums.TransactionTypeRelease
			ledger.Reason = reasonReservationCancelled
			ledger.Notes = &notes

			res.Status = enums.ReservationStatusCancelled
		}
		if item.ReservedQuantity < 0 {
			return fmt.Errorf("reserved quantity of item %s would become negative", item.ID)
		}
		ledger.NewQuantity = item.Quantity
		item.UpdatedAt = now
		res.UpdatedAt = now

		if err := repo.SaveItem(ctx, item); err != nil {
			return err
		}
		if err := repo.SaveReservation(ctx, res); err != nil {
			return err
		}
		if err := repo.CreateTransaction(ctx, ledger); err != nil {
			return err
		}

		reservation = res
		ledgerType = ledger.Type
		snapshot = *item
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncMutation(ledgerType.String())
	s.metrics.IncReservation(reservation.Status.String())
	s.refreshCache(ctx, snapshot)
	return reservation, nil
}

// ExpireReservations releases a bounded batch of active reservations past
// their expiry. Each reservation is handled in its own transaction; failures
// are collected and the remaining rows are still processed.
func (s *service) ExpireReservations(ctx context.Context) (int, error) {
	now := s.now()
	ids, err := s.repo.ListExpiredReservationIDs(ctx, now, s.sweepBatchSize)
	if err != nil {
		return 0, err
	}

	var (
		expired  int
		combined error
	)
	for _, id := range ids {
		item, ok, err := s.expireReservation(ctx, id)
		if err != nil {
			s.logg.Error(s.logg.WithReservationID(ctx, id.String()), "failed to expire reservation", err)
			combined = multierr.Append(combined, fmt.Errorf("expire reservation %s: %w", id, err))
			continue
		}
		if !ok {
			continue
		}
		expired++
		s.metrics.IncMutation(enums.TransactionTypeRelease.String())
		s.metrics.IncReservation(enums.ReservationStatusExpired.String())
		s.refreshCache(ctx, item)
	}

	if expired > 0 {
		s.logg.Info(s.logg.WithField(ctx, "expired", expired), "expired reservations released")
	}
	return expired, combined
}

// expireReservation reports false when the row is no longer expirable, for
// example because a concurrent release or sweep already handled it.
func (s *service) expireReservation(ctx context.Context, id uuid.UUID) (models.InventoryItem, bool, error) {
	var (
		snapshot models.InventoryItem
		done     bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		now := s.now()

		res, err := repo.LockExpirableReservation(ctx, id, now)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		item, err := repo.LockItemByID(ctx, res.InventoryItemID)
		if err != nil {
			return translateNotFound(err, ErrNotFound)
		}
		if item.ReservedQuantity < res.Quantity {
			return fmt.Errorf("reserved quantity of item %s is below reservation quantity", item.ID)
		}

		item.ReservedQuantity -= res.Quantity
		item.UpdatedAt = now
		res.Status = enums.ReservationStatusExpired
		res.UpdatedAt = now

		notes := fmt.Sprintf("Expired reservation for %d units", res.Quantity)
		ledger := &models.InventoryTransaction{
			InventoryItemID:  item.ID,
			ProductID:        item.ProductID,
			Type:             enums.TransactionTypeRelease,
			Quantity:         res.Quantity,
			PreviousQuantity: item.Quantity,
			NewQuantity:      item.Quantity,
			Reason:           reasonReservationExpired,
			Reference:        orderReference(res.OrderID),
			ReferenceID:      &res.ID,
			Location:         item.Location,
			Warehouse:        item.Warehouse,
			Notes:            &notes,
			CreatedAt:        now,
		}

		if err := repo.SaveItem(ctx, item); err != nil {
			return err
		}
		if err := repo.SaveReservation(ctx, res); err != nil {
			return err
		}
		if err := repo.CreateTransaction(ctx, ledger); err != nil {
			return err
		}

		snapshot = *item
		done = true
		return nil
	})
	if err != nil {
		return models.InventoryItem{}, false, err
	}
	return snapshot, done, nil
}

func orderReference(orderID *uuid.UUID) *string {
	if orderID == nil {
		return nil
	}
	ref := orderID.String()
	return &ref
}
