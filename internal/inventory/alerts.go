package inventory

import (
	"context"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/inventory-service/pkg/db/models"
	"github.com/angelmondragon/inventory-service/pkg/notifier"
)

const sideEffectTimeout = 5 * time.Second

// refreshCache writes the committed item state to the cache without blocking
// the caller. Failures are logged only.
func (s *service) refreshCache(ctx context.Context, item models.InventoryItem) {
	if s.cache == nil {
		return
	}
	snapshot := NewCachedItem(item, s.now())
	bg := context.WithoutCancel(ctx)
	s.async(func() {
		ctx, cancel := context.WithTimeout(bg, sideEffectTimeout)
		defer cancel()
		if err := s.cache.Set(ctx, snapshot); err != nil {
			s.metrics.CacheError()
			s.logg.Error(ctx, "failed to refresh inventory cache", err)
		}
	})
}

// signalLowStock sends a best-effort low-stock alert in the background.
func (s *service) signalLowStock(ctx context.Context, item models.InventoryItem) {
	alert := lowStockAlert(item)
	bg := context.WithoutCancel(ctx)
	s.async(func() {
		ctx, cancel := context.WithTimeout(bg, sideEffectTimeout)
		defer cancel()
		_ = s.sendAlert(ctx, alert)
	})
}

func (s *service) sendAlert(ctx context.Context, alert notifier.LowStockAlert) error {
	if err := s.notifier.NotifyLowStock(ctx, alert); err != nil {
		s.metrics.AlertFailed()
		s.logg.Error(s.logg.WithProductID(ctx, alert.ProductID.String()), "failed to send low stock alert", err)
		return err
	}
	s.metrics.AlertSent()
	return nil
}

// SendLowStockAlerts delivers one alert per item synchronously and returns
// how many were accepted by the notifier.
func (s *service) SendLowStockAlerts(ctx context.Context, items []models.InventoryItem) (int, error) {
	var (
		sent     int
		combined error
	)
	for _, item := range items {
		if err := s.sendAlert(ctx, lowStockAlert(item)); err != nil {
			combined = multierr.Append(combined, err)
			continue
		}
		sent++
	}
	return sent, combined
}

func lowStockAlert(item models.InventoryItem) notifier.LowStockAlert {
	return notifier.LowStockAlert{
		ProductID:         item.ProductID,
		SKU:               item.SKU,
		ProductName:       item.ProductName,
		AvailableQuantity: item.AvailableQuantity(),
		ReorderPoint:      item.ReorderPoint,
		Warehouse:         item.Warehouse,
	}
}
