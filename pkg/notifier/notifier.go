package notifier

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/inventory-service/pkg/config"
	"github.com/angelmondragon/inventory-service/pkg/enums"
)

// EventLowStock is the notification type understood by the notification service.
const EventLowStock = "low_stock_alert"

// LowStockAlert describes an item whose available stock reached its reorder point.
type LowStockAlert struct {
	ProductID         uuid.UUID
	SKU               string
	ProductName       string
	AvailableQuantity int
	ReorderPoint      int
	Warehouse         string
}

// Notifier delivers low-stock alerts.
type Notifier interface {
	NotifyLowStock(ctx context.Context, alert LowStockAlert) error
}

type payload struct {
	Type      string      `json:"type"`
	ProductID string      `json:"productId"`
	Data      payloadData `json:"data"`
}

type payloadData struct {
	SKU               string `json:"sku"`
	ProductName       string `json:"productName"`
	AvailableQuantity int    `json:"availableQuantity"`
	ReorderPoint      int    `json:"reorderPoint"`
	Warehouse         string `json:"warehouse"`
}

func newPayload(alert LowStockAlert) payload {
	return payload{
		Type:      EventLowStock,
		ProductID: alert.ProductID.String(),
		Data: payloadData{
			SKU:               alert.SKU,
			ProductName:       alert.ProductName,
			AvailableQuantity: alert.AvailableQuantity,
			ReorderPoint:      alert.ReorderPoint,
			Warehouse:         alert.Warehouse,
		},
	}
}

// Noop drops every alert.
type Noop struct{}

func (Noop) NotifyLowStock(context.Context, LowStockAlert) error {
	return nil
}

// New selects the notifier configured by INVENTORY_NOTIFIER_KIND. publisher
// is only required for the pubsub kind.
func New(cfg *config.Config, publisher Publisher) (Notifier, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}
	kind, err := cfg.Notifier.ParsedKind()
	if err != nil {
		return nil, err
	}
	switch kind {
	case enums.NotifierKindNone:
		return Noop{}, nil
	case enums.NotifierKindPubSub:
		return NewPubSubNotifier(publisher, cfg.PubSub.LowStockTopic)
	default:
		return NewHTTPNotifier(cfg.Collaborators.NotificationServiceURL, WithTimeout(cfg.Collaborators.HTTPTimeout))
	}
}
