package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	pkgerrors "github.com/angelmondragon/inventory-service/pkg/errors"
)

// Publisher is the subset of the Pub/Sub client used to emit alerts.
type Publisher interface {
	Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) (string, error)
}

// PubSubNotifier publishes alerts on a Pub/Sub topic.
type PubSubNotifier struct {
	publisher Publisher
	topic     string
}

func NewPubSubNotifier(publisher Publisher, topic string) (*PubSubNotifier, error) {
	if publisher == nil {
		return nil, errors.New("pubsub publisher required")
	}
	if strings.TrimSpace(topic) == "" {
		return nil, errors.New("pubsub topic required")
	}
	return &PubSubNotifier{publisher: publisher, topic: topic}, nil
}

func (n *PubSubNotifier) NotifyLowStock(ctx context.Context, alert LowStockAlert) error {
	data, err := json.Marshal(newPayload(alert))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal low stock alert")
	}
	attrs := map[string]string{
		"event_type": EventLowStock,
		"product_id": alert.ProductID.String(),
		"warehouse":  alert.Warehouse,
	}
	if _, err := n.publisher.Publish(ctx, n.topic, data, attrs); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "publish low stock alert")
	}
	return nil
}
