// Package bootstrap wires the inventory service and its collaborators for the
// cmd binaries.
package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/inventory-service/internal/inventory"
	"github.com/angelmondragon/inventory-service/pkg/catalog"
	"github.com/angelmondragon/inventory-service/pkg/config"
	"github.com/angelmondragon/inventory-service/pkg/db"
	"github.com/angelmondragon/inventory-service/pkg/enums"
	"github.com/angelmondragon/inventory-service/pkg/logger"
	"github.com/angelmondragon/inventory-service/pkg/metrics"
	"github.com/angelmondragon/inventory-service/pkg/notifier"
	"github.com/angelmondragon/inventory-service/pkg/pubsub"
	"github.com/angelmondragon/inventory-service/pkg/redis"
)

// Inventory bundles the service with the resources it owns.
type Inventory struct {
	Service inventory.Service
	PubSub  *pubsub.Client

	closers []func() error
}

// Close releases the resources opened by NewInventory.
func (i *Inventory) Close() error {
	var err error
	for _, closeFn := range i.closers {
		err = multierr.Append(err, closeFn())
	}
	return err
}

// NewInventory builds the inventory service from config. reg receives the
// inventory metrics; pass nil to skip registration.
func NewInventory(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, reg prometheus.Registerer) (*Inventory, error) {
	out := &Inventory{}

	cache, err := inventory.NewRedisCache(redisClient, cfg.Inventory.CacheTTL)
	if err != nil {
		return nil, fmt.Errorf("inventory cache: %w", err)
	}

	var products inventory.ProductChecker
	if url := strings.TrimSpace(cfg.Collaborators.ProductServiceURL); url != "" {
		client, err := catalog.NewClient(url, catalog.WithTimeout(cfg.Collaborators.HTTPTimeout))
		if err != nil {
			return nil, fmt.Errorf("product client: %w", err)
		}
		products = client
	} else {
		logg.Warn(ctx, "product service url not configured, skipping product existence checks")
	}

	kind, err := cfg.Notifier.ParsedKind()
	if err != nil {
		return nil, err
	}
	var publisher notifier.Publisher
	if kind == enums.NotifierKindPubSub {
		psClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			return nil, fmt.Errorf("pubsub client: %w", err)
		}
		out.PubSub = psClient
		out.closers = append(out.closers, psClient.Close)
		publisher = psClient
	}

	alerts, err := notifier.New(cfg, publisher)
	if err != nil {
		_ = out.Close()
		return nil, fmt.Errorf("notifier: %w", err)
	}

	var inventoryMetrics *metrics.InventoryMetrics
	if reg != nil {
		inventoryMetrics = metrics.NewInventoryMetrics(reg)
	}

	svc, err := inventory.NewService(inventory.ServiceParams{
		Logger:            logg,
		DB:                dbClient,
		Repo:              inventory.NewRepository(dbClient.DB()),
		Cache:             cache,
		Products:          products,
		Notifier:          alerts,
		Metrics:           inventoryMetrics,
		ReservationTTL:    cfg.Inventory.ReservationTTL(),
		LowStockThreshold: cfg.Inventory.LowStockThreshold,
		SweepBatchSize:    cfg.Inventory.SweepBatchSize,
	})
	if err != nil {
		_ = out.Close()
		return nil, fmt.Errorf("inventory service: %w", err)
	}
	out.Service = svc
	return out, nil
}
